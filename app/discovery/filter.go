package discovery

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/lysyi3m/news-comb/app/site"
)

var defaultIncludes = []*regexp.Regexp{
	regexp.MustCompile(`/\d{4}/\d{1,2}/\d{1,2}/`),
	regexp.MustCompile(`/\d{4}/\d{1,2}/`),
	regexp.MustCompile(`/\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`/news/`),
	regexp.MustCompile(`/politics/`),
	regexp.MustCompile(`/archives?/`),
	regexp.MustCompile(`archive\.php`),
	regexp.MustCompile(`\.php\?(.*&)?(id|p|article|story)=\d+`),
}

var defaultExcludes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/search`),
	regexp.MustCompile(`(?i)/category/`),
	regexp.MustCompile(`(?i)/tags?/`),
	regexp.MustCompile(`(?i)/author/`),
	regexp.MustCompile(`(?i)/page/\d+`),
	regexp.MustCompile(`(?i)[?&]page=\d+`),
	regexp.MustCompile(`(?i)\.(jpe?g|png|gif|svg|webp|ico|css|js|pdf|xml|zip|mp3|mp4)$`),
}

var skippedSchemes = []string{"mailto:", "javascript:", "tel:", "data:"}

// resolveLink turns an href found on pageURL into a normalized absolute URL.
func resolveLink(pageURL *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}

	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return nil, false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}

	u := pageURL.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}

	u.Fragment = ""
	u.RawFragment = ""
	if len(u.Path) > 1 {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}

	return u, true
}

func sameHost(siteConfig *site.Config, u *url.URL) bool {
	return site.StripWWW(u.Hostname()) == siteConfig.Host()
}

func excluded(siteConfig *site.Config, u *url.URL) bool {
	target := u.RequestURI()
	for _, re := range defaultExcludes {
		if re.MatchString(u.Path) || re.MatchString(target) {
			return true
		}
	}
	for _, re := range siteConfig.ExcludePatterns() {
		if re.MatchString(target) {
			return true
		}
	}
	return false
}

func included(siteConfig *site.Config, u *url.URL) bool {
	target := u.RequestURI()
	for _, re := range defaultIncludes {
		if re.MatchString(target) {
			return true
		}
	}
	for _, re := range siteConfig.IncludePatterns() {
		if re.MatchString(target) {
			return true
		}
	}
	return false
}

// acceptArticle applies the same-host, exclude and include rules.
func acceptArticle(siteConfig *site.Config, u *url.URL) bool {
	return sameHost(siteConfig, u) && !excluded(siteConfig, u) && included(siteConfig, u)
}

// acceptFeedItem skips the include rule: feed entries are articles already.
func acceptFeedItem(siteConfig *site.Config, u *url.URL) bool {
	return sameHost(siteConfig, u) && !excluded(siteConfig, u)
}
