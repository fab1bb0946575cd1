package extract

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/lysyi3m/news-comb/app/document"
)

const (
	MaxTitleRunes  = 200
	MaxBodyRunes   = 20000
	MaxAuthorRunes = 100
	MaxImages      = 5
)

var (
	genericTitleSelectors  = []string{`meta[property="og:title"]`, "h1", "title"}
	genericBodySelectors   = []string{`[itemprop="articleBody"]`, "article", "main"}
	genericAuthorSelectors = []string{`meta[name="author"]`, `[rel="author"]`, `[itemprop="author"]`}
	genericDateSelectors   = []string{`meta[property="article:published_time"]`, `[itemprop="datePublished"]`, "time[datetime]"}
	genericImageSelectors  = []string{`meta[property="og:image"]`, "article img"}
	imageSourceAttributes  = []string{"content", "src", "data-src", "data-lazy-src"}
	rejectedImagePattern   = regexp.MustCompile(`(?i)(logo|icon|avatar|sprite|placeholder|pixel|spacer|badge)`)
	authorPrefixPattern    = regexp.MustCompile(`(?i)^(by|written by|author:)\s+`)
)

// firstText returns the first non-empty value among the selectors.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if selector == "" {
			continue
		}
		var value string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			value = selectionValue(s)
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

// selectionValue reads meta content attributes, falling back to element text.
func selectionValue(s *goquery.Selection) string {
	if goquery.NodeName(s) == "meta" {
		content, _ := s.Attr("content")
		return document.Normalize(content)
	}
	return document.Normalize(s.Text())
}

// bodyText joins paragraph texts of the first selector that yields any text.
func bodyText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if selector == "" {
			continue
		}
		var paragraphs []string
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if goquery.NodeName(s) == "p" {
				if text := document.Normalize(s.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				return
			}

			ps := s.Find("p")
			if ps.Length() == 0 {
				if text := document.Normalize(s.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
				return
			}
			ps.Each(func(_ int, p *goquery.Selection) {
				if text := document.Normalize(p.Text()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			})
		})
		if len(paragraphs) > 0 {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

func publishDate(doc *goquery.Document, selectors []string) (time.Time, bool) {
	for _, selector := range append(append([]string{}, selectors...), genericDateSelectors...) {
		if selector == "" {
			continue
		}
		var parsed time.Time
		found := false
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			candidates := []string{}
			for _, attr := range []string{"datetime", "content"} {
				if v, ok := s.Attr(attr); ok {
					candidates = append(candidates, v)
				}
			}
			candidates = append(candidates, s.Text())

			for _, c := range candidates {
				c = strings.TrimSpace(c)
				if c == "" {
					continue
				}
				if t, err := dateparse.ParseAny(c); err == nil {
					parsed = t
					found = true
					return false
				}
			}
			return true
		})
		if found {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func cleanAuthor(author string) string {
	author = authorPrefixPattern.ReplaceAllString(document.Normalize(author), "")
	return document.Truncate(author, MaxAuthorRunes)
}

// imageURLs collects absolute, deduplicated content image URLs in page order.
func imageURLs(doc *goquery.Document, pageURL *url.URL, selectors []string) []string {
	all := append(append([]string{}, selectors...), genericImageSelectors...)

	seen := make(map[string]bool)
	var images []string
	for _, selector := range all {
		if selector == "" {
			continue
		}
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			for _, attr := range imageSourceAttributes {
				src, ok := s.Attr(attr)
				if !ok || strings.TrimSpace(src) == "" {
					continue
				}
				abs, ok := acceptImage(pageURL, src)
				if !ok {
					continue
				}
				if !seen[abs] {
					seen[abs] = true
					images = append(images, abs)
				}
				break
			}
			return len(images) < MaxImages
		})
		if len(images) >= MaxImages {
			break
		}
	}
	return images
}

func acceptImage(pageURL *url.URL, src string) (string, bool) {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(strings.ToLower(src), "data:") {
		return "", false
	}

	ref, err := url.Parse(src)
	if err != nil {
		return "", false
	}
	u := pageURL.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	if rejectedImagePattern.MatchString(u.Path) || strings.HasSuffix(strings.ToLower(u.Path), ".svg") {
		return "", false
	}
	return u.String(), true
}
