package site

import (
	"net/url"
	"regexp"
	"strings"
)

type Config struct {
	Name         string    `yaml:"-"`
	BaseURL      string    `yaml:"base_url"`
	ListingPaths []string  `yaml:"listing_paths"`
	FeedPaths    []string  `yaml:"feed_paths"`
	WaitSelector string    `yaml:"wait_selector"`
	Include      []string  `yaml:"include"`
	Exclude      []string  `yaml:"exclude"`
	Enabled      *bool     `yaml:"enabled"`
	Selectors    Selectors `yaml:"selectors"`

	includeRe []*regexp.Regexp
	excludeRe []*regexp.Regexp
}

// Selectors lists CSS selectors per field; each list is tried in order.
type Selectors struct {
	Link     string   `yaml:"link"`
	Title    []string `yaml:"title"`
	Content  []string `yaml:"content"`
	Author   []string `yaml:"author"`
	Date     []string `yaml:"date"`
	Image    []string `yaml:"image"`
	Category []string `yaml:"category"`
}

func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Host returns the base URL hostname without a leading "www.".
func (c *Config) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return ""
	}
	return StripWWW(u.Hostname())
}

// ResolvePath joins a listing or feed path with the base URL.
func (c *Config) ResolvePath(path string) (string, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func (c *Config) IncludePatterns() []*regexp.Regexp {
	return c.includeRe
}

func (c *Config) ExcludePatterns() []*regexp.Regexp {
	return c.excludeRe
}

func StripWWW(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
