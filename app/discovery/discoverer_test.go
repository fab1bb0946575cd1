package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/lysyi3m/news-comb/app/fault"
	"github.com/lysyi3m/news-comb/app/site"
	"github.com/lysyi3m/news-comb/app/workpool"
)

type mockRenderer struct {
	pages map[string]string
	calls []string
}

func (m *mockRenderer) Render(ctx context.Context, pageURL string, waitSelector string) (string, error) {
	m.calls = append(m.calls, pageURL)
	html, ok := m.pages[pageURL]
	if !ok {
		return "", errors.New("navigation failed")
	}
	return html, nil
}

type mockFetcher struct {
	docs map[string]string
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	doc, ok := m.docs[url]
	if !ok {
		return nil, fmt.Errorf("HTTP error: 404")
	}
	return []byte(doc), nil
}

func newSite(t *testing.T, name, base string, listing ...string) *site.Config {
	t.Helper()
	cache := site.NewConfigCache("")
	c := &site.Config{Name: name, BaseURL: base, ListingPaths: listing}
	if err := cache.Add(c); err != nil {
		t.Fatal(err)
	}
	return c
}

const listingHTML = `
<html><body>
  <a href="/news/city-council-approves-budget">Budget</a>
  <a href="https://www.news.example.com/2024/05/01/storm-hits-coast/">Storm</a>
  <a href="/politics/senate-vote#comments">Senate</a>
  <a href="/archive.php?id=42">Archive</a>
  <a href="/category/news/">Category</a>
  <a href="/tag/weather/">Tag</a>
  <a href="/news/page/2">Page 2</a>
  <a href="/search?q=news">Search</a>
  <a href="/news/photo.jpg">Image</a>
  <a href="https://other.example.org/news/foreign-story">Foreign</a>
  <a href="/about-us">About</a>
  <a href="mailto:desk@news.example.com">Mail</a>
  <a href="javascript:void(0)">JS</a>
  <a href="#top">Top</a>
  <a href="/news/city-council-approves-budget">Budget again</a>
</body></html>`

func TestDiscoverer_FiltersLinks(t *testing.T) {
	renderer := &mockRenderer{pages: map[string]string{
		"https://news.example.com/": listingHTML,
	}}
	siteConfig := newSite(t, "example", "https://news.example.com", "/")

	d := NewDiscoverer(nil, 0, workpool.NoSleep)
	urls, errs := d.DiscoverAll(context.Background(), renderer, []*site.Config{siteConfig})

	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}

	expected := []string{
		"https://news.example.com/news/city-council-approves-budget",
		"https://www.news.example.com/2024/05/01/storm-hits-coast",
		"https://news.example.com/politics/senate-vote",
		"https://news.example.com/archive.php?id=42",
	}
	if len(urls) != len(expected) {
		t.Fatalf("Expected %d URLs, got %d: %v", len(expected), len(urls), urls)
	}
	for i := range expected {
		if urls[i] != expected[i] {
			t.Errorf("Expected URL %d to be '%s', got '%s'", i, expected[i], urls[i])
		}
	}
}

func TestDiscoverer_DedupAcrossCalls(t *testing.T) {
	renderer := &mockRenderer{pages: map[string]string{
		"https://news.example.com/": listingHTML,
	}}
	siteConfig := newSite(t, "example", "https://news.example.com", "/")
	d := NewDiscoverer(nil, 0, workpool.NoSleep)

	first, _ := d.DiscoverAll(context.Background(), renderer, []*site.Config{siteConfig})
	if len(first) == 0 {
		t.Fatal("Expected URLs on first call")
	}

	second, _ := d.DiscoverAll(context.Background(), renderer, []*site.Config{siteConfig})
	if len(second) != 0 {
		t.Errorf("Expected no URLs on second call, got %v", second)
	}
	if d.Seen() != len(first) {
		t.Errorf("Expected %d seen URLs, got %d", len(first), d.Seen())
	}

	d.Clear()
	third, _ := d.DiscoverAll(context.Background(), renderer, []*site.Config{siteConfig})
	if len(third) != len(first) {
		t.Errorf("Expected %d URLs after Clear, got %d", len(first), len(third))
	}
}

func TestDiscoverer_SiteFailureIsolated(t *testing.T) {
	renderer := &mockRenderer{pages: map[string]string{
		"https://b.example.com/news": `<a href="/news/b-story">B</a>`,
	}}
	siteA := newSite(t, "a", "https://a.example.com", "/news")
	siteB := newSite(t, "b", "https://b.example.com", "/news")

	d := NewDiscoverer(nil, 0, workpool.NoSleep)
	urls, errs := d.DiscoverAll(context.Background(), renderer, []*site.Config{siteA, siteB})

	if len(urls) != 1 || urls[0] != "https://b.example.com/news/b-story" {
		t.Errorf("Expected only site b's URL, got %v", urls)
	}
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if errs[0].Kind != fault.KindNetwork || !errs[0].Retryable {
		t.Errorf("Expected retryable network error, got %s retryable=%t", errs[0].Kind, errs[0].Retryable)
	}
	if errs[0].Context["site"] != "a" {
		t.Errorf("Expected error for site a, got '%s'", errs[0].Context["site"])
	}
}

func TestDiscoverer_SelectorMismatch(t *testing.T) {
	renderer := &mockRenderer{pages: map[string]string{
		"https://news.example.com/news": `<div class="story"><a href="/news/x">X</a></div>`,
	}}
	siteConfig := newSite(t, "example", "https://news.example.com", "/news")
	siteConfig.Selectors.Link = "ul.headlines a"

	d := NewDiscoverer(nil, 0, workpool.NoSleep)
	urls, errs := d.DiscoverAll(context.Background(), renderer, []*site.Config{siteConfig})
	if len(urls) != 0 {
		t.Errorf("Expected no URLs, got %v", urls)
	}
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if errs[0].Kind != fault.KindNetwork || !errs[0].Retryable {
		t.Errorf("Expected retryable network error, got %s retryable=%t", errs[0].Kind, errs[0].Retryable)
	}
	if errs[0].Context["site"] != "example" {
		t.Errorf("Expected error for site example, got '%s'", errs[0].Context["site"])
	}
	if errs[0].URL != "https://news.example.com/news" {
		t.Errorf("Expected listing URL, got '%s'", errs[0].URL)
	}
	if !errors.Is(errs[0], ErrSelectorMismatch) {
		t.Errorf("Expected selector mismatch, got %v", errs[0])
	}
}

func TestDiscoverer_ContainerSelector(t *testing.T) {
	renderer := &mockRenderer{pages: map[string]string{
		"https://news.example.com/news": `<div class="story"><a href="/news/x-story">X</a></div><div class="story"><span>none</span></div>`,
	}}
	siteConfig := newSite(t, "example", "https://news.example.com", "/news")
	siteConfig.Selectors.Link = "div.story"

	d := NewDiscoverer(nil, 0, workpool.NoSleep)
	urls, _ := d.DiscoverAll(context.Background(), renderer, []*site.Config{siteConfig})
	if len(urls) != 1 || urls[0] != "https://news.example.com/news/x-story" {
		t.Errorf("Expected link inside container, got %v", urls)
	}
}

func TestDiscoverer_Feeds(t *testing.T) {
	rss := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Example</title>
<item><title>One</title><link>https://news.example.com/world/one-story</link></item>
<item><title>Two</title><link>https://news.example.com/tag/ignored/</link></item>
<item><title>Three</title><link>https://elsewhere.example.org/three</link></item>
</channel></rss>`

	fetcher := &mockFetcher{docs: map[string]string{"https://news.example.com/rss.xml": rss}}
	siteConfig := &site.Config{Name: "example", BaseURL: "https://news.example.com", FeedPaths: []string{"/rss.xml"}}
	if err := site.NewConfigCache("").Add(siteConfig); err != nil {
		t.Fatal(err)
	}

	d := NewDiscoverer(fetcher, 0, workpool.NoSleep)
	urls, errs := d.DiscoverAll(context.Background(), &mockRenderer{}, []*site.Config{siteConfig})

	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}
	if len(urls) != 1 || urls[0] != "https://news.example.com/world/one-story" {
		t.Errorf("Expected one feed URL, got %v", urls)
	}
}

func TestDiscoverer_PausesBetweenPages(t *testing.T) {
	renderer := &mockRenderer{pages: map[string]string{
		"https://news.example.com/news":     `<a href="/news/a-story">A</a>`,
		"https://news.example.com/politics": `<a href="/politics/b-story">B</a>`,
	}}
	siteConfig := newSite(t, "example", "https://news.example.com", "/news", "/politics")

	pauses := 0
	d := NewDiscoverer(nil, time.Second, func(ctx context.Context, dur time.Duration) error {
		if dur != time.Second {
			t.Errorf("Expected pause of 1s, got %v", dur)
		}
		pauses++
		return nil
	})

	urls, _ := d.DiscoverAll(context.Background(), renderer, []*site.Config{siteConfig})
	if len(urls) != 2 {
		t.Errorf("Expected 2 URLs, got %d", len(urls))
	}
	if pauses != 1 {
		t.Errorf("Expected 1 pause between 2 listing pages, got %d", pauses)
	}
}

func TestResolveLink(t *testing.T) {
	base, _ := url.Parse("https://news.example.com/section/")
	tests := map[string]string{
		"story-1":                          "https://news.example.com/section/story-1",
		"/news/x/#frag":                    "https://news.example.com/news/x",
		"//news.example.com/2024/01/02/y/": "https://news.example.com/2024/01/02/y",
		"/":                                "https://news.example.com/",
	}
	for href, expected := range tests {
		u, ok := resolveLink(base, href)
		if !ok {
			t.Errorf("Expected '%s' to resolve", href)
			continue
		}
		if u.String() != expected {
			t.Errorf("Expected '%s' for '%s', got '%s'", expected, href, u.String())
		}
	}

	for _, href := range []string{"", "#x", "mailto:a@b.c", "JavaScript:alert(1)", "ftp://x/y"} {
		if _, ok := resolveLink(base, href); ok {
			t.Errorf("Expected '%s' to be rejected", href)
		}
	}
}
