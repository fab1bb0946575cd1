package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/news-comb/app/fault"
	"github.com/lysyi3m/news-comb/app/site"
	"github.com/lysyi3m/news-comb/app/workpool"
)

var fixedNow = time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)

type mockRenderer struct {
	pages map[string]string
	mu    sync.Mutex
	calls int
}

func (m *mockRenderer) Render(ctx context.Context, pageURL string, waitSelector string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	html, ok := m.pages[pageURL]
	if !ok {
		return "", errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	return html, nil
}

func newCache(t *testing.T) *site.ConfigCache {
	t.Helper()
	cache := site.NewConfigCache("")
	err := cache.Add(&site.Config{
		Name:         "example",
		BaseURL:      "https://news.example.com",
		ListingPaths: []string{"/news"},
		Selectors: site.Selectors{
			Title:   []string{"h1.headline"},
			Content: []string{"div.article-body"},
			Author:  []string{".byline"},
			Date:    []string{"time.published"},
			Image:   []string{"figure img"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return cache
}

func newTestExtractor(t *testing.T) *Extractor {
	e := NewExtractor(newCache(t), 3, time.Second, workpool.NoSleep)
	e.now = func() time.Time { return fixedNow }
	return e
}

func paragraphs(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "<p>Paragraph %d explains how the city council debated the annual budget for schools, roads and parks.</p>\n", i)
	}
	return b.String()
}

func articleHTML(body string) string {
	return `<html><head>
<title>Council approves budget | Example News</title>
<meta property="og:image" content="https://cdn.example.com/og/budget.jpg">
</head><body>
<img src="/static/logo.png">
<h1 class="headline">Council approves record budget for schools</h1>
<span class="byline">By Jane Doe</span>
<time class="published" datetime="2024-05-01T10:30:00Z">May 1</time>
<figure><img src="/images/council.jpg"></figure>
<figure><img src="/images/council.jpg"></figure>
<figure><img src="/img/placeholder.gif" data-src="/images/vote.jpg"></figure>
<figure><img src="data:image/png;base64,AAAA"></figure>
<figure><img src="/images/avatar-jane.jpg"></figure>
<div class="article-body">` + body + `</div>
</body></html>`
}

func TestExtractor_ParseConfiguredSelectors(t *testing.T) {
	e := newTestExtractor(t)
	siteConfig, _ := newCache(t).GetConfig("example")

	raw, err := e.Parse(siteConfig, "https://news.example.com/politics/council-budget", articleHTML(paragraphs(4)))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if raw.Title != "Council approves record budget for schools" {
		t.Errorf("Unexpected title: '%s'", raw.Title)
	}
	if raw.Author != "Jane Doe" {
		t.Errorf("Expected author 'Jane Doe', got '%s'", raw.Author)
	}
	if !raw.PublishDate.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("Unexpected publish date: %v", raw.PublishDate)
	}
	if raw.Category != "Politics" {
		t.Errorf("Expected category 'Politics', got '%s'", raw.Category)
	}
	if strings.Count(raw.Body, "\n\n") != 3 {
		t.Errorf("Expected 4 paragraphs joined by blank lines, got body '%s'", raw.Body)
	}

	expectedImages := []string{
		"https://news.example.com/images/council.jpg",
		"https://news.example.com/images/vote.jpg",
		"https://cdn.example.com/og/budget.jpg",
	}
	if len(raw.ImageURLs) != len(expectedImages) {
		t.Fatalf("Expected %d images, got %d: %v", len(expectedImages), len(raw.ImageURLs), raw.ImageURLs)
	}
	for i := range expectedImages {
		if raw.ImageURLs[i] != expectedImages[i] {
			t.Errorf("Expected image %d '%s', got '%s'", i, expectedImages[i], raw.ImageURLs[i])
		}
	}

	if raw.Metadata.SourceURL != raw.URL || !raw.Metadata.DiscoveryTimestamp.Equal(fixedNow) {
		t.Error("Expected metadata source URL and discovery timestamp")
	}
	if raw.Metadata.WordCount != len(strings.Fields(raw.Body)) {
		t.Errorf("Expected word count %d, got %d", len(strings.Fields(raw.Body)), raw.Metadata.WordCount)
	}
}

func TestExtractor_ImageCap(t *testing.T) {
	e := newTestExtractor(t)
	siteConfig, _ := newCache(t).GetConfig("example")

	var figures strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&figures, `<figure><img src="/images/photo-%d.jpg"></figure>`, i)
	}
	html := `<html><body><h1 class="headline">A long enough headline here</h1>` + figures.String() +
		`<div class="article-body">` + paragraphs(4) + `</div></body></html>`

	raw, err := e.Parse(siteConfig, "https://news.example.com/news/photos", html)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw.ImageURLs) != MaxImages {
		t.Errorf("Expected %d images, got %d", MaxImages, len(raw.ImageURLs))
	}
	if raw.ImageURLs[0] != "https://news.example.com/images/photo-0.jpg" {
		t.Errorf("Expected page order to be kept, got '%s'", raw.ImageURLs[0])
	}
}

func TestExtractor_ShortBodyRejected(t *testing.T) {
	e := newTestExtractor(t)
	siteConfig, _ := newCache(t).GetConfig("example")

	html := articleHTML("<p>Only a few words here, nowhere near enough for an article body at all.</p>")
	raw, err := e.Parse(siteConfig, "https://news.example.com/news/short", html)
	if raw != nil {
		t.Error("Expected no document for short body")
	}

	var fe *fault.Error
	if !errors.As(err, &fe) || fe.Kind != fault.KindValidation {
		t.Fatalf("Expected validation fault, got %v", err)
	}
	if fe.Retryable {
		t.Error("Expected validation fault to be non-retryable")
	}
}

func TestExtractor_TitleTruncated(t *testing.T) {
	e := newTestExtractor(t)
	siteConfig, _ := newCache(t).GetConfig("example")

	longTitle := strings.Repeat("Headline ", 40)
	html := `<html><body><h1 class="headline">` + longTitle + `</h1><div class="article-body">` + paragraphs(4) + `</div></body></html>`

	raw, err := e.Parse(siteConfig, "https://news.example.com/news/long", html)
	if err != nil {
		t.Fatal(err)
	}
	if len([]rune(raw.Title)) > MaxTitleRunes {
		t.Errorf("Expected title capped at %d runes, got %d", MaxTitleRunes, len([]rune(raw.Title)))
	}
}

func TestExtractor_GenericFallback(t *testing.T) {
	e := newTestExtractor(t)
	siteConfig := &site.Config{Name: "bare", BaseURL: "https://bare.example.com", ListingPaths: []string{"/"}}

	html := `<html><head><title>Local library reopens after renovation</title></head><body>
<nav><a href="/">Home</a></nav>
<article><h1>Local library reopens after renovation</h1>` + paragraphs(5) + `</article>
<footer>Copyright</footer></body></html>`

	raw, err := e.Parse(siteConfig, "https://bare.example.com/2024/05/01/library", html)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(raw.Title, "Local library reopens") {
		t.Errorf("Expected fallback title, got '%s'", raw.Title)
	}
	if !strings.Contains(raw.Body, "city council debated") {
		t.Errorf("Expected fallback body text, got '%s'", raw.Body)
	}
	if !raw.PublishDate.Equal(fixedNow) {
		t.Errorf("Expected publish date to default to now, got %v", raw.PublishDate)
	}
	if raw.Category != "General" {
		t.Errorf("Expected category 'General', got '%s'", raw.Category)
	}
}

func TestExtractor_ExtractUnknownSite(t *testing.T) {
	e := newTestExtractor(t)
	renderer := &mockRenderer{}

	raw, err := e.Extract(context.Background(), renderer, "https://unknown.example.org/news/a")
	if raw != nil || err != nil {
		t.Errorf("Expected (nil, nil) for unknown site, got (%v, %v)", raw, err)
	}
	if renderer.calls != 0 {
		t.Errorf("Expected no render for unknown site, got %d", renderer.calls)
	}
}

func TestExtractor_ExtractRenderFailure(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract(context.Background(), &mockRenderer{}, "https://news.example.com/news/missing")
	var fe *fault.Error
	if !errors.As(err, &fe) || fe.Kind != fault.KindNetwork || !fe.Retryable {
		t.Errorf("Expected retryable network fault, got %v", err)
	}
}

func TestExtractor_ExtractMany(t *testing.T) {
	good := articleHTML(paragraphs(4))
	renderer := &mockRenderer{pages: map[string]string{
		"https://news.example.com/news/a": good,
		"https://news.example.com/news/b": articleHTML("<p>too short</p>"),
		"https://news.example.com/news/d": good,
		"https://news.example.com/news/e": good,
	}}

	pauses := 0
	e := NewExtractor(newCache(t), 3, 2*time.Second, func(ctx context.Context, d time.Duration) error {
		pauses++
		return nil
	})

	urls := []string{
		"https://news.example.com/news/a",
		"https://news.example.com/news/b",
		"https://news.example.com/news/c",
		"https://news.example.com/news/d",
		"https://other.example.org/news/x",
		"https://news.example.com/news/e",
	}

	docs, errs := e.ExtractMany(context.Background(), renderer, urls)

	if len(docs) != 3 {
		t.Fatalf("Expected 3 documents, got %d", len(docs))
	}
	if docs[0].URL != urls[0] || docs[1].URL != urls[3] || docs[2].URL != urls[5] {
		t.Errorf("Expected input order, got %s, %s, %s", docs[0].URL, docs[1].URL, docs[2].URL)
	}
	if len(errs) != 2 {
		t.Errorf("Expected 2 errors (validation + network), got %d", len(errs))
	}
	if pauses != 1 {
		t.Errorf("Expected 1 cooldown between 2 groups, got %d", pauses)
	}
}
