package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/lysyi3m/news-comb/app/browser"
	"github.com/lysyi3m/news-comb/app/document"
	"github.com/lysyi3m/news-comb/app/fault"
	"github.com/lysyi3m/news-comb/app/site"
	"github.com/lysyi3m/news-comb/app/workpool"
)

const (
	MinTitleChars = 10
	MinBodyChars  = 100
	MinBodyWords  = 50
)

type SiteResolver interface {
	ForURL(rawURL string) *site.Config
}

var _ SiteResolver = (*site.ConfigCache)(nil)

type Extractor struct {
	sites SiteResolver
	pool  *workpool.Pool
	now   func() time.Time
}

func NewExtractor(sites SiteResolver, concurrency int, cooldown time.Duration, sleep workpool.Sleeper) *Extractor {
	return &Extractor{
		sites: sites,
		pool:  workpool.New(concurrency, cooldown, sleep),
		now:   time.Now,
	}
}

// Extract renders and parses one article. It returns (nil, nil) when no site
// is configured for the URL.
func (e *Extractor) Extract(ctx context.Context, r browser.Renderer, pageURL string) (*document.Raw, error) {
	siteConfig := e.sites.ForURL(pageURL)
	if siteConfig == nil {
		slog.Debug("No site configuration for URL", "url", pageURL)
		return nil, nil
	}

	html, err := r.Render(ctx, pageURL, siteConfig.WaitSelector)
	if err != nil {
		return nil, fault.Network(pageURL, err, "failed to render article").With("site", siteConfig.Name)
	}

	return e.Parse(siteConfig, pageURL, html)
}

// Parse builds a raw document from rendered HTML and validates it.
func (e *Extractor) Parse(siteConfig *site.Config, pageURL, html string) (*document.Raw, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fault.Parsing(pageURL, err, "invalid article URL")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fault.Parsing(pageURL, err, "failed to parse article HTML").With("site", siteConfig.Name)
	}

	selectors := siteConfig.Selectors

	title := firstText(doc, selectors.Title)
	body := bodyText(doc, selectors.Content)
	author := firstText(doc, selectors.Author)

	if body == "" || title == "" || author == "" {
		if fallback, err := readableContent(html, u); err == nil {
			if body == "" {
				body = bodyText(doc, genericBodySelectors)
				if len(strings.Fields(body)) < MinBodyWords {
					body = document.Normalize(fallback.Text)
				}
			}
			if title == "" {
				title = document.Normalize(fallback.Title)
			}
			if author == "" {
				author = fallback.Byline
			}
		} else if body == "" {
			body = bodyText(doc, genericBodySelectors)
		}
	}

	if title == "" {
		title = firstText(doc, genericTitleSelectors)
	}
	if author == "" {
		author = firstText(doc, genericAuthorSelectors)
	}

	now := e.now()
	published, ok := publishDate(doc, selectors.Date)
	if !ok {
		published = now
	}

	category := string(document.InferCategory(pageURL))
	if label := firstText(doc, selectors.Category); label != "" {
		category = string(document.Standardize(label))
	}

	raw := &document.Raw{
		Title:       document.Truncate(title, MaxTitleRunes),
		Body:        document.Truncate(body, MaxBodyRunes),
		Author:      cleanAuthor(author),
		PublishDate: published,
		ImageURLs:   imageURLs(doc, u, selectors.Image),
		Category:    category,
		URL:         pageURL,
	}
	raw.Metadata = document.NewMetadata(pageURL, raw.Body, now)

	if err := Validate(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Validate applies the minimum size rules for extracted documents.
func Validate(raw *document.Raw) error {
	if utf8.RuneCountInString(raw.Title) < MinTitleChars {
		return fault.Validation(raw.URL, fmt.Sprintf("title shorter than %d characters", MinTitleChars))
	}
	if utf8.RuneCountInString(raw.Body) < MinBodyChars {
		return fault.Validation(raw.URL, fmt.Sprintf("body shorter than %d characters", MinBodyChars))
	}
	if document.WordCount(raw.Body) < MinBodyWords {
		return fault.Validation(raw.URL, fmt.Sprintf("body shorter than %d words", MinBodyWords))
	}
	return nil
}

// ExtractMany extracts URLs in fixed-size concurrent groups. Failed URLs are
// skipped and reported; the documents keep the input order.
func (e *Extractor) ExtractMany(ctx context.Context, r browser.Renderer, urls []string) ([]document.Raw, []*fault.Error) {
	results := make([]*document.Raw, len(urls))
	var errs []*fault.Error
	var mu sync.Mutex

	err := e.pool.Each(ctx, len(urls), func(ctx context.Context, i int) {
		raw, err := e.Extract(ctx, r, urls[i])
		if err != nil {
			fe := fault.As(err, fault.KindParsing, urls[i])
			slog.Debug("Article skipped", "url", urls[i], "kind", fe.Kind, "error", fe.Message)
			mu.Lock()
			errs = append(errs, fe)
			mu.Unlock()
			return
		}
		results[i] = raw
	})
	if err != nil {
		slog.Warn("Extraction interrupted", "error", err)
	}

	docs := make([]document.Raw, 0, len(urls))
	for _, raw := range results {
		if raw != nil {
			docs = append(docs, *raw)
		}
	}

	slog.Info("Extraction completed", "urls", len(urls), "documents", len(docs), "errors", len(errs))
	return docs, errs
}
