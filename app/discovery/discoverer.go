package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/news-comb/app/browser"
	"github.com/lysyi3m/news-comb/app/fault"
	"github.com/lysyi3m/news-comb/app/site"
	"github.com/lysyi3m/news-comb/app/workpool"
)

// ErrSelectorMismatch is returned when a listing page renders but the
// site's link selector finds nothing on it.
var ErrSelectorMismatch = errors.New("link selector matched nothing")

// FeedFetcher downloads raw feed documents.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Discoverer harvests article URLs from site listing pages and feeds. URLs
// it has returned are never returned again until Clear.
type Discoverer struct {
	feeds        FeedFetcher
	gofeedParser *gofeed.Parser
	pause        time.Duration
	sleep        workpool.Sleeper
	seen         map[string]struct{}
	mu           sync.Mutex
}

func NewDiscoverer(feeds FeedFetcher, pause time.Duration, sleep workpool.Sleeper) *Discoverer {
	if sleep == nil {
		sleep = workpool.Sleep
	}
	return &Discoverer{
		feeds:        feeds,
		gofeedParser: gofeed.NewParser(),
		pause:        pause,
		sleep:        sleep,
		seen:         make(map[string]struct{}),
	}
}

// DiscoverAll visits every site in order. Failures are collected per site
// and never stop the remaining sites.
func (d *Discoverer) DiscoverAll(ctx context.Context, r browser.Renderer, sites []*site.Config) ([]string, []*fault.Error) {
	var urls []string
	var errs []*fault.Error

	for _, siteConfig := range sites {
		if ctx.Err() != nil {
			break
		}
		found, siteErrs := d.DiscoverSite(ctx, r, siteConfig)
		urls = append(urls, found...)
		errs = append(errs, siteErrs...)
	}

	slog.Info("Discovery completed", "sites", len(sites), "urls", len(urls), "errors", len(errs))
	return urls, errs
}

func (d *Discoverer) DiscoverSite(ctx context.Context, r browser.Renderer, siteConfig *site.Config) ([]string, []*fault.Error) {
	var urls []string
	var errs []*fault.Error
	visited := 0

	for _, path := range siteConfig.ListingPaths {
		if visited > 0 {
			if err := d.sleep(ctx, d.pause); err != nil {
				return urls, errs
			}
		}
		visited++

		listingURL, err := siteConfig.ResolvePath(path)
		if err != nil {
			errs = append(errs, fault.Parsing(path, err, "invalid listing path").With("site", siteConfig.Name))
			continue
		}

		found, err := d.discoverListing(ctx, r, siteConfig, listingURL)
		if err != nil {
			slog.Warn("Listing page failed", "site", siteConfig.Name, "url", listingURL, "error", err)
			errs = append(errs, fault.Network(listingURL, err, "failed to discover listing page").With("site", siteConfig.Name))
			continue
		}
		urls = append(urls, found...)
	}

	for _, path := range siteConfig.FeedPaths {
		if d.feeds == nil {
			break
		}
		if visited > 0 {
			if err := d.sleep(ctx, d.pause); err != nil {
				return urls, errs
			}
		}
		visited++

		feedURL, err := siteConfig.ResolvePath(path)
		if err != nil {
			errs = append(errs, fault.Parsing(path, err, "invalid feed path").With("site", siteConfig.Name))
			continue
		}

		found, err := d.discoverFeed(ctx, siteConfig, feedURL)
		if err != nil {
			slog.Warn("Feed failed", "site", siteConfig.Name, "url", feedURL, "error", err)
			errs = append(errs, fault.Network(feedURL, err, "failed to discover feed").With("site", siteConfig.Name))
			continue
		}
		urls = append(urls, found...)
	}

	slog.Debug("Site discovered", "site", siteConfig.Name, "urls", len(urls), "errors", len(errs))
	return urls, errs
}

func (d *Discoverer) discoverListing(ctx context.Context, r browser.Renderer, siteConfig *site.Config, listingURL string) ([]string, error) {
	pageURL, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listing URL: %w", err)
	}

	html, err := r.Render(ctx, listingURL, siteConfig.WaitSelector)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing HTML: %w", err)
	}

	links := doc.Find(siteConfig.Selectors.Link)
	if links.Length() == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSelectorMismatch, siteConfig.Selectors.Link)
	}

	var urls []string
	links.Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			href, ok = s.Find("a[href]").First().Attr("href")
		}
		if !ok {
			return
		}

		u, ok := resolveLink(pageURL, href)
		if !ok || !acceptArticle(siteConfig, u) {
			return
		}

		if d.markIfNotSeen(u.String()) {
			urls = append(urls, u.String())
		}
	})

	return urls, nil
}

func (d *Discoverer) discoverFeed(ctx context.Context, siteConfig *site.Config, feedURL string) ([]string, error) {
	pageURL, err := url.Parse(feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}

	data, err := d.feeds.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := d.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var urls []string
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		u, ok := resolveLink(pageURL, item.Link)
		if !ok || !acceptFeedItem(siteConfig, u) {
			continue
		}
		if d.markIfNotSeen(u.String()) {
			urls = append(urls, u.String())
		}
	}

	return urls, nil
}

func (d *Discoverer) markIfNotSeen(u string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[u]; ok {
		return false
	}
	d.seen[u] = struct{}{}
	return true
}

// Clear forgets every URL returned so far.
func (d *Discoverer) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]struct{})
}

func (d *Discoverer) Seen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
