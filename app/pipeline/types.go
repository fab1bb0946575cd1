package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/lysyi3m/news-comb/app/browser"
	"github.com/lysyi3m/news-comb/app/document"
	"github.com/lysyi3m/news-comb/app/enrich"
	"github.com/lysyi3m/news-comb/app/fault"
	"github.com/lysyi3m/news-comb/app/site"
	"github.com/lysyi3m/news-comb/app/store"
)

var (
	ErrAlreadyRunning = errors.New("pipeline is already running")
	ErrStopped        = errors.New("pipeline stopped by operator")
)

type Mode string

const (
	ModeFull  Mode = "full"
	ModeSites Mode = "sites"
)

// Result summarizes one run. Failed counts documents that were extracted
// but did not survive enrichment.
type Result struct {
	ID             string         `json:"id"`
	Mode           Mode           `json:"mode"`
	Sites          []string       `json:"sites,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	TotalProcessed int            `json:"total_processed"`
	Extracted      int            `json:"extracted"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	Fallback       int            `json:"fallback"`
	DurationMs     int64          `json:"duration_ms"`
	Errors         []*fault.Error `json:"errors"`
}

// Succeeded reports whether the run finished without a pipeline failure.
// Per-document faults do not fail a run.
func (r *Result) Succeeded() bool {
	for _, e := range r.Errors {
		if e.Kind == fault.KindPipeline {
			return false
		}
	}
	return true
}

func (r *Result) addErrors(errs ...*fault.Error) {
	for _, e := range errs {
		if e != nil {
			r.Errors = append(r.Errors, e)
		}
	}
}

type Discovery interface {
	DiscoverAll(ctx context.Context, r browser.Renderer, sites []*site.Config) ([]string, []*fault.Error)
	DiscoverSite(ctx context.Context, r browser.Renderer, siteConfig *site.Config) ([]string, []*fault.Error)
	Clear()
}

type Extraction interface {
	ExtractMany(ctx context.Context, r browser.Renderer, urls []string) ([]document.Raw, []*fault.Error)
}

type Enrichment interface {
	Enrich(ctx context.Context, raws []document.Raw) enrich.Result
}

type FallbackEnrichment interface {
	EnrichAll(raws []document.Raw) []document.Enriched
}

type Sites interface {
	GetEnabledConfigs() []*site.Config
	Select(names []string) ([]*site.Config, []string)
}

type DocumentStore interface {
	PutAll(docs []document.Enriched)
	Maintain(now time.Time) store.MaintenanceReport
}

// RunRecorder persists finished runs.
type RunRecorder interface {
	RecordRun(ctx context.Context, result *Result) error
}

type Options struct {
	Launcher  browser.Launcher
	Sites     Sites
	Discovery Discovery
	Extractor Extraction
	Enricher  Enrichment
	Fallback  FallbackEnrichment
	Store     DocumentStore
	Tracker   *fault.Tracker
	Recorder  RunRecorder
	MaxURLs   int
}
