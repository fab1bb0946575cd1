package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/news-comb/app/browser"
	"github.com/lysyi3m/news-comb/app/document"
	"github.com/lysyi3m/news-comb/app/fault"
	"github.com/lysyi3m/news-comb/app/site"
)

// Orchestrator runs discovery, extraction, enrichment and storage as one
// exclusive run. Only the orchestrator opens and closes the browser.
type Orchestrator struct {
	launcher  browser.Launcher
	sites     Sites
	discovery Discovery
	extractor Extraction
	enricher  Enrichment
	fallback  FallbackEnrichment
	store     DocumentStore
	tracker   *fault.Tracker
	recorder  RunRecorder
	maxURLs   int
	now       func() time.Time

	current *run
	last    *Result
	mu      sync.Mutex
}

// run holds the state of one invocation. cleanup may be reached from the
// run itself and from EmergencyStop, so it is guarded by once.
type run struct {
	id      string
	mode    Mode
	sites   []string
	stopped atomic.Bool
	browser browser.Browser
	closed  bool
	once    sync.Once
	mu      sync.Mutex
}

func NewOrchestrator(opts Options) *Orchestrator {
	tracker := opts.Tracker
	if tracker == nil {
		tracker = fault.NewTracker(0)
	}
	return &Orchestrator{
		launcher:  opts.Launcher,
		sites:     opts.Sites,
		discovery: opts.Discovery,
		extractor: opts.Extractor,
		enricher:  opts.Enricher,
		fallback:  opts.Fallback,
		store:     opts.Store,
		tracker:   tracker,
		recorder:  opts.Recorder,
		maxURLs:   opts.MaxURLs,
		now:       time.Now,
	}
}

// RunOnce processes every enabled site. It fails fast with ErrAlreadyRunning
// when another run is active; every other failure is reported in the result.
func (o *Orchestrator) RunOnce(ctx context.Context) (*Result, error) {
	r, err := o.begin(ModeFull, nil)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, r), nil
}

// RunForSites processes the named sites only. A failing site does not stop
// the others.
func (o *Orchestrator) RunForSites(ctx context.Context, names []string) (*Result, error) {
	r, err := o.begin(ModeSites, names)
	if err != nil {
		return nil, err
	}
	return o.execute(ctx, r), nil
}

// Start reserves the run slot and executes the run in the background.
// An empty names list means a full run.
func (o *Orchestrator) Start(ctx context.Context, names []string) (string, error) {
	mode := ModeFull
	if len(names) > 0 {
		mode = ModeSites
	}
	r, err := o.begin(mode, names)
	if err != nil {
		return "", err
	}
	go o.execute(context.WithoutCancel(ctx), r)
	return r.id, nil
}

// EmergencyStop marks the active run as stopped and releases its resources
// without waiting for the current stage. It reports false when nothing runs.
func (o *Orchestrator) EmergencyStop() bool {
	o.mu.Lock()
	r := o.current
	o.current = nil
	o.mu.Unlock()

	if r == nil {
		return false
	}

	slog.Warn("Emergency stop requested", "run_id", r.id)
	r.stopped.Store(true)
	o.cleanup(r)
	return true
}

func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current != nil
}

// ErrorRateHigh reports whether recent faults crossed the tracker threshold.
func (o *Orchestrator) ErrorRateHigh() bool {
	return o.tracker.RateHigh(o.now())
}

func (o *Orchestrator) ErrorCounts() map[fault.Kind]int {
	return o.tracker.ByKind(o.now())
}

func (o *Orchestrator) LastResult() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *Orchestrator) begin(mode Mode, names []string) (*run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != nil {
		slog.Warn("Pipeline run rejected", "reason", "already running", "active_run", o.current.id)
		return nil, ErrAlreadyRunning
	}

	r := &run{id: uuid.New().String(), mode: mode, sites: names}
	o.current = r
	return r, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run) *Result {
	started := o.now()
	result := &Result{
		ID:        r.id,
		Mode:      r.mode,
		Sites:     r.sites,
		StartedAt: started,
		Errors:    []*fault.Error{},
	}

	slog.Info("Pipeline run started", "run_id", r.id, "mode", r.mode, "sites", r.sites)

	func() {
		defer func() {
			if p := recover(); p != nil {
				slog.Error("Pipeline run panicked", "run_id", r.id, "panic", p, "stack", string(debug.Stack()))
				result.addErrors(fault.Pipeline(fmt.Errorf("panic: %v", p), "pipeline run panicked"))
			}
		}()
		o.process(ctx, r, result)
	}()

	o.cleanup(r)
	result.DurationMs = o.now().Sub(started).Milliseconds()
	o.finish(ctx, r, result)
	return result
}

func (o *Orchestrator) process(ctx context.Context, r *run, result *Result) {
	b, err := o.launcher(ctx)
	if err != nil {
		slog.Error("Failed to launch browser", "run_id", r.id, "error", err)
		result.addErrors(fault.Pipeline(err, "failed to launch browser"))
		return
	}
	if !r.attach(b) {
		o.halt(r, result)
		return
	}

	var raws []document.Raw
	if r.mode == ModeSites {
		raws = o.collectSites(ctx, r, b, result)
	} else {
		raws = o.collectAll(ctx, r, b, result)
	}
	if result.TotalProcessed == 0 {
		slog.Info("No URLs discovered, ending run early", "run_id", r.id)
		return
	}
	result.Extracted = len(raws)
	if o.halt(r, result) {
		return
	}

	var docs []document.Enriched
	if len(raws) > 0 {
		enriched := o.enricher.Enrich(ctx, raws)
		result.addErrors(enriched.Errors...)
		docs = enriched.Documents

		if len(enriched.Unenriched) > 0 {
			slog.Warn("Model unavailable, using rule-based enrichment", "run_id", r.id, "documents", len(enriched.Unenriched))
			fallbackDocs := o.fallback.EnrichAll(enriched.Unenriched)
			result.Fallback = len(fallbackDocs)
			docs = append(docs, fallbackDocs...)
		}
	}
	result.Successful = len(docs)
	result.Failed = result.Extracted - result.Successful
	if o.halt(r, result) {
		return
	}

	o.store.PutAll(docs)
	o.store.Maintain(o.now())
}

// collectAll discovers across all enabled sites and then extracts the
// capped URL list in one pass.
func (o *Orchestrator) collectAll(ctx context.Context, r *run, b browser.Renderer, result *Result) []document.Raw {
	urls, errs := o.discovery.DiscoverAll(ctx, b, o.sites.GetEnabledConfigs())
	result.addErrors(errs...)

	urls = o.capURLs(urls, 0)
	result.TotalProcessed = len(urls)
	if len(urls) == 0 || o.halt(r, result) {
		return nil
	}

	raws, errs := o.extractor.ExtractMany(ctx, b, urls)
	result.addErrors(errs...)
	return raws
}

// collectSites runs discovery and extraction site by site. A panic in one
// site is recorded against that site only.
func (o *Orchestrator) collectSites(ctx context.Context, r *run, b browser.Renderer, result *Result) []document.Raw {
	configs, unknown := o.sites.Select(r.sites)
	for _, name := range unknown {
		result.addErrors(fault.Validation("", "unknown site").With("site", name))
	}

	var raws []document.Raw
	for _, siteConfig := range configs {
		if o.halt(r, result) || ctx.Err() != nil {
			break
		}
		if o.maxURLs > 0 && result.TotalProcessed >= o.maxURLs {
			slog.Info("URL cap reached, skipping remaining sites", "run_id", r.id, "max_urls", o.maxURLs)
			break
		}
		found, discovered := o.collectSite(ctx, b, siteConfig, result)
		result.TotalProcessed += discovered
		raws = append(raws, found...)
	}
	return raws
}

func (o *Orchestrator) collectSite(ctx context.Context, b browser.Renderer, siteConfig *site.Config, result *Result) (raws []document.Raw, discovered int) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Site processing panicked", "site", siteConfig.Name, "panic", p)
			result.addErrors(fault.Parsing(siteConfig.BaseURL, fmt.Errorf("panic: %v", p), "site processing failed").With("site", siteConfig.Name))
			raws = nil
		}
	}()

	urls, errs := o.discovery.DiscoverSite(ctx, b, siteConfig)
	result.addErrors(errs...)

	urls = o.capURLs(urls, result.TotalProcessed)
	discovered = len(urls)
	if discovered == 0 {
		return nil, 0
	}

	raws, errs = o.extractor.ExtractMany(ctx, b, urls)
	result.addErrors(errs...)
	slog.Info("Site processed", "site", siteConfig.Name, "urls", discovered, "documents", len(raws))
	return raws, discovered
}

func (o *Orchestrator) capURLs(urls []string, used int) []string {
	if o.maxURLs <= 0 {
		return urls
	}
	remaining := max(o.maxURLs-used, 0)
	if len(urls) > remaining {
		slog.Debug("Discovered URLs capped", "discovered", len(urls), "kept", remaining)
		return urls[:remaining]
	}
	return urls
}

// halt reports whether the run was stopped, recording the stop once.
func (o *Orchestrator) halt(r *run, result *Result) bool {
	if !r.stopped.Load() {
		return false
	}
	for _, e := range result.Errors {
		if errors.Is(e, ErrStopped) {
			return true
		}
	}
	result.addErrors(fault.Pipeline(ErrStopped, "run stopped before completion"))
	return true
}

func (o *Orchestrator) cleanup(r *run) {
	r.once.Do(func() {
		o.discovery.Clear()
		r.release()
	})
}

func (o *Orchestrator) finish(ctx context.Context, r *run, result *Result) {
	o.tracker.Record(result.Errors...)

	o.mu.Lock()
	if o.current == r {
		o.current = nil
	}
	o.last = result
	o.mu.Unlock()

	if o.recorder != nil {
		if err := o.recorder.RecordRun(context.WithoutCancel(ctx), result); err != nil {
			slog.Error("Failed to record run", "run_id", r.id, "error", err)
		}
	}

	slog.Info("Pipeline run finished",
		"run_id", r.id,
		"succeeded", result.Succeeded(),
		"total_processed", result.TotalProcessed,
		"successful", result.Successful,
		"failed", result.Failed,
		"fallback", result.Fallback,
		"errors", len(result.Errors),
		"duration_ms", result.DurationMs)
}

// attach stores the browser unless the run was already released, in which
// case the browser is closed right away.
func (r *run) attach(b browser.Browser) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		if err := b.Close(); err != nil {
			slog.Warn("Failed to close browser", "run_id", r.id, "error", err)
		}
		return false
	}
	r.browser = b
	return true
}

func (r *run) release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	if r.browser == nil {
		return
	}
	if err := r.browser.Close(); err != nil {
		slog.Warn("Failed to close browser", "run_id", r.id, "error", err)
	}
	r.browser = nil
}
