package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/news-comb/app/document"
	"github.com/lysyi3m/news-comb/app/fault"
	"github.com/lysyi3m/news-comb/app/workpool"
)

// ErrModelUnavailable marks calls abandoned after rate limiting outlasted
// every retry.
var ErrModelUnavailable = errors.New("generative model quota exhausted")

type Options struct {
	BatchSize   int
	BatchPause  time.Duration
	MaxAttempts int
	Policy      fault.Policy
	Sleep       workpool.Sleeper
}

type Enricher struct {
	model       Model
	batchSize   int
	pause       time.Duration
	maxAttempts int
	policy      fault.Policy
	sleep       workpool.Sleeper
	now         func() time.Time
	newID       func() string
}

// Result of one Enrich call. Unenriched holds documents that were never
// processed because the model ran out of quota.
type Result struct {
	Documents      []document.Enriched
	Unenriched     []document.Raw
	QuotaExhausted bool
	Errors         []*fault.Error
}

func NewEnricher(model Model, opts Options) *Enricher {
	if opts.BatchSize < 1 {
		opts.BatchSize = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Sleep == nil {
		opts.Sleep = workpool.Sleep
	}
	if opts.Policy.EnrichmentBase == 0 {
		jitter := opts.Policy.Jitter
		opts.Policy = fault.DefaultPolicy()
		opts.Policy.Jitter = jitter
	}

	return &Enricher{
		model:       model,
		batchSize:   opts.BatchSize,
		pause:       opts.BatchPause,
		maxAttempts: opts.MaxAttempts,
		policy:      opts.Policy,
		sleep:       opts.Sleep,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// Enrich rewrites documents batch by batch. Documents whose rewrite fails
// are dropped and reported; none are fabricated.
func (e *Enricher) Enrich(ctx context.Context, raws []document.Raw) Result {
	var result Result

	for i, batch := range workpool.Batches(raws, e.batchSize) {
		if result.QuotaExhausted || ctx.Err() != nil {
			result.Unenriched = append(result.Unenriched, batch...)
			continue
		}
		if i > 0 {
			if err := e.sleep(ctx, e.pause); err != nil {
				result.Unenriched = append(result.Unenriched, batch...)
				continue
			}
		}
		e.enrichBatch(ctx, batch, &result)
	}

	if !result.QuotaExhausted && ctx.Err() != nil {
		for _, raw := range result.Unenriched {
			result.Errors = append(result.Errors, fault.Enrichment(raw.URL, ctx.Err(), "enrichment interrupted"))
		}
		result.Unenriched = nil
	}

	slog.Info("Enrichment completed",
		"model", e.model.Name(),
		"documents", len(raws),
		"enriched", len(result.Documents),
		"unenriched", len(result.Unenriched),
		"quota_exhausted", result.QuotaExhausted,
		"errors", len(result.Errors))

	return result
}

func (e *Enricher) enrichBatch(ctx context.Context, batch []document.Raw, result *Result) {
	pending := batch

	outcome := e.call(ctx, BatchPrompt(batch))
	if outcome.Status == StatusOK {
		items, err := parseBatch(outcome.Text)
		if err != nil {
			slog.Warn("Batch response unparseable, falling back to single documents", "documents", len(batch), "error", err)
		} else {
			pending = e.applyBatch(batch, items, result)
		}
	} else {
		slog.Warn("Batch call failed, falling back to single documents", "documents", len(batch), "status", outcome.Status.String(), "error", outcome.Err)
	}

	for _, raw := range pending {
		if result.QuotaExhausted {
			result.Unenriched = append(result.Unenriched, raw)
			continue
		}
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fault.Enrichment(raw.URL, ctx.Err(), "enrichment interrupted"))
			continue
		}
		e.enrichSingle(ctx, raw, result)
	}
}

// applyBatch matches response objects to sources and returns the sources
// that got no object back.
func (e *Enricher) applyBatch(batch []document.Raw, items []json.RawMessage, result *Result) []document.Raw {
	handled := make([]bool, len(batch))
	next := 0

	for _, item := range items {
		idx, ok := candidateIndex(item)
		if !ok || idx < 0 || idx >= len(batch) || handled[idx] {
			for next < len(batch) && handled[next] {
				next++
			}
			if next >= len(batch) {
				break
			}
			idx = next
		}
		handled[idx] = true

		raw := batch[idx]
		c, err := decodeCandidate(item)
		if err != nil {
			result.Errors = append(result.Errors, fault.Parsing(raw.URL, err, "rewrite rejected"))
			continue
		}

		doc, ferr := accept(raw, c, e.model.Name(), BatchConfidence, e.newID(), e.now())
		if ferr != nil {
			result.Errors = append(result.Errors, ferr)
			continue
		}
		result.Documents = append(result.Documents, *doc)
	}

	var missing []document.Raw
	for i, raw := range batch {
		if !handled[i] {
			missing = append(missing, raw)
		}
	}
	return missing
}

func (e *Enricher) enrichSingle(ctx context.Context, raw document.Raw, result *Result) {
	outcome := e.call(ctx, SinglePrompt(raw))
	switch outcome.Status {
	case StatusOK:
	case StatusRateLimited:
		e.exhaust(outcome, result)
		result.Unenriched = append(result.Unenriched, raw)
		return
	default:
		result.Errors = append(result.Errors, fault.Enrichment(raw.URL, outcome.Err, "model call failed"))
		return
	}

	c, err := parseSingle(outcome.Text)
	if err != nil {
		result.Errors = append(result.Errors, fault.Parsing(raw.URL, err, "rewrite rejected"))
		return
	}

	doc, ferr := accept(raw, c, e.model.Name(), SingleConfidence, e.newID(), e.now())
	if ferr != nil {
		result.Errors = append(result.Errors, ferr)
		return
	}
	result.Documents = append(result.Documents, *doc)
}

// call retries rate-limited calls only. A RateLimited outcome means the
// rate limit outlasted every attempt.
func (e *Enricher) call(ctx context.Context, prompt string) Outcome {
	var outcome Outcome
	for attempt := 0; attempt < e.maxAttempts; attempt++ {
		outcome = e.model.Generate(ctx, prompt)
		if outcome.Status != StatusRateLimited {
			return outcome
		}

		if attempt == e.maxAttempts-1 {
			break
		}

		delay := outcome.RetryAfter
		if delay <= 0 {
			delay = e.policy.Delay(fault.KindEnrichment, attempt)
		}
		slog.Warn("Model rate limited, backing off", "model", e.model.Name(), "attempt", attempt+1, "max_attempts", e.maxAttempts, "delay", delay.String())

		if err := e.sleep(ctx, delay); err != nil {
			return Outcome{Status: StatusFailed, Err: err}
		}
	}
	return outcome
}

// exhaust marks the model unusable for the rest of the run. Only a
// single-document call that stays rate limited gets here; a rate-limited
// batch still goes through the per-document path first.
func (e *Enricher) exhaust(outcome Outcome, result *Result) {
	if result.QuotaExhausted {
		return
	}
	slog.Error("Model quota exhausted", "model", e.model.Name(), "attempts", e.maxAttempts, "error", outcome.Err)
	result.QuotaExhausted = true
	result.Errors = append(result.Errors, fault.Enrichment("", errors.Join(ErrModelUnavailable, outcome.Err), "rate limit persisted after retries"))
}
