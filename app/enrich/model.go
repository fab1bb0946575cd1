package enrich

import (
	"context"
	"time"
)

type Status int

const (
	StatusOK Status = iota
	StatusRateLimited
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRateLimited:
		return "rate_limited"
	default:
		return "failed"
	}
}

// Outcome is the result of one model call. RetryAfter carries the
// server-suggested delay for rate-limited calls, zero when none was given.
type Outcome struct {
	Status     Status
	Text       string
	RetryAfter time.Duration
	Err        error
}

// Model is a generative text service.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) Outcome
}
