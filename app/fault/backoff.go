package fault

import (
	"math/rand"
	"time"
)

const (
	DefaultNetworkBase    = 1 * time.Second
	DefaultEnrichmentBase = 2 * time.Second
	DefaultMaxJitter      = 1 * time.Second
	DefaultCap            = 30 * time.Second
)

// Policy computes min(base*2^attempt + jitter, cap).
type Policy struct {
	NetworkBase    time.Duration
	EnrichmentBase time.Duration
	MaxJitter      time.Duration
	Cap            time.Duration
	// Jitter returns a duration in [0, max). Defaults to math/rand.
	Jitter func(max time.Duration) time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		NetworkBase:    DefaultNetworkBase,
		EnrichmentBase: DefaultEnrichmentBase,
		MaxJitter:      DefaultMaxJitter,
		Cap:            DefaultCap,
	}
}

func (p Policy) Delay(kind Kind, attempt int) time.Duration {
	base := p.NetworkBase
	if kind == KindEnrichment {
		base = p.EnrichmentBase
	}
	if attempt < 0 {
		attempt = 0
	}

	delay := p.Cap
	if attempt < 30 {
		delay = base * time.Duration(1<<uint(attempt))
	}

	if p.MaxJitter > 0 {
		jitter := p.Jitter
		if jitter == nil {
			jitter = randomJitter
		}
		delay += jitter(p.MaxJitter)
	}

	if p.Cap > 0 && (delay > p.Cap || delay < 0) {
		delay = p.Cap
	}
	return delay
}

// Backoff is Delay under the default policy.
func Backoff(kind Kind, attempt int) time.Duration {
	return DefaultPolicy().Delay(kind, attempt)
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max)))
}
