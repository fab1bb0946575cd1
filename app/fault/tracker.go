package fault

import (
	"sync"
	"time"
)

const DefaultWindow = time.Hour

// Tracker keeps a rolling window of recorded faults.
type Tracker struct {
	window    time.Duration
	threshold int
	entries   []entry
	mu        sync.Mutex
}

type entry struct {
	at   time.Time
	kind Kind
}

func NewTracker(threshold int) *Tracker {
	return &Tracker{
		window:    DefaultWindow,
		threshold: threshold,
	}
}

func (t *Tracker) Record(errs ...*Error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range errs {
		if e == nil {
			continue
		}
		at := e.Timestamp
		if at.IsZero() {
			at = time.Now()
		}
		t.entries = append(t.entries, entry{at: at, kind: e.Kind})
	}
}

func (t *Tracker) Count(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(now)
	return len(t.entries)
}

func (t *Tracker) ByKind(now time.Time) map[Kind]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune(now)
	counts := make(map[Kind]int)
	for _, e := range t.entries {
		counts[e.kind]++
	}
	return counts
}

// RateHigh reports whether the faults inside the window reached the threshold.
// A non-positive threshold disables the check.
func (t *Tracker) RateHigh(now time.Time) bool {
	if t.threshold <= 0 {
		return false
	}
	return t.Count(now) >= t.threshold
}

func (t *Tracker) Threshold() int {
	return t.threshold
}

func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.window)
	keep := 0
	for _, e := range t.entries {
		if e.at.After(cutoff) {
			t.entries[keep] = e
			keep++
		}
	}
	t.entries = t.entries[:keep]
}
