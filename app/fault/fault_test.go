package fault

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func noJitter(time.Duration) time.Duration { return 0 }

func TestKind_Retryable(t *testing.T) {
	tests := map[Kind]bool{
		KindNetwork:    true,
		KindEnrichment: true,
		KindParsing:    false,
		KindValidation: false,
		KindPipeline:   false,
	}

	for kind, expected := range tests {
		if kind.Retryable() != expected {
			t.Errorf("Expected %s retryable=%t, got %t", kind, expected, kind.Retryable())
		}
		if New(kind, "", nil, "x").Retryable != expected {
			t.Errorf("Expected constructed %s error retryable=%t", kind, expected)
		}
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Network("https://example.com/a", cause, "failed to render page").With("site", "example")

	msg := err.Error()
	if !strings.Contains(msg, "network") || !strings.Contains(msg, "https://example.com/a") || !strings.Contains(msg, "connection reset") {
		t.Errorf("Unexpected error message: %s", msg)
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to unwrap to its cause")
	}
	if err.Context["site"] != "example" {
		t.Errorf("Expected context site 'example', got '%s'", err.Context["site"])
	}
}

func TestAs(t *testing.T) {
	original := Parsing("u", nil, "bad html")
	wrapped := fmt.Errorf("stage failed: %w", original)

	if got := As(wrapped, KindNetwork, "u"); got != original {
		t.Error("Expected As to find the wrapped fault")
	}

	got := As(errors.New("plain"), KindNetwork, "u2")
	if got.Kind != KindNetwork || got.URL != "u2" {
		t.Errorf("Expected fallback network fault for u2, got %s %s", got.Kind, got.URL)
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := DefaultPolicy()
	p.Jitter = noJitter

	tests := []struct {
		kind     Kind
		attempt  int
		expected time.Duration
	}{
		{KindNetwork, 0, 1 * time.Second},
		{KindNetwork, 1, 2 * time.Second},
		{KindNetwork, 3, 8 * time.Second},
		{KindEnrichment, 0, 2 * time.Second},
		{KindEnrichment, 2, 8 * time.Second},
		{KindEnrichment, 4, 30 * time.Second},
		{KindNetwork, 40, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.kind, tt.attempt); got != tt.expected {
			t.Errorf("Expected %v for %s attempt %d, got %v", tt.expected, tt.kind, tt.attempt, got)
		}
	}
}

func TestPolicy_DelayJitterBounded(t *testing.T) {
	p := DefaultPolicy()
	for i := 0; i < 100; i++ {
		d := p.Delay(KindNetwork, 1)
		if d < 2*time.Second || d >= 3*time.Second {
			t.Fatalf("Expected delay in [2s, 3s), got %v", d)
		}
	}
	if d := Backoff(KindEnrichment, 10); d != DefaultCap {
		t.Errorf("Expected capped delay %v, got %v", DefaultCap, d)
	}
}

func TestTracker_RollingWindow(t *testing.T) {
	tracker := NewTracker(3)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	old := Network("a", nil, "old")
	old.Timestamp = now.Add(-2 * time.Hour)
	recent1 := Enrichment("b", nil, "recent")
	recent1.Timestamp = now.Add(-10 * time.Minute)
	recent2 := Validation("c", "recent")
	recent2.Timestamp = now.Add(-5 * time.Minute)

	tracker.Record(old, recent1, nil, recent2)

	if count := tracker.Count(now); count != 2 {
		t.Errorf("Expected 2 errors in window, got %d", count)
	}
	if tracker.RateHigh(now) {
		t.Error("Expected rate not to be high with 2 of 3")
	}

	byKind := tracker.ByKind(now)
	if byKind[KindEnrichment] != 1 || byKind[KindValidation] != 1 || byKind[KindNetwork] != 0 {
		t.Errorf("Unexpected counts by kind: %v", byKind)
	}

	recent3 := Network("d", nil, "recent")
	recent3.Timestamp = now
	tracker.Record(recent3)
	if !tracker.RateHigh(now) {
		t.Error("Expected rate to be high at threshold")
	}

	if tracker.RateHigh(now.Add(2 * time.Hour)) {
		t.Error("Expected rate to drop once entries leave the window")
	}
}

func TestTracker_DisabledThreshold(t *testing.T) {
	tracker := NewTracker(0)
	tracker.Record(Network("a", nil, "x"))
	if tracker.RateHigh(time.Now()) {
		t.Error("Expected disabled threshold to never report high rate")
	}
}
