package document

import (
	"testing"
	"time"
)

func TestNormalize(t *testing.T) {
	got := Normalize("  Breaking\n\tnews  ｆｕｌｌwidth ")
	if got != "Breaking news fullwidth" {
		t.Errorf("Expected 'Breaking news fullwidth', got '%s'", got)
	}
}

func TestWords(t *testing.T) {
	words := Words("Senate Passes Budget, 52-48!")
	expected := []string{"senate", "passes", "budget", "52", "48"}
	if len(words) != len(expected) {
		t.Fatalf("Expected %d words, got %d (%v)", len(expected), len(words), words)
	}
	for i := range expected {
		if words[i] != expected[i] {
			t.Errorf("Expected word %d to be '%s', got '%s'", i, expected[i], words[i])
		}
	}

	set := WordSet("the cat and the hat")
	if len(set) != 4 {
		t.Errorf("Expected 4 distinct words, got %d", len(set))
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo world", 5); got != "héllo" {
		t.Errorf("Expected 'héllo', got '%s'", got)
	}
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("Expected 'short', got '%s'", got)
	}
	if got := Truncate("x", 0); got != "" {
		t.Errorf("Expected empty string, got '%s'", got)
	}
}

func TestParseCategory(t *testing.T) {
	tests := map[string]Category{
		"politics":      CategoryPolitics,
		"SPORTS":        CategorySports,
		" Business ":    CategoryBusiness,
		"entertainment": CategoryEntertainment,
		"general":       CategoryGeneral,
	}
	for label, expected := range tests {
		got, ok := ParseCategory(label)
		if !ok || got != expected {
			t.Errorf("Expected %s for '%s', got %s (ok=%t)", expected, label, got, ok)
		}
	}

	if _, ok := ParseCategory("Science"); ok {
		t.Error("Expected unknown category to be rejected")
	}
}

func TestSentences(t *testing.T) {
	sentences := Sentences("First one here. Second, with 3.5 percent growth! Third?")
	if len(sentences) != 3 {
		t.Fatalf("Expected 3 sentences, got %d: %v", len(sentences), sentences)
	}
	if sentences[1] != "Second, with 3.5 percent growth!" {
		t.Errorf("Unexpected second sentence: '%s'", sentences[1])
	}

	tail := Sentences("No terminator at all")
	if len(tail) != 1 || tail[0] != "No terminator at all" {
		t.Errorf("Expected unterminated text as one sentence, got %v", tail)
	}
}

func TestNewMetadata(t *testing.T) {
	now := time.Now()
	body := ""
	for i := 0; i < 401; i++ {
		body += "word "
	}

	meta := NewMetadata("https://example.com/a", body, now)
	if meta.WordCount != 401 {
		t.Errorf("Expected 401 words, got %d", meta.WordCount)
	}
	if meta.EstimatedReadMinutes != 3 {
		t.Errorf("Expected 3 minutes, got %d", meta.EstimatedReadMinutes)
	}
	if !meta.DiscoveryTimestamp.Equal(now) || meta.SourceURL != "https://example.com/a" {
		t.Error("Expected discovery timestamp and source URL to be set")
	}
	if ReadMinutes(0) != 1 {
		t.Errorf("Expected minimum of 1 minute, got %d", ReadMinutes(0))
	}
}
