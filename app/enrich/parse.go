package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// candidate is one rewritten article as returned by the model. Pointer
// fields distinguish missing values from empty ones.
type candidate struct {
	Index    *int      `json:"index"`
	Title    *string   `json:"title"`
	Body     *string   `json:"body"`
	Summary  *string   `json:"summary"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
}

var errNoJSON = errors.New("no JSON found in model output")

// extractJSON isolates the JSON array or object in free-form text. A fenced
// block wins over the surrounding prose. Otherwise the object and array
// spans are tried in the order they start and the first valid one is used.
func extractJSON(text string) (string, error) {
	if fenced, ok := fencedBlock(text); ok {
		if payload, ok := validSpan(fenced); ok {
			return payload, nil
		}
	}
	if payload, ok := validSpan(text); ok {
		return payload, nil
	}
	return "", errNoJSON
}

// fencedBlock returns the contents of the first ``` block, without its
// language tag.
func fencedBlock(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	rest := text[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "[{") {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest), true
}

func validSpan(text string) (string, bool) {
	spans := []string{span(text, '{', '}'), span(text, '[', ']')}
	objStart, arrStart := strings.IndexByte(text, '{'), strings.IndexByte(text, '[')
	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		spans[0], spans[1] = spans[1], spans[0]
	}

	for _, candidate := range spans {
		if candidate != "" && json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// span runs from the first opening delimiter to the last closing one.
func span(text string, opening, closing byte) string {
	start := strings.IndexByte(text, opening)
	end := strings.LastIndexByte(text, closing)
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// parseBatch splits model output into raw candidate objects.
func parseBatch(text string) ([]json.RawMessage, error) {
	payload, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	if payload[0] == '{' {
		return []json.RawMessage{json.RawMessage(payload)}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}
	return items, nil
}

// parseSingle decodes a single-article response.
func parseSingle(text string) (*candidate, error) {
	payload, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	if payload[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(payload), &items); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if len(items) != 1 {
			return nil, fmt.Errorf("expected one article, got %d", len(items))
		}
		return decodeCandidate(items[0])
	}
	return decodeCandidate(json.RawMessage(payload))
}

// decodeCandidate rejects objects with missing or mistyped required fields.
func decodeCandidate(raw json.RawMessage) (*candidate, error) {
	var c candidate
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("malformed article object: %w", err)
	}

	required := map[string]bool{
		"title":    c.Title != nil,
		"body":     c.Body != nil,
		"summary":  c.Summary != nil,
		"category": c.Category != nil,
		"tags":     c.Tags != nil,
	}
	for _, field := range []string{"title", "body", "summary", "category", "tags"} {
		if !required[field] {
			return nil, fmt.Errorf("missing field %q", field)
		}
	}
	return &c, nil
}

// candidateIndex reads only the index of an object that may otherwise be
// malformed.
func candidateIndex(raw json.RawMessage) (int, bool) {
	var probe struct {
		Index *int `json:"index"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Index == nil {
		return 0, false
	}
	return *probe.Index, true
}
