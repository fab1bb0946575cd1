package enrich

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/news-comb/app/document"
	"github.com/lysyi3m/news-comb/app/fault"
)

const (
	MinTitleChars   = 10
	MinBodyChars    = 500
	MinBodyWords    = 200
	MinSummaryChars = 50
	MinTags         = 3
	MaxTags         = 7

	BatchConfidence  = 0.85
	SingleConfidence = 0.8
)

// accept validates a model candidate against its source and builds the
// enriched document. Image URLs always come from the source.
func accept(raw document.Raw, c *candidate, modelName string, confidence float64, id string, now time.Time) (*document.Enriched, *fault.Error) {
	title := document.Normalize(*c.Title)
	body := strings.TrimSpace(*c.Body)
	summary := document.Normalize(*c.Summary)
	label := strings.TrimSpace(*c.Category)
	tags := cleanTags(*c.Tags)

	var problem string
	switch {
	case utf8.RuneCountInString(title) < MinTitleChars:
		problem = fmt.Sprintf("title shorter than %d characters", MinTitleChars)
	case utf8.RuneCountInString(body) < MinBodyChars:
		problem = fmt.Sprintf("body shorter than %d characters", MinBodyChars)
	case document.WordCount(body) < MinBodyWords:
		problem = fmt.Sprintf("body shorter than %d words", MinBodyWords)
	case utf8.RuneCountInString(summary) < MinSummaryChars:
		problem = fmt.Sprintf("summary shorter than %d characters", MinSummaryChars)
	case label == "":
		problem = "category is empty"
	case len(tags) < MinTags:
		problem = fmt.Sprintf("fewer than %d tags", MinTags)
	}
	if problem != "" {
		return nil, fault.Validation(raw.URL, "rewrite rejected: "+problem)
	}

	originalWords := raw.Metadata.WordCount
	if originalWords == 0 {
		originalWords = document.WordCount(raw.Body)
	}

	return &document.Enriched{
		ID:          id,
		Title:       title,
		Body:        body,
		Summary:     summary,
		Author:      raw.Author,
		PublishDate: raw.PublishDate,
		ImageURLs:   append([]string{}, raw.ImageURLs...),
		Category:    document.Standardize(label),
		Tags:        tags,
		URL:         raw.URL,
		Metadata:    raw.Metadata,
		Enrichment: document.EnrichmentMetadata{
			Timestamp:         now,
			ModelIdentifier:   modelName,
			ConfidenceScore:   confidence,
			OriginalWordCount: originalWords,
			EnrichedWordCount: document.WordCount(body),
		},
	}, nil
}

func cleanTags(tags []string) []string {
	seen := make(map[string]bool)
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = document.Normalize(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		cleaned = append(cleaned, tag)
		if len(cleaned) == MaxTags {
			break
		}
	}
	return cleaned
}
