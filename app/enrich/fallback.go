package enrich

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lysyi3m/news-comb/app/document"
)

const (
	FallbackModel         = "fallback"
	FallbackConfidence    = 0.5
	minFallbackTags       = 2
	minSummarySentence    = 20
	summarySentences      = 2
	fallbackSummaryPrefix = 200
)

var tagVocabulary = map[document.Category][]string{
	document.CategoryPolitics:      {"politics", "government", "election", "parliament", "policy", "democracy", "law"},
	document.CategorySports:        {"sports", "football", "soccer", "cricket", "tennis", "basketball", "championship"},
	document.CategoryBusiness:      {"business", "economy", "markets", "finance", "trade", "investment", "jobs"},
	document.CategoryEntertainment: {"entertainment", "music", "film", "television", "celebrity", "culture", "arts"},
	document.CategoryGeneral:       {"news", "community", "world", "health", "science", "education", "weather"},
}

var defaultTags = map[document.Category][]string{
	document.CategoryPolitics:      {"politics", "news"},
	document.CategorySports:        {"sports", "news"},
	document.CategoryBusiness:      {"business", "news"},
	document.CategoryEntertainment: {"entertainment", "news"},
	document.CategoryGeneral:       {"news", "general"},
}

// Fallback produces deterministic enrichments when the model is unusable.
type Fallback struct {
	now   func() time.Time
	newID func() string
}

func NewFallback() *Fallback {
	return &Fallback{
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

func (f *Fallback) EnrichAll(raws []document.Raw) []document.Enriched {
	docs := make([]document.Enriched, 0, len(raws))
	for _, raw := range raws {
		docs = append(docs, f.Enrich(raw))
	}
	return docs
}

func (f *Fallback) Enrich(raw document.Raw) document.Enriched {
	category := fallbackCategory(raw)

	words := raw.Metadata.WordCount
	if words == 0 {
		words = document.WordCount(raw.Body)
	}

	return document.Enriched{
		ID:          f.newID(),
		Title:       raw.Title,
		Body:        raw.Body,
		Summary:     fallbackSummary(raw.Body),
		Author:      raw.Author,
		PublishDate: raw.PublishDate,
		ImageURLs:   append([]string{}, raw.ImageURLs...),
		Category:    category,
		Tags:        fallbackTags(category, raw.Title+" "+raw.Body),
		URL:         raw.URL,
		Metadata:    raw.Metadata,
		Enrichment: document.EnrichmentMetadata{
			Timestamp:         f.now(),
			ModelIdentifier:   FallbackModel,
			ConfidenceScore:   FallbackConfidence,
			OriginalWordCount: words,
			EnrichedWordCount: words,
		},
	}
}

func fallbackCategory(raw document.Raw) document.Category {
	if c, ok := document.ParseCategory(raw.Category); ok && c != document.CategoryGeneral {
		return c
	}
	return document.InferCategory(raw.URL, raw.Title, raw.Body)
}

// fallbackSummary takes the first two sentences long enough to carry meaning.
func fallbackSummary(body string) string {
	var picked []string
	for _, s := range document.Sentences(body) {
		if utf8.RuneCountInString(s) < minSummarySentence {
			continue
		}
		picked = append(picked, s)
		if len(picked) == summarySentences {
			break
		}
	}
	if len(picked) > 0 {
		return strings.Join(picked, " ")
	}

	normalized := document.Normalize(body)
	if utf8.RuneCountInString(normalized) <= fallbackSummaryPrefix {
		return normalized
	}
	return document.Truncate(normalized, fallbackSummaryPrefix) + "..."
}

func fallbackTags(category document.Category, text string) []string {
	words := document.WordSet(text)

	var tags []string
	seen := make(map[string]bool)
	for _, tag := range tagVocabulary[category] {
		if _, ok := words[tag]; ok {
			tags = append(tags, tag)
			seen[tag] = true
		}
	}
	for _, tag := range defaultTags[category] {
		if len(tags) >= minFallbackTags {
			break
		}
		if !seen[tag] {
			tags = append(tags, tag)
			seen[tag] = true
		}
	}
	return tags
}
