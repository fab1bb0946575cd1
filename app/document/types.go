package document

import "time"

type Category string

const (
	CategoryPolitics      Category = "Politics"
	CategorySports        Category = "Sports"
	CategoryBusiness      Category = "Business"
	CategoryEntertainment Category = "Entertainment"
	CategoryGeneral       Category = "General"
)

var Categories = []Category{
	CategoryPolitics,
	CategorySports,
	CategoryBusiness,
	CategoryEntertainment,
	CategoryGeneral,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type Metadata struct {
	DiscoveryTimestamp   time.Time `json:"discovery_timestamp"`
	SourceURL            string    `json:"source_url"`
	WordCount            int       `json:"word_count"`
	EstimatedReadMinutes int       `json:"estimated_read_minutes"`
}

// Raw is an article as extracted from its source page.
type Raw struct {
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Author      string    `json:"author,omitempty"`
	PublishDate time.Time `json:"publish_date"`
	ImageURLs   []string  `json:"image_urls"`
	Category    string    `json:"category,omitempty"`
	URL         string    `json:"url"`
	Metadata    Metadata  `json:"metadata"`
}

type EnrichmentMetadata struct {
	Timestamp         time.Time `json:"timestamp"`
	ModelIdentifier   string    `json:"model_identifier"`
	ConfidenceScore   float64   `json:"confidence_score"`
	OriginalWordCount int       `json:"original_word_count"`
	EnrichedWordCount int       `json:"enriched_word_count"`
}

// Enriched is a rewritten article ready for the store.
type Enriched struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Body        string             `json:"body"`
	Summary     string             `json:"summary"`
	Author      string             `json:"author,omitempty"`
	PublishDate time.Time          `json:"publish_date"`
	ImageURLs   []string           `json:"image_urls"`
	Category    Category           `json:"category"`
	Tags        []string           `json:"tags"`
	URL         string             `json:"url"`
	Metadata    Metadata           `json:"metadata"`
	Enrichment  EnrichmentMetadata `json:"enrichment"`
}

const WordsPerMinute = 200

// NewMetadata builds source metadata for a body discovered at the given time.
func NewMetadata(url, body string, discovered time.Time) Metadata {
	words := WordCount(body)
	return Metadata{
		DiscoveryTimestamp:   discovered,
		SourceURL:            url,
		WordCount:            words,
		EstimatedReadMinutes: ReadMinutes(words),
	}
}

func ReadMinutes(words int) int {
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
