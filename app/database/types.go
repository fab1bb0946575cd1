package database

import (
	"time"
)

// Run is a persisted pipeline run summary.
type Run struct {
	ID             string         `json:"id"`
	Mode           string         `json:"mode"`
	Sites          []string       `json:"sites,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	DurationMs     int64          `json:"duration_ms"`
	TotalProcessed int            `json:"total_processed"`
	Extracted      int            `json:"extracted"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	Fallback       int            `json:"fallback"`
	Succeeded      bool           `json:"succeeded"`
	ErrorCount     int            `json:"error_count"`
	ErrorsByKind   map[string]int `json:"errors_by_kind"`
}

type RunStats struct {
	TotalRuns         int        `json:"total_runs"`
	FailedRuns        int        `json:"failed_runs"`
	TotalDocuments    int        `json:"total_documents"`
	AverageDurationMs float64    `json:"average_duration_ms"`
	LastRunAt         *time.Time `json:"last_run_at,omitempty"`
}
