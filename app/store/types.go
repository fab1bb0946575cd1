package store

import (
	"time"

	"github.com/lysyi3m/news-comb/app/document"
)

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

type Stats struct {
	Total           int                       `json:"total"`
	ByCategory      map[document.Category]int `json:"by_category"`
	EstimatedBytes  int64                     `json:"estimated_bytes"`
	Oldest          *time.Time                `json:"oldest,omitempty"`
	Newest          *time.Time                `json:"newest,omitempty"`
	LastMaintenance *time.Time                `json:"last_maintenance,omitempty"`
}

type HealthReport struct {
	Status          HealthStatus `json:"status"`
	Stats           Stats        `json:"stats"`
	Issues          []string     `json:"issues"`
	Recommendations []string     `json:"recommendations"`
}

type MaintenanceNeed struct {
	Priority Priority `json:"priority"`
	Overdue  int      `json:"overdue"`
	Reasons  []string `json:"reasons"`
}

type MaintenanceReport struct {
	Expired    int       `json:"expired"`
	Duplicates int       `json:"duplicates"`
	Remaining  int       `json:"remaining"`
	At         time.Time `json:"at"`
}

type Options struct {
	Retention          time.Duration
	DuplicateThreshold float64
}
