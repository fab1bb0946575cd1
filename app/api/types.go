package api

import (
	"context"
	"time"

	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/document"
	"github.com/lysyi3m/news-comb/app/fault"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/pipeline"
	"github.com/lysyi3m/news-comb/app/scheduler"
	"github.com/lysyi3m/news-comb/app/site"
	"github.com/lysyi3m/news-comb/app/store"
	"github.com/lysyi3m/news-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, docs []document.Enriched) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type DocumentStore interface {
	Get(id string) (*document.Enriched, bool)
	All(limit int) []document.Enriched
	ByCategory(category document.Category, limit int) []document.Enriched
	Search(query string, limit int) []document.Enriched
	Stats() store.Stats
	Health(now time.Time) store.HealthReport
}

var _ DocumentStore = (*store.Store)(nil)

type Orchestrator interface {
	Start(ctx context.Context, names []string) (string, error)
	EmergencyStop() bool
	IsRunning() bool
	ErrorRateHigh() bool
	ErrorCounts() map[fault.Kind]int
	LastResult() *pipeline.Result
}

var _ Orchestrator = (*pipeline.Orchestrator)(nil)

type SchedulerInterface interface {
	Status() scheduler.Status
}

var _ SchedulerInterface = (*scheduler.Scheduler)(nil)

type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]database.Run, error)
	GetRunStats(ctx context.Context) (*database.RunStats, error)
}

var _ RunHistory = (*database.RunRepository)(nil)

type Handler struct {
	store        DocumentStore
	orchestrator Orchestrator
	scheduler    SchedulerInterface
	taskRunner   tasks.TaskRunnerInterface
	maintainer   tasks.Maintainer
	runs         RunHistory
	configCache  *site.ConfigCache
	generator    GeneratorInterface
	now          func() time.Time
}

type RunRequest struct {
	Mode  string   `json:"mode"`
	Sites []string `json:"sites"`
}

type MaintenanceRequest struct {
	Type string `json:"type" binding:"required"`
}
