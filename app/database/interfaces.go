package database

import (
	"context"

	"github.com/lysyi3m/news-comb/app/pipeline"
)

type RunRepositoryInterface interface {
	InsertRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	GetRunStats(ctx context.Context) (*RunStats, error)
}

var (
	_ RunRepositoryInterface = (*RunRepository)(nil)
	_ pipeline.RunRecorder   = (*RunRepository)(nil)
)
