package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/news-comb/app/pipeline"
)

// RunRepository handles database operations for pipeline runs
type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// RecordRun stores a finished pipeline result.
func (r *RunRepository) RecordRun(ctx context.Context, result *pipeline.Result) error {
	byKind := make(map[string]int)
	for _, e := range result.Errors {
		byKind[string(e.Kind)]++
	}

	return r.InsertRun(ctx, Run{
		ID:             result.ID,
		Mode:           string(result.Mode),
		Sites:          result.Sites,
		StartedAt:      result.StartedAt,
		DurationMs:     result.DurationMs,
		TotalProcessed: result.TotalProcessed,
		Extracted:      result.Extracted,
		Successful:     result.Successful,
		Failed:         result.Failed,
		Fallback:       result.Fallback,
		Succeeded:      result.Succeeded(),
		ErrorCount:     len(result.Errors),
		ErrorsByKind:   byKind,
	})
}

func (r *RunRepository) InsertRun(ctx context.Context, run Run) error {
	byKind, err := json.Marshal(run.ErrorsByKind)
	if err != nil {
		return fmt.Errorf("failed to encode error counts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, mode, sites, started_at, duration_ms, total_processed,
			extracted, successful, failed, fallback, succeeded, error_count, errors_by_kind
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Mode, strings.Join(run.Sites, ","), run.StartedAt.UnixMilli(), run.DurationMs,
		run.TotalProcessed, run.Extracted, run.Successful, run.Failed, run.Fallback,
		boolToInt(run.Succeeded), run.ErrorCount, string(byKind))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// ListRuns returns the most recent runs first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, mode, sites, started_at, duration_ms, total_processed,
			extracted, successful, failed, fallback, succeeded, error_count, errors_by_kind
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var sites, byKind string
		var startedAt int64
		var succeeded int

		err := rows.Scan(&run.ID, &run.Mode, &sites, &startedAt, &run.DurationMs, &run.TotalProcessed,
			&run.Extracted, &run.Successful, &run.Failed, &run.Fallback, &succeeded, &run.ErrorCount, &byKind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if sites != "" {
			run.Sites = strings.Split(sites, ",")
		}
		run.StartedAt = time.UnixMilli(startedAt).UTC()
		run.Succeeded = succeeded == 1
		if err := json.Unmarshal([]byte(byKind), &run.ErrorsByKind); err != nil {
			return nil, fmt.Errorf("failed to decode error counts: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) GetRunStats(ctx context.Context) (*RunStats, error) {
	var stats RunStats
	var failed, documents sql.NullInt64
	var avgDuration sql.NullFloat64
	var lastRun sql.NullInt64

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			SUM(CASE WHEN succeeded = 0 THEN 1 ELSE 0 END),
			SUM(successful),
			AVG(duration_ms),
			MAX(started_at)
		FROM runs
	`).Scan(&stats.TotalRuns, &failed, &documents, &avgDuration, &lastRun)
	if err != nil {
		return nil, fmt.Errorf("failed to get run stats: %w", err)
	}

	stats.FailedRuns = int(failed.Int64)
	stats.TotalDocuments = int(documents.Int64)
	stats.AverageDurationMs = avgDuration.Float64
	if lastRun.Valid {
		t := time.UnixMilli(lastRun.Int64).UTC()
		stats.LastRunAt = &t
	}

	return &stats, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
