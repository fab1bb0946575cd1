package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type MaintenanceTask struct {
	Job
	store Maintainer
	now   func() time.Time
}

func NewMaintenanceTask(taskType TaskType, trigger Trigger, store Maintainer) *MaintenanceTask {
	return &MaintenanceTask{
		Job:   NewJob(taskType, trigger),
		store: store,
		now:   time.Now,
	}
}

func (t *MaintenanceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	switch t.Type {
	case TaskTypeAutoMaintenance:
		report, ran := t.store.AutoMaintain(t.now())
		if !ran {
			slog.Debug("Task completed", "type", string(t.Type), "id", t.ID, "maintained", false)
			return nil
		}
		slog.Info("Task completed",
			"type", string(t.Type),
			"id", t.ID,
			"trigger", string(t.Trigger),
			"expired", report.Expired,
			"duplicates", report.Duplicates,
			"remaining", report.Remaining,
			"duration", t.Elapsed().String())

	case TaskTypeFullMaintenance:
		report := t.store.Maintain(t.now())
		slog.Info("Task completed",
			"type", string(t.Type),
			"id", t.ID,
			"trigger", string(t.Trigger),
			"expired", report.Expired,
			"duplicates", report.Duplicates,
			"remaining", report.Remaining,
			"duration", t.Elapsed().String())

	case TaskTypeRebuildIndex:
		t.store.RebuildIndex()
		slog.Info("Task completed", "type", string(t.Type), "id", t.ID, "duration", t.Elapsed().String())

	default:
		return fmt.Errorf("unsupported task type %q", t.Type)
	}

	return nil
}
