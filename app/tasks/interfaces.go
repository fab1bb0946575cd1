package tasks

import (
	"time"

	"github.com/lysyi3m/news-comb/app/store"
)

// TaskRunnerInterface defines background maintenance task processing.
//
//	runner := NewRunner(documentStore, interval, workerCount)
//	runner.Start()
//	defer runner.Stop()
//	runner.EnqueueTask(NewMaintenanceTask(TaskTypeFullMaintenance, TriggerOperator, documentStore))
type TaskRunnerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// Maintainer is the store surface maintenance tasks operate on.
type Maintainer interface {
	AutoMaintain(now time.Time) (*store.MaintenanceReport, bool)
	Maintain(now time.Time) store.MaintenanceReport
	RebuildIndex()
}

var _ Maintainer = (*store.Store)(nil)
