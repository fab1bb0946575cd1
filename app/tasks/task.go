package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type TaskType string

const (
	TaskTypeAutoMaintenance TaskType = "auto_maintenance"
	TaskTypeFullMaintenance TaskType = "full_maintenance"
	TaskTypeRebuildIndex    TaskType = "rebuild_index"
)

// ParseTaskType maps an operator-supplied name to a maintenance task type.
func ParseTaskType(name string) (TaskType, error) {
	switch t := TaskType(name); t {
	case TaskTypeAutoMaintenance, TaskTypeFullMaintenance, TaskTypeRebuildIndex:
		return t, nil
	default:
		return "", fmt.Errorf("unknown task type %q", name)
	}
}

// RetryBudget is how many times a failed task of this type is re-queued.
// Automatic maintenance gets one retry since the next tick runs it again.
func (t TaskType) RetryBudget() int {
	switch t {
	case TaskTypeAutoMaintenance:
		return 1
	case TaskTypeRebuildIndex:
		return 2
	default:
		return 3
	}
}

// Trigger records who asked for a maintenance pass.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerOperator Trigger = "operator"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	Start()
	Fail(err error) bool
	Retries() int
	RetryBudget() int
	Elapsed() time.Duration
}

// Job is the bookkeeping shared by every maintenance task.
type Job struct {
	ID         string
	Type       TaskType
	Trigger    Trigger
	QueuedAt   time.Time
	StartedAt  *time.Time
	RetryCount int
	Budget     int
	LastError  error
}

func NewJob(taskType TaskType, trigger Trigger) Job {
	return Job{
		ID:       fmt.Sprintf("%s-%d-%d", taskType, time.Now().UnixNano(), rand.Intn(10000)),
		Type:     taskType,
		Trigger:  trigger,
		QueuedAt: time.Now(),
		Budget:   taskType.RetryBudget(),
	}
}

func (j *Job) GetID() string {
	return j.ID
}

func (j *Job) GetType() TaskType {
	return j.Type
}

func (j *Job) Retries() int {
	return j.RetryCount
}

func (j *Job) RetryBudget() int {
	return j.Budget
}

// Start stamps the beginning of the current attempt.
func (j *Job) Start() {
	now := time.Now()
	j.StartedAt = &now
}

// Fail records err and reports whether the job may be queued again. A true
// result consumes one retry.
func (j *Job) Fail(err error) bool {
	j.LastError = err
	if j.RetryCount >= j.Budget {
		return false
	}
	j.RetryCount++
	return true
}

func (j *Job) Elapsed() time.Duration {
	if j.StartedAt == nil {
		return 0
	}
	return time.Since(*j.StartedAt)
}
