package tasks

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lysyi3m/news-comb/app/document"
	"github.com/lysyi3m/news-comb/app/store"
)

// MockMaintainer records store maintenance calls
type MockMaintainer struct {
	auto     atomic.Int32
	full     atomic.Int32
	rebuilds atomic.Int32
}

func (m *MockMaintainer) AutoMaintain(now time.Time) (*store.MaintenanceReport, bool) {
	m.auto.Add(1)
	return &store.MaintenanceReport{At: now}, true
}

func (m *MockMaintainer) Maintain(now time.Time) store.MaintenanceReport {
	m.full.Add(1)
	return store.MaintenanceReport{At: now}
}

func (m *MockMaintainer) RebuildIndex() {
	m.rebuilds.Add(1)
}

// FlakyTask fails a fixed number of times before succeeding
type FlakyTask struct {
	Job
	failures int
	attempts atomic.Int32
	done     chan struct{}
	once     sync.Once
}

func (t *FlakyTask) Execute(ctx context.Context) error {
	n := int(t.attempts.Add(1))
	if n <= t.failures {
		return errors.New("transient failure")
	}
	t.once.Do(func() { close(t.done) })
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestParseTaskType(t *testing.T) {
	for _, name := range []string{"auto_maintenance", "full_maintenance", "rebuild_index"} {
		if _, err := ParseTaskType(name); err != nil {
			t.Errorf("Expected %s to parse, got %v", name, err)
		}
	}
	if _, err := ParseTaskType("process_feed"); err == nil {
		t.Error("Expected error for unknown task type")
	}
}

func TestJob_RetryBudget(t *testing.T) {
	tests := []struct {
		taskType TaskType
		expected int
	}{
		{TaskTypeAutoMaintenance, 1},
		{TaskTypeRebuildIndex, 2},
		{TaskTypeFullMaintenance, 3},
	}

	for _, tt := range tests {
		job := NewJob(tt.taskType, TriggerSchedule)
		if job.RetryBudget() != tt.expected {
			t.Errorf("Expected budget %d for %s, got %d", tt.expected, tt.taskType, job.RetryBudget())
		}
		if !strings.HasPrefix(job.GetID(), string(tt.taskType)+"-") {
			t.Errorf("Expected ID prefixed with task type, got '%s'", job.GetID())
		}

		for i := 0; i < tt.expected; i++ {
			if !job.Fail(errors.New("boom")) {
				t.Fatalf("Expected retry %d of %d for %s to be allowed", i+1, tt.expected, tt.taskType)
			}
		}
		if job.Fail(errors.New("last")) {
			t.Errorf("Expected %s to give up after %d retries", tt.taskType, tt.expected)
		}
		if job.Retries() != tt.expected || job.LastError.Error() != "last" {
			t.Errorf("Expected %d retries with last error recorded, got %d (%v)", tt.expected, job.Retries(), job.LastError)
		}
	}
}

func TestMaintenanceTask_Execute(t *testing.T) {
	m := &MockMaintainer{}

	for _, taskType := range []TaskType{TaskTypeAutoMaintenance, TaskTypeFullMaintenance, TaskTypeRebuildIndex} {
		task := NewMaintenanceTask(taskType, TriggerOperator, m)
		task.Start()
		if err := task.Execute(context.Background()); err != nil {
			t.Errorf("Unexpected error for %s: %v", taskType, err)
		}
	}

	if m.auto.Load() != 1 || m.full.Load() != 1 || m.rebuilds.Load() != 1 {
		t.Errorf("Expected one call each, got auto=%d full=%d rebuild=%d", m.auto.Load(), m.full.Load(), m.rebuilds.Load())
	}

	bad := NewMaintenanceTask("unknown", TriggerOperator, m)
	if err := bad.Execute(context.Background()); err == nil {
		t.Error("Expected error for unsupported task type")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMaintenanceTask(TaskTypeFullMaintenance, TriggerOperator, m).Execute(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestMaintenanceTask_RealStore(t *testing.T) {
	s := store.New(store.Options{})
	now := time.Now()
	s.Put(document.Enriched{ID: "old", Title: "Old story", Category: document.CategoryGeneral, Metadata: document.Metadata{DiscoveryTimestamp: now.Add(-48 * time.Hour)}})
	s.Put(document.Enriched{ID: "new", Title: "New story today", Category: document.CategoryGeneral, Metadata: document.Metadata{DiscoveryTimestamp: now}})

	if err := NewMaintenanceTask(TaskTypeAutoMaintenance, TriggerSchedule, s).Execute(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Count() != 1 {
		t.Errorf("Expected expired document evicted, got %d documents", s.Count())
	}
}

func TestRunner_ExecutesEnqueuedTask(t *testing.T) {
	m := &MockMaintainer{}
	r := NewRunner(m, 0, 2)
	r.Start()
	defer r.Stop()

	if err := r.EnqueueTask(NewMaintenanceTask(TaskTypeFullMaintenance, TriggerOperator, m)); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	waitFor(t, func() bool { return m.full.Load() == 1 })
}

func TestRunner_RetriesFailedTask(t *testing.T) {
	r := NewRunner(&MockMaintainer{}, 0, 1)
	r.retryBase = time.Millisecond
	r.Start()
	defer r.Stop()

	task := &FlakyTask{Job: NewJob(TaskTypeRebuildIndex, TriggerOperator), failures: 2, done: make(chan struct{})}
	if err := r.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	select {
	case <-task.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected task to succeed after retries")
	}
	if task.attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", task.attempts.Load())
	}
	if task.Retries() != 2 {
		t.Errorf("Expected retry count 2, got %d", task.Retries())
	}
	if task.LastError == nil || task.LastError.Error() != "transient failure" {
		t.Errorf("Expected last error to be recorded, got %v", task.LastError)
	}
}

func TestRunner_GivesUpAfterMaxRetries(t *testing.T) {
	r := NewRunner(&MockMaintainer{}, 0, 1)
	r.retryBase = time.Millisecond
	r.Start()
	defer r.Stop()

	task := &FlakyTask{Job: NewJob(TaskTypeRebuildIndex, TriggerOperator), failures: 100, done: make(chan struct{})}
	if err := r.EnqueueTask(task); err != nil {
		t.Fatal(err)
	}

	want := int32(TaskTypeRebuildIndex.RetryBudget() + 1)
	waitFor(t, func() bool { return task.attempts.Load() == want })
	time.Sleep(50 * time.Millisecond)
	if got := task.attempts.Load(); got != want {
		t.Errorf("Expected %d attempts, got %d", want, got)
	}
}

func TestRunner_IntervalEnqueuesAutoMaintenance(t *testing.T) {
	m := &MockMaintainer{}
	r := NewRunner(m, 10*time.Millisecond, 1)
	r.Start()
	defer r.Stop()

	waitFor(t, func() bool { return m.auto.Load() >= 2 })
}

func TestRunner_EnqueueAfterStop(t *testing.T) {
	r := NewRunner(&MockMaintainer{}, 0, 1)
	r.Start()
	r.Stop()
	r.Stop()

	if err := r.EnqueueTask(NewMaintenanceTask(TaskTypeRebuildIndex, TriggerOperator, &MockMaintainer{})); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
