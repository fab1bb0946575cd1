package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskRunnerInterface = (*Runner)(nil)

const (
	queueSize     = 100
	taskTimeout   = 5 * time.Minute
	maxRetryDelay = 30 * time.Second
)

// Runner executes maintenance tasks on a worker pool and enqueues automatic
// maintenance on a fixed interval.
type Runner struct {
	store       Maintainer
	interval    time.Duration
	workerCount int
	retryBase   time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
	startOnce   sync.Once
	stopOnce    sync.Once
}

func NewRunner(store Maintainer, interval time.Duration, workerCount int) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	if workerCount < 1 {
		workerCount = 1
	}

	return &Runner{
		store:       store,
		interval:    interval,
		workerCount: workerCount,
		retryBase:   time.Second,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
	}
}

func (r *Runner) Start() {
	r.startOnce.Do(func() {
		for i := 0; i < r.workerCount; i++ {
			r.wg.Add(1)
			go r.worker(i)
		}

		if r.interval <= 0 {
			slog.Debug("Automatic maintenance disabled")
			return
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()

			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()

			for {
				select {
				case <-r.ctx.Done():
					return
				case <-ticker.C:
					if err := r.EnqueueTask(NewMaintenanceTask(TaskTypeAutoMaintenance, TriggerSchedule, r.store)); err != nil {
						slog.Warn("Failed to enqueue automatic maintenance", "error", err)
					}
				}
			}
		}()

		slog.Info("Task runner started", "workers", r.workerCount, "interval", r.interval.String())
	})
}

// Stop cancels workers and pending retries. The queue is left open so late
// retries fail on the cancelled context instead of a closed channel.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		r.wg.Wait()
		slog.Info("Task runner stopped")
	})
}

func (r *Runner) EnqueueTask(task TaskInterface) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}

	select {
	case r.taskQueue <- task:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (r *Runner) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case task := <-r.taskQueue:
			r.executeTask(id, task)

		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(r.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.Retries(), "elapsed", task.Elapsed().String(), "error", err)

	if !task.Fail(err) {
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.Retries(), "max_retries", task.RetryBudget(), "last_error", err)
		return
	}

	retryDelay := r.retryBase * time.Duration(1<<uint(task.Retries()-1))
	if retryDelay > maxRetryDelay {
		retryDelay = maxRetryDelay
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.Retries(), "max_retries", task.RetryBudget(), "delay", retryDelay.String())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-r.ctx.Done():
			slog.Debug("Task runner stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := r.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.Retries(), "error", retryErr)
			}
		}
	}()
}
