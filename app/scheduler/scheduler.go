package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/news-comb/app/pipeline"
)

var ErrNotStarted = errors.New("scheduler is not started")

// Runner executes one pipeline run.
type Runner interface {
	RunOnce(ctx context.Context) (*pipeline.Result, error)
	ErrorRateHigh() bool
}

type Options struct {
	Hour             int
	Minute           int
	Location         *time.Location
	PauseOnErrorRate bool
}

type Status struct {
	Scheduled    bool       `json:"scheduled"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	RunCount     int        `json:"run_count"`
	FailureCount int        `json:"failure_count"`
	Skipped      int        `json:"skipped"`
	SuccessRate  float64    `json:"success_rate"`
}

// Scheduler fires the runner once a day at a fixed local time.
type Scheduler struct {
	runner           Runner
	hour             int
	minute           int
	loc              *time.Location
	pauseOnErrorRate bool
	now              func() time.Time
	after            func(d time.Duration) <-chan time.Time

	started      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	lastRun      time.Time
	nextRun      time.Time
	runCount     int
	failureCount int
	skipped      int
	mu           sync.Mutex
}

func New(runner Runner, opts Options) *Scheduler {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		runner:           runner,
		hour:             opts.Hour,
		minute:           opts.Minute,
		loc:              loc,
		pauseOnErrorRate: opts.PauseOnErrorRate,
		now:              time.Now,
		after:            time.After,
	}
}

// NextRun returns today's trigger time in loc when it is still ahead of now,
// otherwise tomorrow's.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Start begins waiting for the daily trigger. Starting twice is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.started = true
	s.cancel = cancel
	s.nextRun = NextRun(s.now(), s.hour, s.minute, s.loc)

	s.wg.Add(1)
	go s.loop(ctx)

	slog.Info("Scheduler started", "next_run", s.nextRun.Format(time.RFC3339), "location", s.loc.String())
}

// Stop cancels the trigger and waits for an in-progress firing. Stopping a
// stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Scheduled:    s.started,
		RunCount:     s.runCount,
		FailureCount: s.failureCount,
		Skipped:      s.skipped,
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		status.LastRun = &last
	}
	if s.started {
		next := s.nextRun
		status.NextRun = &next
	}
	if s.runCount > 0 {
		status.SuccessRate = float64(s.runCount-s.failureCount) / float64(s.runCount)
	}
	return status
}

// TriggerNow fires the runner immediately, outside the daily schedule.
func (s *Scheduler) TriggerNow(ctx context.Context) (*pipeline.Result, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil, ErrNotStarted
	}
	return s.fire(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		wait := s.nextRun.Sub(s.now())
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-s.after(wait):
		}

		if s.pauseOnErrorRate && s.runner.ErrorRateHigh() {
			slog.Warn("Scheduled run skipped", "reason", "error rate above threshold")
			s.mu.Lock()
			s.skipped++
			s.nextRun = NextRun(s.now(), s.hour, s.minute, s.loc)
			s.mu.Unlock()
			continue
		}

		if _, err := s.fire(ctx); err != nil {
			slog.Error("Scheduled run failed", "error", err)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) (*pipeline.Result, error) {
	result, err := s.runner.RunOnce(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runCount++
	if err != nil || result == nil || !result.Succeeded() {
		s.failureCount++
	}
	s.lastRun = s.now()
	s.nextRun = NextRun(s.lastRun, s.hour, s.minute, s.loc)

	if err != nil {
		return nil, err
	}

	slog.Info("Scheduler fired",
		"run_count", s.runCount,
		"failure_count", s.failureCount,
		"succeeded", result.Succeeded(),
		"next_run", s.nextRun.Format(time.RFC3339))
	return result, nil
}
