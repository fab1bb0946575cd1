package workpool

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoSleep returns immediately unless ctx is already done.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// Pool runs work in fixed-size groups with a pause between groups.
type Pool struct {
	Size  int
	Pause time.Duration
	Sleep Sleeper
}

func New(size int, pause time.Duration, sleep Sleeper) *Pool {
	if size < 1 {
		size = 1
	}
	if sleep == nil {
		sleep = Sleep
	}
	return &Pool{Size: size, Pause: pause, Sleep: sleep}
}

// Each calls fn for every index in [0, n), at most Size at a time. Indexes are
// processed in consecutive groups; the next group starts only after the
// previous one finished and Pause elapsed. fn errors do not stop other work.
// Each returns early with ctx's error when ctx is cancelled between groups.
func (p *Pool) Each(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	for start := 0; start < n; start += p.Size {
		if start > 0 {
			if err := p.Sleep(ctx, p.Pause); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+p.Size, n)

		var g errgroup.Group
		g.SetLimit(p.Size)
		for i := start; i < end; i++ {
			g.Go(func() error {
				fn(ctx, i)
				return nil
			})
		}
		_ = g.Wait()
	}
	return nil
}

// Batches splits items into consecutive chunks of at most size.
func Batches[T any](items []T, size int) [][]T {
	if size < 1 {
		size = 1
	}
	var out [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end])
	}
	return out
}
