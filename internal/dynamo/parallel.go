package dynamo

import (
	"context"
	"runtime"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Executor runs independent subsystem evaluations on a bounded set of
// goroutines. It is constructed by the caller and passed down explicitly.
type Executor struct {
	workers int
	log     zerolog.Logger
}

// NewExecutor creates an executor with the given worker limit. A
// non-positive limit uses GOMAXPROCS.
func NewExecutor(workers int, log zerolog.Logger) *Executor {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Executor{workers: workers, log: log}
}

func (e *Executor) Workers() int { return e.workers }

// Run executes every task and returns the first error. Cancellation is
// only observed between tasks; a started task always runs to completion.
func (e *Executor) Run(ctx context.Context, tasks []func() error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	e.log.Debug().Int("tasks", len(tasks)).Int("workers", e.workers).Msg("executor start")

	for i, task := range tasks {
		i, task := i, task
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := task(); err != nil {
				e.log.Error().Err(err).Int("task", i).Msg("task failed")
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ParallelFor executes fn over [0, n) split into chunks of at least
// minChunk items.
func (e *Executor) ParallelFor(ctx context.Context, n, minChunk int, fn func(start, end int)) error {
	workers := e.workers
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return nil
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers
	tasks := make([]func() error, 0, workers)
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		s, en := start, end
		tasks = append(tasks, func() error {
			fn(s, en)
			return nil
		})
	}
	return e.Run(ctx, tasks)
}
