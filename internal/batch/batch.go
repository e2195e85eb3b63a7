// Package batch runs many independent calls with bounded concurrency and
// pacing between chunks, to stay under upstream throughput limits.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work. Tasks within a chunk run concurrently.
type Task[T any] func(ctx context.Context) (T, error)

type Options struct {
	// Size is the number of tasks that run concurrently in one chunk.
	Size int
	// Pacing is awaited between consecutive chunks, never after the last.
	Pacing time.Duration

	Sleep func(ctx context.Context, d time.Duration) error
}

const (
	DefaultSize   = 50
	DefaultPacing = 2 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Pacing <= 0 {
		o.Pacing = DefaultPacing
	}
	if o.Sleep == nil {
		o.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return o
}

// Run executes tasks in consecutive chunks of opts.Size, preserving input
// order in the returned slice. Every task in a started chunk runs to
// completion; the first error observed in a chunk is then returned and no
// later chunk starts.
func Run[T any](ctx context.Context, tasks []Task[T], opts Options) ([]T, error) {
	opts = opts.withDefaults()
	results := make([]T, len(tasks))

	for start := 0; start < len(tasks); start += opts.Size {
		end := start + opts.Size
		if end > len(tasks) {
			end = len(tasks)
		}

		// Plain errgroup.Group, not WithContext: siblings are never
		// canceled, the whole chunk always finishes.
		var g errgroup.Group
		for i := start; i < end; i++ {
			idx := i
			task := tasks[i]
			g.Go(func() error {
				result, err := task(ctx)
				if err != nil {
					return fmt.Errorf("task %d: %w", idx, err)
				}
				results[idx] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(tasks) {
			if err := opts.Sleep(ctx, opts.Pacing); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}
