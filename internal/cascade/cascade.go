// Package cascade is the bounded-concurrency fan-out coordinator used by
// cluster/group deletion and other batch operations (SPEC_FULL.md §4.6).
// Built on golang.org/x/sync/errgroup with SetLimit, matching the teacher's
// worker-pool idiom for bounding concurrent work.
package cascade

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of cascade work. It receives ctx for cancellation
// propagation and should return a descriptive error; a failing task does not
// cancel the others, so every task in a batch runs to completion before Run
// returns.
type Task func(ctx context.Context) error

// Coordinator dispatches batches of Tasks with a bounded concurrency level.
type Coordinator struct {
	limit int
}

// New constructs a Coordinator. limit <= 0 defaults to GOMAXPROCS, matching
// §4.6 ("a bounded concurrency level (default = GOMAXPROCS or an explicit
// cap)").
func New(limit int) *Coordinator {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &Coordinator{limit: limit}
}

// Run dispatches every task in tasks to the worker pool, waits for all of
// them, and returns every task's error joined with errors.Join (nil if all
// succeeded). It never reorders tasks within a single Run call; cross-batch
// ordering (§4.5.3 "dependents first, containers second") is the caller's
// responsibility via separate Run calls.
func (c *Coordinator) Run(ctx context.Context, tasks []Task) error {
	var g errgroup.Group
	g.SetLimit(c.limit)
	var (
		mu   sync.Mutex
		errs []error
	)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := task(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
