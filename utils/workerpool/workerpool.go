// Package workerpool executes a fixed list of tasks with a bounded number of
// workers. Workers claim task indices from a shared cursor, so a slow task
// never blocks the others from picking up later work and every task runs
// exactly once. Results keep the input order regardless of completion order.
package workerpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/imgvault/imgvault/fault"
	"github.com/imgvault/imgvault/result"
)

// Task is one unit of work producing a Result. A task must capture its own
// failures into the returned Result; panics are recovered by the pool.
type Task[U any] func(ctx context.Context) result.Result[U]

// Run executes all tasks with at most the configured number of workers in
// flight and returns a slice where results[i] corresponds to tasks[i].
// It returns only after every task has settled. A failing or panicking task
// populates its own slot and never stops the pool. If ctx is cancelled,
// tasks not yet claimed settle as failures without being invoked.
func Run[U any](ctx context.Context, tasks []Task[U], opts ...Option) []result.Result[U] {
	settings := newSettings(opts...)

	n := len(tasks)
	results := make([]result.Result[U], n)
	if n == 0 {
		return results
	}

	workers := settings.limit
	if workers > n {
		workers = n
	}

	var cursor atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= n {
					return
				}
				if err := ctx.Err(); err != nil {
					results[idx] = result.NewFailure[U](
						fault.NewTerminal("batch-cancelled", "batch cancelled before task started").WithCause(err).
							WithField("task_index", idx))
					continue
				}
				results[idx] = runTask(ctx, tasks[idx], idx)
				if settings.log != nil {
					settings.log.Debug(fmt.Sprintf("worker %d settled task %d", workerID, idx))
				}
			}
		}(w + 1)
	}

	wg.Wait()
	return results
}

// runTask invokes one task, converting a panic into a failure Result.
func runTask[U any](ctx context.Context, task Task[U], idx int) (res result.Result[U]) {
	defer func() {
		if r := recover(); r != nil {
			res = result.NewFailure[U](
				fault.New(fault.Internal, "task-panic", fmt.Sprintf("task panicked: %v", r)).
					WithField("task_index", idx))
		}
	}()
	res = task(ctx)
	if res == nil {
		res = result.NewFailure[U](
			fault.New(fault.Internal, "task-nil-result", "task returned a nil result").
				WithField("task_index", idx))
	}
	return res
}
