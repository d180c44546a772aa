// Package job implements the generic job runtime: it drives a named task
// from its stored checkpoint toward a moving end across fixed-size
// partitions, invoking a per-task producer, folding the result into the
// current partition via internal/partition, and persisting progress
// atomically via the listener.
//
// The runtime is polymorphic over the per-task row type by way of a Go
// generic type parameter and a captured closure (Producer[T]), rather than
// an interface — in Go a closure already carries whatever per-task state
// (client handle, filters) an implementation needs.
package job

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/clouds56/evmstage/internal/errs"
	"github.com/clouds56/evmstage/internal/metrics"
	"github.com/clouds56/evmstage/internal/partition"
	"github.com/clouds56/evmstage/internal/progress"
)

// Producer builds a columnar batch for a half-open height range; it may
// suspend on network I/O.
type Producer[T any] func(ctx context.Context, start, end uint64) ([]T, error)

// NextCut returns the next partition-aligned height strictly greater than
// i: (i/cut + 1) * cut.
func NextCut(i, cut uint64) uint64 {
	return (i/cut + 1) * cut
}

// Runner advances a single task across partitions.
type Runner[T any] struct {
	Task       string
	Cut        uint64
	DataDir    string
	Checkpoint *atomic.Uint64
	Produce    Producer[T]
}

// Run drives the task from its current checkpoint to end. The listener
// runs between each writer's temp-write and its sealing rename, and on the
// zero-length event before any work begins; a false return vetoes the
// task with a fatal error.
func (r *Runner[T]) Run(ctx context.Context, end uint64, listen progress.Listener) error {
	cur := r.Checkpoint.Load()

	zero := progress.Event{Task: r.Task, Start: cur, Checkpoint: cur, Len: 0, Cut: r.Cut, End: end}
	if listen != nil && !listen(zero) {
		return fmt.Errorf("%w: task %s", errs.ErrListenerVeto, r.Task)
	}

	for cur < end {
		next := NextCut(cur, r.Cut)
		if next > end {
			next = end
		}

		if cur < next {
			rows, err := r.Produce(ctx, cur, next)
			if err != nil {
				return fmt.Errorf("produce task %s [%d, %d): %w", r.Task, cur, next, err)
			}
			if err := partition.Advance(r.DataDir, r.Task, r.Cut, cur, next, end, rows, listen); err != nil {
				return err
			}
		}

		cur = next
		r.Checkpoint.Store(cur)
		metrics.TaskCheckpoint.WithLabelValues(r.Task).Set(float64(cur))
		metrics.TaskBehind.WithLabelValues(r.Task).Set(float64(end - cur))
	}

	return nil
}
