package job

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clouds56/evmstage/internal/progress"
)

type row struct {
	Height uint64 `parquet:"height"`
}

func TestNextCutBoundaries(t *testing.T) {
	require.Equal(t, uint64(1_000_000), NextCut(0, 1_000_000))
	require.Equal(t, uint64(1_000_000), NextCut(999_999, 1_000_000))
	require.Equal(t, uint64(2_000_000), NextCut(1_000_000, 1_000_000))
}

func rowsFor(start, end uint64) []row {
	out := make([]row, 0, end-start)
	for h := start; h < end; h++ {
		out = append(out, row{Height: h})
	}
	return out
}

func TestRunnerTwoAdvances(t *testing.T) {
	dir := t.TempDir()
	ck := &atomic.Uint64{}

	r := &Runner[row]{
		Task:       "task",
		Cut:        1_000_000,
		DataDir:    dir,
		Checkpoint: ck,
		Produce: func(_ context.Context, s, e uint64) ([]row, error) {
			return rowsFor(s, e), nil
		},
	}

	err := r.Run(context.Background(), 1_500_000, func(progress.Event) bool { return true })
	require.NoError(t, err)
	require.Equal(t, uint64(1_500_000), ck.Load())
}

func TestRunnerResumeZeroAdvances(t *testing.T) {
	dir := t.TempDir()
	ck := &atomic.Uint64{}
	ck.Store(1_500_000)

	calls := 0
	r := &Runner[row]{
		Task:       "task",
		Cut:        1_000_000,
		DataDir:    dir,
		Checkpoint: ck,
		Produce: func(_ context.Context, s, e uint64) ([]row, error) {
			calls++
			return rowsFor(s, e), nil
		},
	}

	err := r.Run(context.Background(), 1_500_000, func(progress.Event) bool { return true })
	require.NoError(t, err)
	require.Equal(t, 0, calls)
	require.Equal(t, uint64(1_500_000), ck.Load())
}

func TestRunnerListenerVetoStopsTask(t *testing.T) {
	dir := t.TempDir()
	ck := &atomic.Uint64{}

	r := &Runner[row]{
		Task:       "task",
		Cut:        1_000_000,
		DataDir:    dir,
		Checkpoint: ck,
		Produce: func(_ context.Context, s, e uint64) ([]row, error) {
			return rowsFor(s, e), nil
		},
	}

	err := r.Run(context.Background(), 1_000_000, func(ev progress.Event) bool {
		return ev.Len == 0 // veto once the real partition write is about to happen
	})
	require.Error(t, err)
	require.Equal(t, uint64(0), ck.Load())
}
