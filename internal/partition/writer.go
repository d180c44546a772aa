// Package partition implements the partitioned writer: it maps
// (task, partition-index) to a file, atomically appends within the current
// partition, and seals on the partition boundary.
package partition

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/clouds56/evmstage/internal/errs"
	"github.com/clouds56/evmstage/internal/metrics"
	"github.com/clouds56/evmstage/internal/progress"
)

// Paths returns the sealed and temp paths for a (task, cut, index) triple.
func Paths(dir, task string, cut, idx uint64) (sealed, tmp string) {
	name := fmt.Sprintf("%s_%d.%d.parquet", task, cut, idx)
	sealed = filepath.Join(dir, name)
	return sealed, sealed + ".tmp"
}

// Advance folds rows into the partition covering start: merge with any
// existing sealed content when not starting fresh, write to a tmp path,
// run the listener between the temp-write and the sealing rename, and
// enforce the row-count invariant.
//
// The listener may veto the advance (return false); on veto, Advance
// returns an error wrapping errs.ErrListenerVeto and leaves the tmp file
// on disk for the next run to overwrite.
func Advance[T any](dir, task string, cut, start, checkpointAfter, end uint64, rows []T, listen progress.Listener) error {
	idx := start / cut
	sealedPath, tmpPath := Paths(dir, task, cut, idx)

	combined := rows
	if start%cut != 0 {
		existing, err := parquet.ReadFile[T](sealedPath)
		if err != nil {
			return fmt.Errorf("%w: read existing partition %s: %w", errs.ErrFilesystem, sealedPath, err)
		}
		combined = make([]T, 0, len(existing)+len(rows))
		combined = append(combined, existing...)
		combined = append(combined, rows...)
	}

	expectedRows := checkpointAfter - idx*cut
	if uint64(len(combined)) != expectedRows {
		return fmt.Errorf("%w: task %s partition %d: rows=%d expected=%d",
			errs.ErrRowCountInvariant, task, idx, len(combined), expectedRows)
	}

	if err := parquet.WriteFile(tmpPath, combined); err != nil {
		return fmt.Errorf("%w: write partition %s: %w", errs.ErrFilesystem, tmpPath, err)
	}

	ev := progress.Event{Task: task, Start: start, Checkpoint: checkpointAfter, Len: len(combined), Cut: cut, End: end}
	if listen != nil && !listen(ev) {
		return fmt.Errorf("%w: task %s at checkpoint %d", errs.ErrListenerVeto, task, checkpointAfter)
	}

	if err := os.Rename(tmpPath, sealedPath); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %w", errs.ErrFilesystem, tmpPath, sealedPath, err)
	}

	metrics.PartitionRows.WithLabelValues(task).Set(float64(len(combined)))
	return nil
}

// ReadPartition reads a sealed partition file back as a batch, for
// round-trip verification.
func ReadPartition[T any](dir, task string, cut, idx uint64) ([]T, error) {
	sealedPath, _ := Paths(dir, task, cut, idx)
	rows, err := parquet.ReadFile[T](sealedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read partition %s: %w", errs.ErrFilesystem, sealedPath, err)
	}
	return rows, nil
}
