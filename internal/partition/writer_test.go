package partition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clouds56/evmstage/internal/progress"
)

type row struct {
	Height uint64 `parquet:"height"`
}

func TestAdvanceFreshPartitionSeals(t *testing.T) {
	dir := t.TempDir()
	rows := make([]row, 1_000_000)
	for i := range rows {
		rows[i] = row{Height: uint64(i)}
	}

	var gotEvent progress.Event
	err := Advance(dir, "task", 1_000_000, 0, 1_000_000, 1_500_000, rows, func(ev progress.Event) bool {
		gotEvent = ev
		return true
	})
	require.NoError(t, err)
	require.Equal(t, 1_000_000, gotEvent.Len)

	sealed, tmp := Paths(dir, "task", 1_000_000, 0)
	require.FileExists(t, sealed)
	require.NoFileExists(t, tmp)
}

func TestAdvanceRowCountInvariantViolation(t *testing.T) {
	dir := t.TempDir()
	rows := []row{{Height: 0}, {Height: 1}}
	err := Advance(dir, "task", 1_000_000, 0, 5, 1_000_000, rows, func(progress.Event) bool { return true })
	require.Error(t, err)
}

func TestAdvanceListenerVetoLeavesTmp(t *testing.T) {
	dir := t.TempDir()
	rows := []row{{Height: 0}}
	err := Advance(dir, "task", 1_000_000, 0, 1, 1_000_000, rows, func(progress.Event) bool { return false })
	require.Error(t, err)

	_, tmp := Paths(dir, "task", 1_000_000, 0)
	require.FileExists(t, tmp)
}

func TestAdvanceResumeMergesExisting(t *testing.T) {
	dir := t.TempDir()
	first := []row{{Height: 0}, {Height: 1}}
	require.NoError(t, Advance(dir, "task", 1_000_000, 0, 2, 1_000_000, first, func(progress.Event) bool { return true }))

	second := []row{{Height: 2}, {Height: 3}}
	require.NoError(t, Advance(dir, "task", 1_000_000, 2, 4, 1_000_000, second, func(progress.Event) bool { return true }))

	out, err := ReadPartition[row](dir, "task", 1_000_000, 0)
	require.NoError(t, err)
	require.Len(t, out, 4)
}

func TestParseNameRoundTrip(t *testing.T) {
	parsed, ok := ParseName("uniswap_pair_events_1000000.2.parquet.tmp")
	require.True(t, ok)
	require.Equal(t, "uniswap_pair_events", parsed.Task)
	require.Equal(t, uint64(1000000), parsed.Cut)
	require.Equal(t, uint64(2), parsed.Idx)
	require.Equal(t, ".tmp", parsed.Suffix)
}

func TestMigrateLegacyTaskRenames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old_1000000.0.parquet"), []byte{}, 0o644))

	n, err := MigrateLegacyTask(dir, "old", "new")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.FileExists(t, filepath.Join(dir, "new_1000000.0.parquet"))
}

func TestMigrateLegacyTaskNoFilesFails(t *testing.T) {
	dir := t.TempDir()
	_, err := MigrateLegacyTask(dir, "old", "new")
	require.Error(t, err)
}
