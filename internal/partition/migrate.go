package partition

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/clouds56/evmstage/internal/errs"
)

var nameRe = regexp.MustCompile(`^(.+)_(\d+)\.(\d+)\.parquet(\.tmp|\.part)?$`)

// ParsedName is the inverse of Paths: task name, partition width, index,
// and the trailing suffix (".tmp", ".part", or "" for sealed).
type ParsedName struct {
	Task   string
	Cut    uint64
	Idx    uint64
	Suffix string
}

// ParseName parses a partition filename per the naming convention used by
// Paths. The legacy ".part" suffix is recognized for migration only.
func ParseName(filename string) (ParsedName, bool) {
	m := nameRe.FindStringSubmatch(filename)
	if m == nil {
		return ParsedName{}, false
	}
	cut, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return ParsedName{}, false
	}
	idx, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return ParsedName{}, false
	}
	return ParsedName{Task: m[1], Cut: cut, Idx: idx, Suffix: m[4]}, true
}

// MigrateLegacyTask renames every partition file belonging to oldTask to
// newTask, preserving CUT, index, and trailing suffix. A scan that finds
// zero files is fatal: a legacy field was present without corresponding
// data.
func MigrateLegacyTask(dir, oldTask, newTask string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: read data dir %s: %w", errs.ErrFilesystem, dir, err)
	}

	renamed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		parsed, ok := ParseName(entry.Name())
		if !ok || parsed.Task != oldTask {
			continue
		}
		newName := fmt.Sprintf("%s_%d.%d.parquet%s", newTask, parsed.Cut, parsed.Idx, parsed.Suffix)
		oldPath := filepath.Join(dir, entry.Name())
		newPath := filepath.Join(dir, newName)
		if err := os.Rename(oldPath, newPath); err != nil {
			return renamed, fmt.Errorf("%w: rename %s to %s: %w", errs.ErrFilesystem, oldPath, newPath, err)
		}
		renamed++
	}

	if renamed == 0 {
		return 0, fmt.Errorf("%w: migration from %q to %q found no files to rename", errs.ErrFilesystem, oldTask, newTask)
	}
	return renamed, nil
}
