package stage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/knadh/koanf/parsers/toml"

	"github.com/clouds56/evmstage/internal/errs"
)

// FileName is the canonical stage file name under DATA_DIR.
const FileName = "stage.toml"

var tomlParser = toml.Parser()

// LoadResult reports the stage loaded from disk alongside which legacy
// fields were present, for partition.MigrateLegacyTask to act on.
type LoadResult struct {
	Stage           *Stage
	LegacyFactory   bool // "uniswap_factory" present instead of/alongside "uniswap_factory_events"
	LegacyFactoryCk uint64
}

// Load reads <dataDir>/stage.toml. Absence returns the default stage; a
// malformed file is fatal.
func Load(dataDir string) (LoadResult, error) {
	path := filepath.Join(dataDir, FileName)
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return LoadResult{Stage: NewDefault()}, nil
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("%w: read %s: %w", errs.ErrFilesystem, path, err)
	}

	doc, err := tomlParser.Unmarshal(raw)
	if err != nil {
		return LoadResult{}, fmt.Errorf("%w: parse %s: %w", errs.ErrStageParse, path, err)
	}

	s := NewDefault()
	result := LoadResult{Stage: s}

	if v, ok := asUint64(doc["_cut"]); ok {
		s.Cut = v
	}
	if v, ok := asUint64(doc["block_metrics"]); ok {
		s.BlockMetrics.Store(v)
	}
	if v, ok := asUint64(doc["uniswap_factory_events"]); ok {
		s.UniswapFactoryEvents.Store(v)
	}
	// Legacy alias: "uniswap_factory" -> "uniswap_factory_events". The
	// caller compares LegacyFactoryCk against the checkpoint above before
	// deciding whether a rename is needed, then adopts it unconditionally.
	if v, ok := asUint64(doc["uniswap_factory"]); ok {
		result.LegacyFactory = true
		result.LegacyFactoryCk = v
	}
	if v, ok := asUint64(doc["uniswap3_factory_events"]); ok {
		s.Uniswap3FactoryEvents.Store(v)
	}
	if v, ok := asUint64(doc["pendle2_market_factory_events"]); ok {
		s.PendleMarketFactoryEvents.Store(v)
	}

	s.UniswapPairEvents = decodeContractTasks(doc["uniswap_pair_events"])
	s.Uniswap3PairEvents = decodeContractTasks(doc["uniswap3_pair_events"])
	s.PendleMarketEvents = decodeContractTasks(doc["pendle2_market_events"])

	return result, nil
}

// decodeContractTasks reads an array-of-tables of {contract, created,
// checkpoint}, accepting the legacy "crated" alias for "created".
func decodeContractTasks(v interface{}) []*ContractTask {
	items, ok := v.([]map[string]interface{})
	if !ok {
		if raw, ok := v.([]interface{}); ok {
			for _, item := range raw {
				if m, ok := item.(map[string]interface{}); ok {
					items = append(items, m)
				}
			}
		}
	}
	tasks := make([]*ContractTask, 0, len(items))
	for _, m := range items {
		contract, _ := m["contract"].(string)
		created, _ := asUint64(m["created"])
		if legacy, ok := asUint64(m["crated"]); ok && created == 0 {
			created = legacy
		}
		checkpoint, _ := asUint64(m["checkpoint"])
		ck := &atomic.Uint64{}
		ck.Store(checkpoint)
		tasks = append(tasks, &ContractTask{Contract: contract, Created: created, Checkpoint: ck})
	}
	return tasks
}

func asUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case int64:
		return uint64(n), true
	case int:
		return uint64(n), true
	case uint64:
		return n, true
	}
	return 0, false
}

// toWireMap renders the stage into the plain map[string]interface{} shape
// the koanf toml parser marshals, with legacy field names never re-emitted.
func toWireMap(s *Stage) map[string]interface{} {
	conv := func(tasks []*ContractTask) []map[string]interface{} {
		out := make([]map[string]interface{}, len(tasks))
		for i, t := range tasks {
			out[i] = map[string]interface{}{
				"contract":   t.Contract,
				"created":    t.Created,
				"checkpoint": t.Checkpoint.Load(),
			}
		}
		return out
	}
	return map[string]interface{}{
		"_cut":                          s.Cut,
		"block_metrics":                 s.BlockMetrics.Load(),
		"uniswap_factory_events":        s.UniswapFactoryEvents.Load(),
		"uniswap3_factory_events":       s.Uniswap3FactoryEvents.Load(),
		"pendle2_market_factory_events": s.PendleMarketFactoryEvents.Load(),
		"uniswap_pair_events":           conv(s.UniswapPairEvents),
		"uniswap3_pair_events":          conv(s.Uniswap3PairEvents),
		"pendle2_market_events":         conv(s.PendleMarketEvents),
	}
}

// Save serializes the stage to a .tmp side-path, then renames it over the
// canonical path, so the canonical file is never torn.
func Save(dataDir string, s *Stage) error {
	path := filepath.Join(dataDir, FileName)
	tmpPath := path + ".tmp"

	b, err := tomlParser.Marshal(toWireMap(s))
	if err != nil {
		return fmt.Errorf("%w: encode stage: %w", errs.ErrFilesystem, err)
	}
	if err := os.WriteFile(tmpPath, b, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", errs.ErrFilesystem, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %w", errs.ErrFilesystem, tmpPath, path, err)
	}
	return nil
}
