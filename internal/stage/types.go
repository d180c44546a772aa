// Package stage implements the checkpoint store: a process-wide,
// human-readable progress record (`stage.toml`) with per-task atomic
// checkpoint cells, write-then-rename persistence, and a small set of
// legacy field aliases for backward compatibility.
package stage

import "sync/atomic"

// DefaultCut is the partition width chosen when a data directory has none
// recorded yet.
const DefaultCut = uint64(1_000_000)

// Default first-observation heights for the two factory contracts, used
// when a stage file is absent or does not record that factory's checkpoint.
const (
	DefaultUniswapFactoryStart = uint64(9_000_000)
	DefaultUniswap3FactoryStart = uint64(11_000_000)
)

// ContractTask is a per-contract task descriptor: the contract address, a
// creation-height hint for first-time checkpoint initialization, and a
// shared, atomically-updated checkpoint cell.
type ContractTask struct {
	Contract   string
	Created    uint64
	Checkpoint *atomic.Uint64
}

// NewContractTask builds a descriptor with its checkpoint cell initialized
// to floor(created/CUT)*CUT if checkpoint is zero, the lifecycle rule for
// a contract's first observation.
func NewContractTask(contract string, created uint64, checkpoint uint64, cut uint64) *ContractTask {
	if checkpoint == 0 && cut > 0 {
		checkpoint = (created / cut) * cut
	}
	ck := &atomic.Uint64{}
	ck.Store(checkpoint)
	return &ContractTask{Contract: contract, Created: created, Checkpoint: ck}
}

// Stage is the in-memory, process-wide progress record. The top record is
// uniquely owned by the main driver; only the per-task atomic checkpoint
// cells are shared with per-task event listeners.
type Stage struct {
	Cut uint64

	BlockMetrics              *atomic.Uint64
	UniswapFactoryEvents      *atomic.Uint64
	Uniswap3FactoryEvents     *atomic.Uint64
	PendleMarketFactoryEvents *atomic.Uint64

	UniswapPairEvents  []*ContractTask
	Uniswap3PairEvents []*ContractTask
	PendleMarketEvents []*ContractTask
}

// NewDefault returns the default stage used when no stage.toml exists yet.
func NewDefault() *Stage {
	blockMetrics := &atomic.Uint64{}
	uniswapFactory := &atomic.Uint64{}
	uniswapFactory.Store(DefaultUniswapFactoryStart)
	uniswap3Factory := &atomic.Uint64{}
	uniswap3Factory.Store(DefaultUniswap3FactoryStart)
	pendleFactory := &atomic.Uint64{}

	return &Stage{
		Cut:                       DefaultCut,
		BlockMetrics:              blockMetrics,
		UniswapFactoryEvents:      uniswapFactory,
		Uniswap3FactoryEvents:     uniswap3Factory,
		PendleMarketFactoryEvents: pendleFactory,
	}
}

// FindOrAddContractTask looks up a per-contract task by address in the
// given ordered slice, appending a newly initialized one (insertion order
// preserved) if absent.
func FindOrAddContractTask(tasks *[]*ContractTask, contract string, created uint64, cut uint64) *ContractTask {
	for _, t := range *tasks {
		if t.Contract == contract {
			return t
		}
	}
	t := NewContractTask(contract, created, 0, cut)
	*tasks = append(*tasks, t)
	return t
}
