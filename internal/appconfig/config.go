// Package appconfig loads the process environment into a typed Config.
// There is no config.toml layer here, only the two required environment
// variables plus a handful of implementation-quality overrides left to
// the caller.
package appconfig

import (
	"fmt"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	defaultDataDir        = "data"
	defaultRPCHostPort    = "127.0.0.1:8545"
	defaultCut            = uint64(1_000_000)
	defaultConfirmations  = uint64(0)
	defaultBlockFanout    = 500
	defaultFactoryWindow  = uint64(10_000)
	defaultPairWindow     = uint64(2_000)
)

// Config holds the resolved runtime configuration for a sweep.
type Config struct {
	DataDir       string
	Endpoint      string
	Cut           uint64
	Confirmations uint64
	BlockFanout   int
	FactoryWindow uint64
	PairWindow    uint64
}

// Load reads DATA_DIR, RETH_HTTP_RPC and the optional EVMSTAGE_* overrides
// from the process environment.
func Load() (Config, error) {
	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	dataDir := k.String("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	hostPort := k.String("RETH_HTTP_RPC")
	if hostPort == "" {
		hostPort = defaultRPCHostPort
	}

	cfg := Config{
		DataDir:       dataDir,
		Endpoint:      "http://" + hostPort,
		Cut:           orDefaultU64(k.Int64("EVMSTAGE_CUT"), defaultCut),
		Confirmations: orDefaultU64(k.Int64("EVMSTAGE_CONFIRMATIONS"), defaultConfirmations),
		BlockFanout:   orDefaultInt(k.Int("EVMSTAGE_BLOCK_FANOUT"), defaultBlockFanout),
		FactoryWindow: orDefaultU64(k.Int64("EVMSTAGE_FACTORY_WINDOW"), defaultFactoryWindow),
		PairWindow:    orDefaultU64(k.Int64("EVMSTAGE_PAIR_WINDOW"), defaultPairWindow),
	}
	return cfg, nil
}

func orDefaultU64(v int64, def uint64) uint64 {
	if v <= 0 {
		return def
	}
	return uint64(v)
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
