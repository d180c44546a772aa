package stage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAbsentReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	result, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, DefaultCut, result.Stage.Cut)
	require.Equal(t, DefaultUniswapFactoryStart, result.Stage.UniswapFactoryEvents.Load())
	require.False(t, result.LegacyFactory)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	s := NewDefault()
	s.BlockMetrics.Store(1234)
	s.UniswapPairEvents = append(s.UniswapPairEvents, NewContractTask("0xabc", 9_000_000, 9_500_000, s.Cut))

	require.NoError(t, Save(dir, s))

	result, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, uint64(1234), result.Stage.BlockMetrics.Load())
	require.Len(t, result.Stage.UniswapPairEvents, 1)
	require.Equal(t, "0xabc", result.Stage.UniswapPairEvents[0].Contract)
	require.Equal(t, uint64(9_500_000), result.Stage.UniswapPairEvents[0].Checkpoint.Load())
}

func TestLoadLegacyFactoryAlias(t *testing.T) {
	dir := t.TempDir()
	content := "uniswap_factory = 9500000\nuniswap_factory_events = 9000000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	result, err := Load(dir)
	require.NoError(t, err)
	require.True(t, result.LegacyFactory)
	require.Equal(t, uint64(9500000), result.LegacyFactoryCk)
	// Load reports the legacy checkpoint but does not merge it into the
	// stage; that decision belongs to the caller, which must compare it
	// against the checkpoint below before migrating any partition files.
	require.Equal(t, uint64(9000000), result.Stage.UniswapFactoryEvents.Load())
}

func TestLoadLegacyCratedAlias(t *testing.T) {
	dir := t.TempDir()
	content := "[[uniswap_pair_events]]\ncontract = \"0xabc\"\ncrated = 9100000\ncheckpoint = 9100000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))

	result, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, result.Stage.UniswapPairEvents, 1)
	require.Equal(t, uint64(9100000), result.Stage.UniswapPairEvents[0].Created)
}

func TestLoadMalformedFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("not = [valid toml"), 0o644))
	_, err := Load(dir)
	require.Error(t, err)
}
