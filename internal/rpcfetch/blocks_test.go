package rpcfetch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestEnumerateBlocksRejectsInvertedRange exercises the range check that
// runs before any network call, so it needs no live RPC endpoint.
func TestEnumerateBlocksRejectsInvertedRange(t *testing.T) {
	c := &Client{}
	_, err := c.enumerateBlocks(context.Background(), 10, 5, BlockFanout)
	require.Error(t, err)
}
