package rpcfetch

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

// BlockFanout is the default in-flight bound for block enumeration.
const BlockFanout = 500

// EnumerateBlocks fetches every block with full transactions over [s, e)
// with an in-flight bound of fanout (or BlockFanout if fanout is zero),
// depositing results into an index-addressable buffer rather than reducing
// them in arrival order. Failure of any individual fetch is fatal to the
// batch.
func (c *Client) EnumerateBlocks(ctx context.Context, s, e uint64, fanout int) ([]*types.Block, error) {
	if fanout == 0 {
		fanout = BlockFanout
	}
	return c.enumerateBlocks(ctx, s, e, fanout)
}

func (c *Client) enumerateBlocks(ctx context.Context, s, e uint64, fanout int) ([]*types.Block, error) {
	if e < s {
		return nil, fmt.Errorf("invalid range [%d, %d)", s, e)
	}
	n := int(e - s)
	out := make([]*types.Block, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanout)
	for i := 0; i < n; i++ {
		i := i
		height := s + uint64(i)
		g.Go(func() error {
			block, err := c.blockByNumber(gctx, height)
			if err != nil {
				return err
			}
			out[i] = block
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
