package rpcfetch

import (
	"context"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Default window sizes for log pagination.
const (
	FactoryWindow = uint64(10_000)
	PairWindow    = uint64(2_000)
)

// window is one [from, to] inclusive block range to scan.
type window struct {
	from, to uint64
}

// windows splits [s, e) into contiguous, inclusive fixed-size ranges of at
// most size blocks each, in ascending order.
func windows(s, e, size uint64) []window {
	if size == 0 || e <= s {
		return nil
	}
	out := make([]window, 0, (e-s)/size+1)
	for from := s; from < e; from += size {
		to := from + size - 1
		if to >= e {
			to = e - 1
		}
		out = append(out, window{from: from, to: to})
	}
	return out
}

// EnumerateLogs scans [s, e) in contiguous, inclusive fixed windows of the
// given size, strictly sequentially (concurrency=1), filtering out any log
// with the removed flag set. topic0 and address are optional filters.
func (c *Client) EnumerateLogs(ctx context.Context, s, e uint64, windowSize uint64, topic0 *common.Hash, address *common.Address) ([]types.Log, error) {
	if windowSize == 0 {
		windowSize = PairWindow
	}
	var out []types.Log
	for _, w := range windows(s, e, windowSize) {
		from, to := w.from, w.to

		q := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
		}
		if address != nil {
			q.Addresses = []common.Address{*address}
		}
		if topic0 != nil {
			q.Topics = [][]common.Hash{{*topic0}}
		}

		logs, err := c.filterLogs(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, l := range logs {
			if l.Removed {
				continue
			}
			out = append(out, l)
		}
	}
	return out, nil
}
