// Package rpcfetch is the RPC access layer: bounded-concurrency block
// enumeration and fixed-window log pagination over a standard Ethereum
// JSON-RPC endpoint.
package rpcfetch

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"github.com/clouds56/evmstage/internal/errs"
	"github.com/clouds56/evmstage/internal/metrics"
	"github.com/clouds56/evmstage/internal/obslog"
)

// Client wraps a single JSON-RPC endpoint for block and log enumeration.
type Client struct {
	rpc    *ethclient.Client
	logger zerolog.Logger
}

// Dial connects to the given HTTP JSON-RPC endpoint.
func Dial(endpoint string) (*Client, error) {
	rpc, err := ethclient.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("connect rpc endpoint %s: %w", endpoint, err)
	}
	return &Client{rpc: rpc, logger: obslog.Component("rpcfetch")}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// ChainHead returns the current chain head height.
func (c *Client) ChainHead(ctx context.Context) (uint64, error) {
	n, err := c.rpc.BlockNumber(ctx)
	if err != nil {
		metrics.RPCErrorsTotal.Inc()
		return 0, fmt.Errorf("%w: block number: %w", errs.ErrTransientRPC, err)
	}
	return n, nil
}

// blockByNumber fetches a single block with full transactions, filling in
// the number field if the server returned it null.
func (c *Client) blockByNumber(ctx context.Context, height uint64) (*types.Block, error) {
	block, err := c.rpc.BlockByNumber(ctx, new(big.Int).SetUint64(height))
	if err != nil {
		metrics.RPCErrorsTotal.Inc()
		return nil, fmt.Errorf("%w: block %d: %w", errs.ErrTransientRPC, height, err)
	}
	if block.NumberU64() == 0 && height != 0 {
		header := types.CopyHeader(block.Header())
		header.Number = new(big.Int).SetUint64(height)
		block = block.WithSeal(header)
	}
	return block, nil
}

// filterLogs queries logs matching the given filter.
func (c *Client) filterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	logs, err := c.rpc.FilterLogs(ctx, q)
	if err != nil {
		metrics.RPCErrorsTotal.Inc()
		return nil, fmt.Errorf("%w: filter logs %d..%d: %w", errs.ErrTransientRPC, q.FromBlock, q.ToBlock, err)
	}
	return logs, nil
}
