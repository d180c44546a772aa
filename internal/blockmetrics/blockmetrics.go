// Package blockmetrics implements the block_metrics task: per-block
// aggregates (tx count, total value transferred, gas used, total fee,
// fee per gas) that are not a protocol decoder but ride the same job
// runtime as the Uniswap and Pendle decoders.
package blockmetrics

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/clouds56/evmstage/internal/rpcfetch"
)

// Row is one block's aggregated metrics.
type Row struct {
	Height     uint64  `parquet:"height"`
	Timestamp  uint64  `parquet:"timestamp"`
	TxCount    uint32  `parquet:"tx_count"`
	TotalEth   float64 `parquet:"total_eth"`
	GasUsed    uint64  `parquet:"gas_used"`
	TotalFee   uint64  `parquet:"total_fee"`
	FeePerGas  uint64  `parquet:"fee_per_gas"`
}

var weiPerEth = new(big.Float).SetFloat64(1e18)
var weiPerGwei = big.NewInt(1_000_000_000)

// txLike is the subset of *types.Transaction aggregateTxs needs, kept as
// an interface so the aggregation math is testable without constructing
// real go-ethereum transactions.
type txLike interface {
	GasPrice() *big.Int
	Gas() uint64
	Value() *big.Int
}

// aggregateTxs sums gas fee (in wei) and transferred value (in ether)
// across a block's transactions.
func aggregateTxs(txs []txLike) (totalFeeWei *big.Int, totalEth float64) {
	feeWei := new(big.Int)
	ethSum := new(big.Float)
	for _, tx := range txs {
		gasPrice := tx.GasPrice()
		if gasPrice == nil {
			gasPrice = big.NewInt(0)
		}
		fee := new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(tx.Gas()))
		feeWei.Add(feeWei, fee)

		if v := tx.Value(); v != nil {
			ethValue := new(big.Float).Quo(new(big.Float).SetInt(v), weiPerEth)
			ethSum.Add(ethSum, ethValue)
		}
	}
	f, _ := ethSum.Float64()
	return feeWei, f
}

// aggregateBlock reduces one fetched block into its Row.
func aggregateBlock(block *types.Block) Row {
	txs := block.Transactions()
	txLikes := make([]txLike, len(txs))
	for i, tx := range txs {
		txLikes[i] = tx
	}

	totalFeeWei, totalEth := aggregateTxs(txLikes)
	totalFeeGwei := new(big.Int).Div(totalFeeWei, weiPerGwei)

	gasUsed := block.GasUsed()
	feePerGas := new(big.Int)
	if gasUsed > 0 {
		feePerGas.Div(totalFeeWei, new(big.Int).SetUint64(gasUsed))
	}

	return Row{
		Height:    block.NumberU64(),
		Timestamp: block.Time(),
		TxCount:   uint32(len(txs)),
		TotalEth:  totalEth,
		GasUsed:   gasUsed,
		TotalFee:  totalFeeGwei.Uint64(),
		FeePerGas: feePerGas.Uint64(),
	}
}

// Build fetches [s, e) with full transactions, at most fanout in flight at
// once, and aggregates them into rows, one per height, in ascending order.
func Build(ctx context.Context, client *rpcfetch.Client, s, e uint64, fanout int) ([]Row, error) {
	blocks, err := client.EnumerateBlocks(ctx, s, e, fanout)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(blocks))
	for i, block := range blocks {
		rows[i] = aggregateBlock(block)
	}
	return rows, nil
}
