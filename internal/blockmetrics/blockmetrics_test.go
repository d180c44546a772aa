package blockmetrics

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	gasPrice *big.Int
	gas      uint64
	value    *big.Int
}

func (f fakeTx) GasPrice() *big.Int { return f.gasPrice }
func (f fakeTx) Gas() uint64        { return f.gas }
func (f fakeTx) Value() *big.Int    { return f.value }

func TestAggregateTxsSumsFeeAndValue(t *testing.T) {
	txs := []txLike{
		fakeTx{gasPrice: big.NewInt(20_000_000_000), gas: 21_000, value: big.NewInt(1e18)},  // 1 eth, 21000 gwei*20 fee
		fakeTx{gasPrice: big.NewInt(10_000_000_000), gas: 50_000, value: big.NewInt(5e17)}, // 0.5 eth
	}

	feeWei, totalEth := aggregateTxs(txs)

	wantFee := new(big.Int).Add(
		new(big.Int).Mul(big.NewInt(20_000_000_000), big.NewInt(21_000)),
		new(big.Int).Mul(big.NewInt(10_000_000_000), big.NewInt(50_000)),
	)
	require.Equal(t, wantFee, feeWei)
	require.InDelta(t, 1.5, totalEth, 1e-9)
}

func TestAggregateTxsEmpty(t *testing.T) {
	feeWei, totalEth := aggregateTxs(nil)
	require.Equal(t, big.NewInt(0), feeWei)
	require.Equal(t, 0.0, totalEth)
}

func TestAggregateTxsNilGasPrice(t *testing.T) {
	txs := []txLike{fakeTx{gasPrice: nil, gas: 21_000, value: nil}}
	feeWei, totalEth := aggregateTxs(txs)
	require.Equal(t, big.NewInt(0), feeWei)
	require.Equal(t, 0.0, totalEth)
}
