package uniswapv3

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/clouds56/evmstage/internal/decode"
)

func wordAddr(addr common.Address) decode.Word {
	var w decode.Word
	copy(w[12:], addr[:])
	return w
}

func wordMinusOneEther() decode.Word {
	// -1e18 as 256-bit two's complement.
	var w decode.Word
	for i := range w {
		w[i] = 0xff
	}
	// low 128 bits hold two's complement of 1e18; compute via big math inline.
	// 1e18 = 0x0de0b6b3a7640000
	v := []byte{0x0d, 0xe0, 0xb6, 0xb3, 0xa7, 0x64, 0x00, 0x00}
	// two's complement of an 8-byte value within the low 16 bytes: invert+add1
	low := make([]byte, 16)
	copy(low[8:], v)
	carry := byte(1)
	for i := 15; i >= 0; i-- {
		inv := ^low[i]
		sum := inv + carry
		if sum < inv {
			carry = 1
		} else {
			carry = 0
		}
		low[i] = sum
	}
	copy(w[16:], low)
	return w
}

func TestDecodePoolSwapNegativeAmount(t *testing.T) {
	sender := common.HexToAddress("0x00000000000000000000000000000000000001")
	to := common.HexToAddress("0x00000000000000000000000000000000000002")
	var price decode.Word
	price[31] = 1
	var tick decode.Word

	l := types.Log{
		Topics: []common.Hash{TopicSwap, common.Hash(wordAddr(sender)), common.Hash(wordAddr(to))},
		Data: joinWords(
			wordMinusOneEther(),
			wordMinusOneEther(),
			price,
			decode.Word{},
			tick,
		),
	}
	v, err := decode.NewLogView(l)
	require.NoError(t, err)

	row, err := DecodePool(v)
	require.NoError(t, err)
	require.NotNil(t, row.Amount0)
	require.InDelta(t, -1e18, *row.Amount0, 1)
}

func joinWords(words ...decode.Word) []byte {
	out := make([]byte, 0, 32*len(words))
	for _, w := range words {
		out = append(out, w[:]...)
	}
	return out
}
