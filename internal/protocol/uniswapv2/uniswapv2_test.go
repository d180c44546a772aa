package uniswapv2

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

func wordU64(n uint64) decode.Word {
	var w decode.Word
	for i := 0; i < 8; i++ {
		w[31-i] = byte(n >> (8 * i))
	}
	return w
}

func TestDecodeFactory(t *testing.T) {
	token0 := common.HexToAddress("0x0000000000000000000000000000000000000a")
	token1 := common.HexToAddress("0x0000000000000000000000000000000000000b")
	pair := common.HexToAddress("0x0000000000000000000000000000000000000c")

	l := types.Log{
		Topics:      []common.Hash{TopicPairCreated, common.Hash(wordAddr(token0)), common.Hash(wordAddr(token1))},
		Data:        append(wordAddr(pair)[:], wordU64(42)[:]...),
		Address:     common.HexToAddress("0x00000000000000000000000000000000000d0d"),
		BlockNumber: 100,
	}
	v, err := decode.NewLogView(l)
	require.NoError(t, err)

	row, err := DecodeFactory(v)
	require.NoError(t, err)
	require.Equal(t, token0.Hex(), row.Token0)
	require.Equal(t, token1.Hex(), row.Token1)
	require.Equal(t, pair.Hex(), row.Pair)
	require.Equal(t, uint64(42), row.AllPairCount)
}

func TestDecodePairSync(t *testing.T) {
	l := types.Log{
		Topics: []common.Hash{TopicSync},
		Data:   append(wordU64(100)[:], wordU64(200)[:]...),
	}
	v, err := decode.NewLogView(l)
	require.NoError(t, err)

	row, err := DecodePair(v)
	require.NoError(t, err)
	require.Equal(t, string(ActionSync), row.Action)
	require.NotNil(t, row.Reserve0)
	require.Equal(t, float64(100), *row.Reserve0)
	require.Equal(t, float64(200), *row.Reserve1)
}

func TestDecodePairUnknownTopic(t *testing.T) {
	l := types.Log{Topics: []common.Hash{common.HexToHash("0xdead")}}
	v, err := decode.NewLogView(l)
	require.NoError(t, err)
	_, err = DecodePair(v)
	require.Error(t, err)
}
