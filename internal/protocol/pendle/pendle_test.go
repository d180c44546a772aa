package pendle

import (
	"context"
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

func TestDecodeFactoryNoEnrichment(t *testing.T) {
	market := common.HexToAddress("0x0000000000000000000000000000000000000a")
	pt := common.HexToAddress("0x0000000000000000000000000000000000000b")
	var scala, anchor, feeRate decode.Word
	scala[31] = 1

	l := types.Log{
		Topics: []common.Hash{TopicCreateNewMarket, common.Hash(wordAddr(market)), common.Hash(wordAddr(pt))},
		Data:   append(append(scala[:], anchor[:]...), feeRate[:]...),
	}
	v, err := decode.NewLogView(l)
	require.NoError(t, err)

	row, err := DecodeFactory(context.Background(), v, nil)
	require.NoError(t, err)
	require.Equal(t, market.Hex(), row.MarketAddress)
	require.Nil(t, row.Expiry)
}

type fakeEnricher struct{}

func (fakeEnricher) Enrich(context.Context, common.Address) (MarketInfo, bool) {
	return MarketInfo{Expiry: 123, AssetType: AssetTypeLiquidity}, true
}

func TestDecodeFactoryWithEnrichment(t *testing.T) {
	market := common.HexToAddress("0x0000000000000000000000000000000000000a")
	pt := common.HexToAddress("0x0000000000000000000000000000000000000b")
	var scala, anchor, feeRate decode.Word

	l := types.Log{
		Topics: []common.Hash{TopicCreateNewMarket, common.Hash(wordAddr(market)), common.Hash(wordAddr(pt))},
		Data:   append(append(scala[:], anchor[:]...), feeRate[:]...),
	}
	v, err := decode.NewLogView(l)
	require.NoError(t, err)

	row, err := DecodeFactory(context.Background(), v, fakeEnricher{})
	require.NoError(t, err)
	require.NotNil(t, row.Expiry)
	require.Equal(t, uint64(123), *row.Expiry)
	require.Equal(t, "Liquidity", *row.AssetType)
}
