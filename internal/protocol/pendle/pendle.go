// Package pendle decodes Pendle v2 market-factory and market-activity logs.
// ABI-binding glue for auxiliary contract-call enrichment is out of scope,
// so enrichment is expressed as an injectable MarketEnricher; the shipped
// NoopEnricher always reports "not available" and the decoder degrades
// gracefully.
package pendle

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clouds56/evmstage/internal/columnar"
	"github.com/clouds56/evmstage/internal/decode"
	"github.com/clouds56/evmstage/internal/errs"
)

// Topic0 digests for the Pendle v2 factory and market event families.
var (
	TopicCreateNewMarket = common.HexToHash("0xae811fae25e2770b6bd1dcb1475657e8c3a976f91d1ebf081271db08eef920af")

	TopicMint              = common.HexToHash("0xb4c03061fb5b7fed76389d5af8f2e0ddb09f8c70d1333abbb62582835e10accb")
	TopicUpdateImpliedRate = common.HexToHash("0x5c0e21d57bb4cf91d8fe238d6f92e2685a695371b19209afcce6217b478f83e1")
	TopicSwap              = common.HexToHash("0x829000a5bc6a12d46e30cdcecd7c56b1efd88f6d7d059da6734a04f3764557c4")
	TopicBurn              = common.HexToHash("0x4cf25bc1d991c17529c25213d3cc0cda295eeaad5f13f361969b12ea48015f90")
	TopicRedeemRewards     = common.HexToHash("0x78d61a0c27b13f43911095f9f356f14daa3cd8b125eea1aa22421245e90e813d")
	TopicApproval          = common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925")
	TopicTransfer          = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
)

// AssetType enumerates the underlying-asset kind reported by enrichment.
type AssetType int

const (
	AssetTypeToken AssetType = iota
	AssetTypeLiquidity
)

// MarketInfo is the best-effort metadata attached to a freshly created
// market via synchronous contract calls.
type MarketInfo struct {
	Expiry       uint64
	RewardTokens []common.Address
	SYAddress    common.Address
	AssetType    AssetType
	AssetAddress common.Address
	AssetDecimal uint8
}

// MarketEnricher attaches MarketInfo to a newly created market. The bool
// return reports availability; false means enrichment failed or is
// unsupported and all enriched columns should be emitted null.
type MarketEnricher interface {
	Enrich(ctx context.Context, market common.Address) (MarketInfo, bool)
}

// NoopEnricher never enriches; it is the shipped default since the real
// ABI bindings for contract-call enrichment are out of scope.
type NoopEnricher struct{}

func (NoopEnricher) Enrich(context.Context, common.Address) (MarketInfo, bool) {
	return MarketInfo{}, false
}

// FactoryRow is a CreateNewMarket record, optionally enriched.
type FactoryRow struct {
	Height        uint64   `parquet:"height"`
	BlockIndex    uint64   `parquet:"block_index"`
	Contract      string   `parquet:"contract"`
	TxHash        string   `parquet:"tx_hash"`
	MarketAddress string   `parquet:"market_address"`
	PTAddress     string   `parquet:"pt_address"`
	Scala         float64  `parquet:"scala"`
	Anchor        float64  `parquet:"anchor"`
	FeeRate       float64  `parquet:"fee_rate"`

	Expiry       *uint64  `parquet:"expiry,optional"`
	RewardTokens []string `parquet:"reward_tokens,optional"`
	SYAddress    *string  `parquet:"sy_address,optional"`
	AssetType    *string  `parquet:"asset_type,optional"`
	AssetAddress *string  `parquet:"asset_address,optional"`
	AssetDecimal *uint32  `parquet:"asset_decimal,optional"`
}

func (t AssetType) String() string {
	if t == AssetTypeLiquidity {
		return "Liquidity"
	}
	return "Token"
}

// DecodeFactory decodes a CreateNewMarket log, then best-effort enriches it
// via the given MarketEnricher.
func DecodeFactory(ctx context.Context, v decode.LogView, enricher MarketEnricher) (FactoryRow, error) {
	marketW, err := v.Topic1()
	if err != nil {
		return FactoryRow{}, err
	}
	ptW, err := v.Topic2()
	if err != nil {
		return FactoryRow{}, err
	}
	scalaW, err := v.Arg(0)
	if err != nil {
		return FactoryRow{}, err
	}
	anchorW, err := v.Arg(1)
	if err != nil {
		return FactoryRow{}, err
	}
	feeRateW, err := v.Arg(2)
	if err != nil {
		return FactoryRow{}, err
	}

	market, err := decode.AsAddress(marketW)
	if err != nil {
		return FactoryRow{}, err
	}
	pt, err := decode.AsAddress(ptW)
	if err != nil {
		return FactoryRow{}, err
	}
	scala, err := decode.AsI128(scalaW)
	if err != nil {
		return FactoryRow{}, err
	}
	anchor, err := decode.AsI128(anchorW)
	if err != nil {
		return FactoryRow{}, err
	}

	row := FactoryRow{
		Height:        v.Height,
		BlockIndex:    uint64(v.LogIndexInBlock),
		Contract:      v.Contract.Hex(),
		TxHash:        columnar.FormatHash(v.TxHash),
		MarketAddress: market.Hex(),
		PTAddress:     pt.Hex(),
		Scala:         decode.ScaleFloat(scala, 18),
		Anchor:        decode.ScaleFloat(anchor, 18),
		FeeRate:       decode.ScaleFloat(decode.AsU256(feeRateW), 18),
	}

	if enricher == nil {
		enricher = NoopEnricher{}
	}
	if info, ok := enricher.Enrich(ctx, market); ok {
		expiry := info.Expiry
		row.Expiry = &expiry
		for _, t := range info.RewardTokens {
			row.RewardTokens = append(row.RewardTokens, t.Hex())
		}
		sy := info.SYAddress.Hex()
		row.SYAddress = &sy
		at := info.AssetType.String()
		row.AssetType = &at
		aa := info.AssetAddress.Hex()
		row.AssetAddress = &aa
		ad := uint32(info.AssetDecimal)
		row.AssetDecimal = &ad
	}

	return row, nil
}

// MarketAction tags the seven market-activity event kinds.
type MarketAction string

const (
	ActionMint     MarketAction = "Mint"
	ActionSwap     MarketAction = "Swap"
	ActionRate     MarketAction = "Rate"
	ActionBurn     MarketAction = "Burn"
	ActionRewards  MarketAction = "Rewards"
	ActionTransfer MarketAction = "Transfer"
	ActionApproval MarketAction = "Approval"
)

var actionByTopic = map[common.Hash]MarketAction{
	TopicSwap:              ActionSwap,
	TopicMint:              ActionMint,
	TopicBurn:              ActionBurn,
	TopicUpdateImpliedRate: ActionRate,
	TopicRedeemRewards:     ActionRewards,
	TopicApproval:          ActionApproval,
	TopicTransfer:          ActionTransfer,
}

// MarketRow is a single market-activity record; unpopulated fields are nil.
// Mint is positive, Burn is negative, on the same LP/SY/PT fields.
type MarketRow struct {
	Height     uint64   `parquet:"height"`
	BlockIndex uint64   `parquet:"block_index"`
	Contract   string   `parquet:"contract"`
	TxHash     string   `parquet:"tx_hash"`
	Action     string   `parquet:"action"`
	Sender     *string  `parquet:"sender,optional"`
	To         *string  `parquet:"to,optional"`
	Value      *float64 `parquet:"value,optional"`      // LP
	PTValue    *float64 `parquet:"pt_value,optional"`
	SYValue    *float64 `parquet:"tt_value,optional"`
	Fee1       *float64 `parquet:"fee1,optional"`        // netSyFee
	Fee2       *float64 `parquet:"fee2,optional"`        // netSyToReserve
	LnFeeRate  *float64 `parquet:"ln_fee_rate,optional"`
}

// DecodeMarket dispatches on topic0 and decodes the matching market-action tag.
func DecodeMarket(v decode.LogView) (MarketRow, error) {
	action, ok := actionByTopic[v.Topic0()]
	if !ok {
		return MarketRow{}, fmt.Errorf("%w: topic0 %s", errs.ErrUnknownTopic, v.Topic0())
	}
	row := MarketRow{
		Height:     v.Height,
		BlockIndex: uint64(v.LogIndexInBlock),
		Contract:   v.Contract.Hex(),
		TxHash:     columnar.FormatHash(v.TxHash),
		Action:     string(action),
	}

	addrTopic := func(get func() (decode.Word, error)) (*string, error) {
		w, err := get()
		if err != nil {
			return nil, err
		}
		a, err := decode.AsAddress(w)
		if err != nil {
			return nil, err
		}
		s := a.Hex()
		return &s, nil
	}
	i128 := func(i int) (*float64, error) {
		w, err := v.Arg(i)
		if err != nil {
			return nil, err
		}
		n, err := decode.AsI128(w)
		if err != nil {
			return nil, err
		}
		f := decode.BigToFloat(n)
		return &f, nil
	}
	negI128 := func(i int) (*float64, error) {
		w, err := v.Arg(i)
		if err != nil {
			return nil, err
		}
		n, err := decode.AsI128(w)
		if err != nil {
			return nil, err
		}
		f := decode.BigToFloat(decode.NegBig(n))
		return &f, nil
	}
	u128 := func(i int) (*float64, error) {
		w, err := v.Arg(i)
		if err != nil {
			return nil, err
		}
		f := decode.BigToFloat(decode.AsU128(w))
		return &f, nil
	}

	switch action {
	case ActionMint:
		to, err := addrTopic(v.Topic1)
		if err != nil {
			return MarketRow{}, err
		}
		value, err := i128(0)
		if err != nil {
			return MarketRow{}, err
		}
		sy, err := i128(1)
		if err != nil {
			return MarketRow{}, err
		}
		pt, err := i128(2)
		if err != nil {
			return MarketRow{}, err
		}
		row.To = to
		row.Value, row.SYValue, row.PTValue = value, sy, pt

	case ActionSwap:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return MarketRow{}, err
		}
		to, err := addrTopic(v.Topic2)
		if err != nil {
			return MarketRow{}, err
		}
		pt, err := i128(0)
		if err != nil {
			return MarketRow{}, err
		}
		sy, err := i128(1)
		if err != nil {
			return MarketRow{}, err
		}
		fee1, err := u128(2)
		if err != nil {
			return MarketRow{}, err
		}
		fee2, err := u128(3)
		if err != nil {
			return MarketRow{}, err
		}
		row.Sender, row.To = sender, to
		row.PTValue, row.SYValue = pt, sy
		row.Fee1, row.Fee2 = fee1, fee2

	case ActionRate:
		rate, err := i128(0)
		if err != nil {
			return MarketRow{}, err
		}
		row.LnFeeRate = rate

	case ActionBurn:
		to, err := addrTopic(v.Topic1)
		if err != nil {
			return MarketRow{}, err
		}
		value, err := negI128(0)
		if err != nil {
			return MarketRow{}, err
		}
		sy, err := negI128(1)
		if err != nil {
			return MarketRow{}, err
		}
		pt, err := negI128(2)
		if err != nil {
			return MarketRow{}, err
		}
		row.To = to
		row.Value, row.SYValue, row.PTValue = value, sy, pt

	case ActionRewards:
		to, err := addrTopic(v.Topic1)
		if err != nil {
			return MarketRow{}, err
		}
		row.To = to

	case ActionTransfer, ActionApproval:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return MarketRow{}, err
		}
		to, err := addrTopic(v.Topic2)
		if err != nil {
			return MarketRow{}, err
		}
		row.Sender, row.To = sender, to
	}

	return row, nil
}
