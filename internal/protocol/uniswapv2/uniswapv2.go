// Package uniswapv2 decodes Uniswap V2 factory and pair logs.
package uniswapv2

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clouds56/evmstage/internal/columnar"
	"github.com/clouds56/evmstage/internal/decode"
	"github.com/clouds56/evmstage/internal/errs"
)

// Topic0 digests for the V2 factory and pair event families.
var (
	TopicPairCreated = common.HexToHash("0x0d3648bd0f6ba80134a33ba9275ac585d9d315f0ad8355cddefde31afa28d0e9")

	TopicSync     = common.HexToHash("0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1")
	TopicSwap     = common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	TopicTransfer = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	TopicMint     = common.HexToHash("0x4c209b5fc8ad50758f13e2e1088ba56a560dff690a1c6fef26394f4c03821c4f")
	TopicApproval = common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925")
	TopicBurn     = common.HexToHash("0xdccd412f0b1252819cb1fd330b93224ca42612892bb3f4f789976e6d81936496")
)

// FactoryRow is a PairCreated record.
type FactoryRow struct {
	Height        uint64 `parquet:"height"`
	BlockIndex    uint64 `parquet:"block_index"`
	Contract      string `parquet:"contract"`
	TxHash        string `parquet:"tx_hash"`
	Token0        string `parquet:"token0"`
	Token1        string `parquet:"token1"`
	Pair          string `parquet:"pair"`
	AllPairCount  uint64 `parquet:"all_pair_count"`
}

// DecodeFactory decodes a PairCreated log into a FactoryRow.
func DecodeFactory(v decode.LogView) (FactoryRow, error) {
	token0w, err := v.Topic1()
	if err != nil {
		return FactoryRow{}, err
	}
	token1w, err := v.Topic2()
	if err != nil {
		return FactoryRow{}, err
	}
	pairw, err := v.Arg(0)
	if err != nil {
		return FactoryRow{}, err
	}
	countw, err := v.Arg(1)
	if err != nil {
		return FactoryRow{}, err
	}
	token0, err := decode.AsAddress(token0w)
	if err != nil {
		return FactoryRow{}, err
	}
	token1, err := decode.AsAddress(token1w)
	if err != nil {
		return FactoryRow{}, err
	}
	pair, err := decode.AsAddress(pairw)
	if err != nil {
		return FactoryRow{}, err
	}
	return FactoryRow{
		Height:       v.Height,
		BlockIndex:   uint64(v.LogIndexInBlock),
		Contract:     v.Contract.Hex(),
		TxHash:       columnar.FormatHash(v.TxHash),
		Token0:       token0.Hex(),
		Token1:       token1.Hex(),
		Pair:         pair.Hex(),
		AllPairCount: decode.AsU64(countw),
	}, nil
}

// PairAction tags the six pair-activity event kinds.
type PairAction string

const (
	ActionSync     PairAction = "Sync"
	ActionSwap     PairAction = "Swap"
	ActionTransfer PairAction = "Transfer"
	ActionMint     PairAction = "Mint"
	ActionApproval PairAction = "Approval"
	ActionBurn     PairAction = "Burn"
)

var actionByTopic = map[common.Hash]PairAction{
	TopicSync:     ActionSync,
	TopicSwap:     ActionSwap,
	TopicTransfer: ActionTransfer,
	TopicMint:     ActionMint,
	TopicApproval: ActionApproval,
	TopicBurn:     ActionBurn,
}

// PairRow is a single pair-activity record; unpopulated fields are nil.
type PairRow struct {
	Height     uint64  `parquet:"height"`
	BlockIndex uint64  `parquet:"block_index"`
	Contract   string  `parquet:"contract"`
	TxHash     string  `parquet:"tx_hash"`
	Action     string  `parquet:"action"`
	Sender     *string `parquet:"sender,optional"`
	To         *string `parquet:"to,optional"`
	ValueIn    *float64 `parquet:"value_in,optional"`
	ValueOut   *float64 `parquet:"value_out,optional"`
	Amount0In  *float64 `parquet:"amount0_in,optional"`
	Amount1In  *float64 `parquet:"amount1_in,optional"`
	Amount0Out *float64 `parquet:"amount0_out,optional"`
	Amount1Out *float64 `parquet:"amount1_out,optional"`
	Reserve0   *float64 `parquet:"reserve0,optional"`
	Reserve1   *float64 `parquet:"reserve1,optional"`
}

// DecodePair dispatches on topic0 and decodes the matching pair-action tag.
func DecodePair(v decode.LogView) (PairRow, error) {
	action, ok := actionByTopic[v.Topic0()]
	if !ok {
		return PairRow{}, fmt.Errorf("%w: topic0 %s", errs.ErrUnknownTopic, v.Topic0())
	}
	row := PairRow{
		Height:     v.Height,
		BlockIndex: uint64(v.LogIndexInBlock),
		Contract:   v.Contract.Hex(),
		TxHash:     columnar.FormatHash(v.TxHash),
		Action:     string(action),
	}

	u128 := func(i int) (*float64, error) {
		w, err := v.Arg(i)
		if err != nil {
			return nil, err
		}
		f := decode.BigToFloat(decode.AsU128(w))
		return &f, nil
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

	switch action {
	case ActionSync:
		r0, err := u128(0)
		if err != nil {
			return PairRow{}, err
		}
		r1, err := u128(1)
		if err != nil {
			return PairRow{}, err
		}
		row.Reserve0, row.Reserve1 = r0, r1

	case ActionSwap:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return PairRow{}, err
		}
		to, err := addrTopic(v.Topic2)
		if err != nil {
			return PairRow{}, err
		}
		a0i, err := u128(0)
		if err != nil {
			return PairRow{}, err
		}
		a1i, err := u128(1)
		if err != nil {
			return PairRow{}, err
		}
		a0o, err := u128(2)
		if err != nil {
			return PairRow{}, err
		}
		a1o, err := u128(3)
		if err != nil {
			return PairRow{}, err
		}
		row.Sender, row.To = sender, to
		row.Amount0In, row.Amount1In, row.Amount0Out, row.Amount1Out = a0i, a1i, a0o, a1o

	case ActionTransfer:
		fromW, err := v.Topic1()
		if err != nil {
			return PairRow{}, err
		}
		toW, err := v.Topic2()
		if err != nil {
			return PairRow{}, err
		}
		from, err := decode.AsAddress(fromW)
		if err != nil {
			return PairRow{}, err
		}
		to, err := decode.AsAddress(toW)
		if err != nil {
			return PairRow{}, err
		}
		if from == (common.Address{}) {
			v0, err := u128(0)
			if err != nil {
				return PairRow{}, err
			}
			row.ValueIn = v0
		}
		if to == (common.Address{}) {
			v0, err := u128(0)
			if err != nil {
				return PairRow{}, err
			}
			row.ValueOut = v0
		}

	case ActionMint:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return PairRow{}, err
		}
		a0, err := u128(0)
		if err != nil {
			return PairRow{}, err
		}
		a1, err := u128(1)
		if err != nil {
			return PairRow{}, err
		}
		row.Sender = sender
		row.Amount0In, row.Amount1In = a0, a1

	case ActionApproval:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return PairRow{}, err
		}
		to, err := addrTopic(v.Topic2)
		if err != nil {
			return PairRow{}, err
		}
		row.Sender, row.To = sender, to

	case ActionBurn:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return PairRow{}, err
		}
		to, err := addrTopic(v.Topic2)
		if err != nil {
			return PairRow{}, err
		}
		a0, err := u128(0)
		if err != nil {
			return PairRow{}, err
		}
		a1, err := u128(1)
		if err != nil {
			return PairRow{}, err
		}
		row.Sender, row.To = sender, to
		row.Amount0Out, row.Amount1Out = a0, a1
	}

	return row, nil
}
