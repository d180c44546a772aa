// Package uniswapv3 decodes Uniswap V3 factory and pool logs.
package uniswapv3

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clouds56/evmstage/internal/columnar"
	"github.com/clouds56/evmstage/internal/decode"
	"github.com/clouds56/evmstage/internal/errs"
)

// Topic0 digests for the V3 factory and pool event families.
var (
	TopicPoolCreated = common.HexToHash("0x783cca1c0412dd0d695e784568c96da2e9c22ff989357a2e8b1d9b2b4e6b7118")

	TopicInitialize = common.HexToHash("0x98636036cb66a9c19a37435efc1e90142190214e8abeb821bdba3f2990dd4c95")
	TopicFlash      = common.HexToHash("0xbdbdb71d7860376ba52b25a5028beea23581364a40522f6bcfb86bb1f2dca633")
	TopicCollect    = common.HexToHash("0x70935338e69775456a85ddef226c395fb668b63fa0115f5f20610b388e6ca9c0")
	TopicSwap       = common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")
	TopicMint       = common.HexToHash("0x7a53080ba414158be7ec69b987b5fb7d07dee101fe85488f0853ae16239d0bde")
	TopicBurn       = common.HexToHash("0x0c396cd989a39f4459b5fa1aed6a9a8dcdbc45908acfd67e028cd568da98982c")
)

// FactoryRow is a PoolCreated record.
type FactoryRow struct {
	Height      uint64 `parquet:"height"`
	BlockIndex  uint64 `parquet:"block_index"`
	Contract    string `parquet:"contract"`
	TxHash      string `parquet:"tx_hash"`
	Token0      string `parquet:"token0"`
	Token1      string `parquet:"token1"`
	Pool        string `parquet:"pool"`
	Fee         uint32 `parquet:"fee"`
	TickSpacing uint32 `parquet:"tick_spacing"`
}

// DecodeFactory decodes a PoolCreated log into a FactoryRow.
func DecodeFactory(v decode.LogView) (FactoryRow, error) {
	t0w, err := v.Topic1()
	if err != nil {
		return FactoryRow{}, err
	}
	t1w, err := v.Topic2()
	if err != nil {
		return FactoryRow{}, err
	}
	feeW, err := v.Topic3()
	if err != nil {
		return FactoryRow{}, err
	}
	tickW, err := v.Arg(0)
	if err != nil {
		return FactoryRow{}, err
	}
	poolW, err := v.Arg(1)
	if err != nil {
		return FactoryRow{}, err
	}
	token0, err := decode.AsAddress(t0w)
	if err != nil {
		return FactoryRow{}, err
	}
	token1, err := decode.AsAddress(t1w)
	if err != nil {
		return FactoryRow{}, err
	}
	pool, err := decode.AsAddress(poolW)
	if err != nil {
		return FactoryRow{}, err
	}
	return FactoryRow{
		Height:      v.Height,
		BlockIndex:  uint64(v.LogIndexInBlock),
		Contract:    v.Contract.Hex(),
		TxHash:      columnar.FormatHash(v.TxHash),
		Token0:      token0.Hex(),
		Token1:      token1.Hex(),
		Pool:        pool.Hex(),
		Fee:         decode.AsU32(feeW),
		TickSpacing: decode.AsU32(tickW),
	}, nil
}

// PoolAction tags the six pool-activity event kinds.
type PoolAction string

const (
	ActionInitialize PoolAction = "Initialize"
	ActionFlash      PoolAction = "Flash"
	ActionCollect    PoolAction = "Collect"
	ActionSwap       PoolAction = "Swap"
	ActionMint       PoolAction = "Mint"
	ActionBurn       PoolAction = "Burn"
)

var actionByTopic = map[common.Hash]PoolAction{
	TopicInitialize: ActionInitialize,
	TopicFlash:      ActionFlash,
	TopicCollect:    ActionCollect,
	TopicSwap:       ActionSwap,
	TopicMint:       ActionMint,
	TopicBurn:       ActionBurn,
}

// PoolRow is a single pool-activity record; unpopulated fields are nil.
type PoolRow struct {
	Height     uint64   `parquet:"height"`
	BlockIndex uint64   `parquet:"block_index"`
	Contract   string   `parquet:"contract"`
	TxHash     string   `parquet:"tx_hash"`
	Action     string   `parquet:"action"`
	Sender     *string  `parquet:"sender,optional"`
	To         *string  `parquet:"to,optional"`
	TickLower  *int32   `parquet:"tick_lower,optional"`
	TickUpper  *int32   `parquet:"tick_upper,optional"`
	Value      *float64 `parquet:"value,optional"`
	Amount0    *float64 `parquet:"amount0,optional"`
	Amount1    *float64 `parquet:"amount1,optional"`
	Fee0       *float64 `parquet:"fee0,optional"`
	Fee1       *float64 `parquet:"fee1,optional"`
	Price      *float64 `parquet:"price,optional"`
}

// DecodePool dispatches on topic0 and decodes the matching pool-action tag.
func DecodePool(v decode.LogView) (PoolRow, error) {
	action, ok := actionByTopic[v.Topic0()]
	if !ok {
		return PoolRow{}, fmt.Errorf("%w: topic0 %s", errs.ErrUnknownTopic, v.Topic0())
	}
	row := PoolRow{
		Height:     v.Height,
		BlockIndex: uint64(v.LogIndexInBlock),
		Contract:   v.Contract.Hex(),
		TxHash:     columnar.FormatHash(v.TxHash),
		Action:     string(action),
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
	tick := func(get func() (decode.Word, error)) (*int32, error) {
		w, err := get()
		if err != nil {
			return nil, err
		}
		t := decode.AsI32(w)
		return &t, nil
	}
	addr := func(w decode.Word) (*string, error) {
		a, err := decode.AsAddress(w)
		if err != nil {
			return nil, err
		}
		s := a.Hex()
		return &s, nil
	}
	addrTopic := func(get func() (decode.Word, error)) (*string, error) {
		w, err := get()
		if err != nil {
			return nil, err
		}
		return addr(w)
	}

	switch action {
	case ActionInitialize:
		priceW, err := v.Arg(0)
		if err != nil {
			return PoolRow{}, err
		}
		tickLower, err := v.Arg(1)
		if err != nil {
			return PoolRow{}, err
		}
		price := decode.AsQ(priceW, 96)
		row.Price = &price
		tv := decode.AsI32(tickLower)
		row.TickLower = &tv

	case ActionFlash:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return PoolRow{}, err
		}
		to, err := addrTopic(v.Topic2)
		if err != nil {
			return PoolRow{}, err
		}
		f0, err := i128(2)
		if err != nil {
			return PoolRow{}, err
		}
		f1, err := i128(3)
		if err != nil {
			return PoolRow{}, err
		}
		row.Sender, row.To = sender, to
		row.Fee0, row.Fee1 = f0, f1

	case ActionCollect:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return PoolRow{}, err
		}
		toW, err := v.Arg(0)
		if err != nil {
			return PoolRow{}, err
		}
		to, err := addr(toW)
		if err != nil {
			return PoolRow{}, err
		}
		tl, err := tick(v.Topic2)
		if err != nil {
			return PoolRow{}, err
		}
		tu, err := tick(v.Topic3)
		if err != nil {
			return PoolRow{}, err
		}
		f0, err := negI128(1)
		if err != nil {
			return PoolRow{}, err
		}
		f1, err := negI128(2)
		if err != nil {
			return PoolRow{}, err
		}
		row.Sender, row.To = sender, to
		row.TickLower, row.TickUpper = tl, tu
		row.Fee0, row.Fee1 = f0, f1

	case ActionSwap:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return PoolRow{}, err
		}
		to, err := addrTopic(v.Topic2)
		if err != nil {
			return PoolRow{}, err
		}
		a0, err := i128(0)
		if err != nil {
			return PoolRow{}, err
		}
		a1, err := i128(1)
		if err != nil {
			return PoolRow{}, err
		}
		priceW, err := v.Arg(2)
		if err != nil {
			return PoolRow{}, err
		}
		tickW, err := v.Arg(4)
		if err != nil {
			return PoolRow{}, err
		}
		row.Sender, row.To = sender, to
		row.Amount0, row.Amount1 = a0, a1
		price := decode.AsQ(priceW, 96)
		row.Price = &price
		tv := decode.AsI32(tickW)
		row.TickLower = &tv

	case ActionMint:
		senderW, err := v.Arg(0)
		if err != nil {
			return PoolRow{}, err
		}
		sender, err := addr(senderW)
		if err != nil {
			return PoolRow{}, err
		}
		to, err := addrTopic(v.Topic1)
		if err != nil {
			return PoolRow{}, err
		}
		tl, err := tick(v.Topic2)
		if err != nil {
			return PoolRow{}, err
		}
		tu, err := tick(v.Topic3)
		if err != nil {
			return PoolRow{}, err
		}
		value, err := i128(1)
		if err != nil {
			return PoolRow{}, err
		}
		a0, err := i128(2)
		if err != nil {
			return PoolRow{}, err
		}
		a1, err := i128(3)
		if err != nil {
			return PoolRow{}, err
		}
		row.Sender, row.To = sender, to
		row.TickLower, row.TickUpper = tl, tu
		row.Value = value
		row.Amount0, row.Amount1 = a0, a1

	case ActionBurn:
		sender, err := addrTopic(v.Topic1)
		if err != nil {
			return PoolRow{}, err
		}
		tl, err := tick(v.Topic2)
		if err != nil {
			return PoolRow{}, err
		}
		tu, err := tick(v.Topic3)
		if err != nil {
			return PoolRow{}, err
		}
		value, err := negI128(0)
		if err != nil {
			return PoolRow{}, err
		}
		a0, err := negI128(1)
		if err != nil {
			return PoolRow{}, err
		}
		a1, err := negI128(2)
		if err != nil {
			return PoolRow{}, err
		}
		row.Sender = sender
		row.TickLower, row.TickUpper = tl, tu
		row.Value = value
		row.Amount0, row.Amount1 = a0, a1
	}

	return row, nil
}
