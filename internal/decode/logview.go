package decode

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/clouds56/evmstage/internal/errs"
)

var errUnknownTopic = errs.ErrUnknownTopic

// LogView canonicalizes a raw chain log into a uniform accessor: topics,
// data words, and indexed-argument lookups.
type LogView struct {
	Height          uint64
	LogIndexInBlock uint32
	Contract        common.Address
	TxHash          common.Hash

	topic0 Word
	topic1 *Word
	topic2 *Word
	topic3 *Word
	data   []Word
}

// NewLogView adapts a go-ethereum types.Log into a LogView. The data
// payload must be a multiple of 32 bytes; a short remainder is truncated.
func NewLogView(l types.Log) (LogView, error) {
	if len(l.Topics) == 0 {
		return LogView{}, fmt.Errorf("%w: log has no topic0", errUnknownTopic)
	}
	v := LogView{
		Height:          l.BlockNumber,
		LogIndexInBlock: uint32(l.Index),
		Contract:        l.Address,
		TxHash:          l.TxHash,
		topic0:          l.Topics[0],
	}
	if len(l.Topics) > 1 {
		t := l.Topics[1]
		v.topic1 = &t
	}
	if len(l.Topics) > 2 {
		t := l.Topics[2]
		v.topic2 = &t
	}
	if len(l.Topics) > 3 {
		t := l.Topics[3]
		v.topic3 = &t
	}

	n := len(l.Data) / 32
	v.data = make([]Word, n)
	for i := 0; i < n; i++ {
		copy(v.data[i][:], l.Data[i*32:(i+1)*32])
	}
	return v, nil
}

// Topic0 returns the event-type digest, always present.
func (v LogView) Topic0() Word { return v.topic0 }

// Topic1 returns the first indexed argument, or an error if absent.
func (v LogView) Topic1() (Word, error) {
	if v.topic1 == nil {
		return Word{}, fmt.Errorf("%w: topic1 absent", errDecodeMismatch)
	}
	return *v.topic1, nil
}

// Topic2 returns the second indexed argument, or an error if absent.
func (v LogView) Topic2() (Word, error) {
	if v.topic2 == nil {
		return Word{}, fmt.Errorf("%w: topic2 absent", errDecodeMismatch)
	}
	return *v.topic2, nil
}

// Topic3 returns the third indexed argument, or an error if absent.
func (v LogView) Topic3() (Word, error) {
	if v.topic3 == nil {
		return Word{}, fmt.Errorf("%w: topic3 absent", errDecodeMismatch)
	}
	return *v.topic3, nil
}

// Arg returns the i'th positional data word, or an error if past the end.
func (v LogView) Arg(i int) (Word, error) {
	if i < 0 || i >= len(v.data) {
		return Word{}, fmt.Errorf("%w: data index %d out of range (len %d)", errDecodeMismatch, i, len(v.data))
	}
	return v.data[i], nil
}

// DataLen returns the number of 32-byte data words available.
func (v LogView) DataLen() int { return len(v.data) }
