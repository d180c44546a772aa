// Package decode reinterprets raw 32-byte log words as typed values and
// adapts raw logs into a canonical, protocol-agnostic view.
//
// Integers are kept at native width through decoding — big.Int for
// u128/i128/u256, uint32/uint64 for the narrow truncating views — and
// only converted to float64 at the columnar-builder boundary.
package decode

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/clouds56/evmstage/internal/errs"
)

// Word is a single 32-byte big-endian log topic or data slot.
type Word = common.Hash

var (
	maxUint128        = new(big.Int).Lsh(big.NewInt(1), 128) // 2^128, used as a mask bound
	errDecodeMismatch = errs.ErrDecodeMismatch
)

// AsAddress reinterprets a word as a 20-byte address. The upper 12 bytes
// must be zero.
func AsAddress(w Word) (common.Address, error) {
	for _, b := range w[:12] {
		if b != 0 {
			return common.Address{}, fmt.Errorf("%w: address word has nonzero upper bytes", errDecodeMismatch)
		}
	}
	var addr common.Address
	copy(addr[:], w[12:])
	return addr, nil
}

// AsU256 reinterprets a word as a big-endian unsigned 256-bit integer.
func AsU256(w Word) *big.Int {
	return new(big.Int).SetBytes(w[:])
}

// AsU128 returns the low-order 128 bits of the word as an unsigned integer,
// silently truncating the high 128 bits.
func AsU128(w Word) *big.Int {
	v := new(big.Int).SetBytes(w[16:])
	return v
}

// AsU64 returns the low-order 64 bits of the word, silently truncating.
func AsU64(w Word) uint64 {
	var v uint64
	for _, b := range w[24:] {
		v = v<<8 | uint64(b)
	}
	return v
}

// AsU32 returns the low-order 32 bits of the word, silently truncating.
func AsU32(w Word) uint32 {
	var v uint32
	for _, b := range w[28:] {
		v = v<<8 | uint32(b)
	}
	return v
}

// AsI32 returns the low-order 32 bits of the word interpreted as a two's
// complement signed integer, silently truncating the high bits.
func AsI32(w Word) int32 {
	return int32(AsU32(w))
}

// AsI128 interprets the low 128 bits of the word as a two's-complement
// signed integer. The high 128 bits must be all-zero (positive) or
// all-ones (negative); any other pattern is a decode mismatch.
func AsI128(w Word) (*big.Int, error) {
	allZero, allOnes := true, true
	for _, b := range w[:16] {
		if b != 0x00 {
			allZero = false
		}
		if b != 0xff {
			allOnes = false
		}
	}
	if !allZero && !allOnes {
		return nil, fmt.Errorf("%w: i128 high bits neither all-zero nor all-ones", errDecodeMismatch)
	}
	low := new(big.Int).SetBytes(w[16:])
	if allOnes {
		// two's complement: value = low - 2^128
		low.Sub(low, maxUint128)
	}
	return low, nil
}

// AsQ interprets the word as an unsigned integer multiplied by 2^-n,
// a Q-fixed-point value (e.g. n=96 for sqrtPriceX96).
func AsQ(w Word, n uint) float64 {
	u := AsU256(w)
	f := new(big.Float).SetInt(u)
	scale := new(big.Float).SetMantExp(big.NewFloat(1), -int(n))
	f.Mul(f, scale)
	result, _ := f.Float64()
	return result
}

// NegBig returns the arithmetic negation of a signed big.Int value.
func NegBig(v *big.Int) *big.Int {
	return new(big.Int).Neg(v)
}

// BigToFloat converts a native-width integer to float64 at the
// columnar-builder boundary; lossy by design.
func BigToFloat(v *big.Int) float64 {
	f := new(big.Float).SetInt(v)
	out, _ := f.Float64()
	return out
}

// ScaleFloat divides a native-width integer by 10^decimals, used for
// Pendle's i256-as-10^-18 fields.
func ScaleFloat(v *big.Int, decimals uint) float64 {
	f := BigToFloat(v)
	return f / math.Pow(10, float64(decimals))
}
