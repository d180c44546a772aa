package decode

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wordFromHex(t *testing.T, s string) Word {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	var w Word
	copy(w[32-len(b):], b)
	return w
}

func TestAsAddressSuccess(t *testing.T) {
	w := wordFromHex(t, "0000000000000000000000000000000000000000000000000000000000000001")
	addr, err := AsAddress(w)
	require.NoError(t, err)
	assert.Equal(t, byte(1), addr[19])
}

func TestAsAddressNonzeroUpperFails(t *testing.T) {
	w := wordFromHex(t, "0100000000000000000000000000000000000000000000000000000000000001")
	_, err := AsAddress(w)
	require.Error(t, err)
}

func TestAsI128PositiveAndNegative(t *testing.T) {
	var zero Word
	v, err := AsI128(zero)
	require.NoError(t, err)
	assert.Equal(t, 0, v.Cmp(big.NewInt(0)))

	var minusOne Word
	for i := range minusOne {
		minusOne[i] = 0xff
	}
	v, err = AsI128(minusOne)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(-1), v)
}

func TestAsI128BadHighBitsFails(t *testing.T) {
	var w Word
	w[0] = 0x01 // neither all-zero nor all-ones in the high 128 bits
	_, err := AsI128(w)
	require.Error(t, err)
}

func TestAsQFixedPoint(t *testing.T) {
	var w Word
	w[31] = 1 // 1 * 2^-96
	got := AsQ(w, 96)
	want := 1.0
	for i := 0; i < 96; i++ {
		want /= 2
	}
	assert.InDelta(t, want, got, want*1e-9)
}
