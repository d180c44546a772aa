package columnar

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestFormatAddressChecksums(t *testing.T) {
	addr := common.HexToAddress("0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.Equal(t, addr.Hex(), FormatAddress(addr))
	require.NotEqual(t, "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", FormatAddress(addr))
}

func TestFormatHashCollapsesZero(t *testing.T) {
	require.Equal(t, "0x0", FormatHash(common.Hash{}))
}

func TestFormatHashNonZero(t *testing.T) {
	h := common.HexToHash("0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1")
	require.Equal(t, h.Hex(), FormatHash(h))
}
