// Package columnar formats the string representations protocol decoders
// emit for address and hash-like fields before a row ever reaches the
// partitioned writer. Building one column per struct field, with optional
// fields left nullable, is handled by parquet-go's struct-tag reflection
// directly inside internal/partition — there is no separate batch-assembly
// step to write, since the generic parquet.WriteFile[T] already builds one
// column per exported field from a row slice.
package columnar

import "github.com/ethereum/go-ethereum/common"

// FormatAddress renders an address as EIP-55 checksummed hex, exactly what
// common.Address.Hex() already returns.
func FormatAddress(a common.Address) string {
	return a.Hex()
}

// FormatHash renders a 32-byte hash as lower-case 0x-prefixed hex, with the
// all-zero hash collapsed to "0x0" rather than 64 zero digits.
func FormatHash(h common.Hash) string {
	if h == (common.Hash{}) {
		return "0x0"
	}
	return h.Hex()
}
