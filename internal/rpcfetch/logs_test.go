package rpcfetch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWindowsSplitsIntoFixedRanges(t *testing.T) {
	got := windows(0, 25_000, 10_000)
	require.Equal(t, []window{
		{from: 0, to: 9_999},
		{from: 10_000, to: 19_999},
		{from: 20_000, to: 24_999},
	}, got)
}

func TestWindowsExactMultiple(t *testing.T) {
	got := windows(0, 20_000, 10_000)
	require.Equal(t, []window{
		{from: 0, to: 9_999},
		{from: 10_000, to: 19_999},
	}, got)
}

func TestWindowsEmptyRange(t *testing.T) {
	require.Nil(t, windows(100, 100, 10_000))
	require.Nil(t, windows(100, 50, 10_000))
}
