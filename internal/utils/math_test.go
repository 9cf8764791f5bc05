package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckedMulU64(t *testing.T) {
	v, err := CheckedMulU64(1000, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(5000), v)

	_, err = CheckedMulU64(math.MaxUint64, 2)
	require.ErrorIs(t, err, ErrOverflow)

	v, err = CheckedMulU64(0, math.MaxUint64)
	require.NoError(t, err)
	require.Equal(t, uint64(0), v)
}

func TestCheckedAddU64(t *testing.T) {
	v, err := CheckedAddU64(math.MaxUint64-1, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), v)

	_, err = CheckedAddU64(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestCheckedSubU64(t *testing.T) {
	v, err := CheckedSubU64(10, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(6), v)

	_, err = CheckedSubU64(4, 10)
	require.ErrorIs(t, err, ErrOverflow)
}

func TestNormalizeChainName(t *testing.T) {
	name, err := NormalizeChainName("  btc ")
	require.NoError(t, err)
	require.Equal(t, "BTC", name)

	_, err = NormalizeChainName("")
	require.ErrorIs(t, err, ErrInvalidChainName)

	_, err = NormalizeChainName("bit coin")
	require.ErrorIs(t, err, ErrInvalidChainName)

	_, err = NormalizeChainName("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	require.ErrorIs(t, err, ErrInvalidChainName)
}
