package utils

import "errors"

// ErrOverflow is returned when a checked u64 operation would wrap.
var ErrOverflow = errors.New("u64 arithmetic overflow")

// CheckedMulU64 multiplies two u64 values, failing instead of wrapping
func CheckedMulU64(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	result := a * b
	if result/a != b {
		return 0, ErrOverflow
	}
	return result, nil
}

// CheckedAddU64 adds two u64 values, failing instead of wrapping
func CheckedAddU64(a, b uint64) (uint64, error) {
	result := a + b
	if result < a {
		return 0, ErrOverflow
	}
	return result, nil
}

// CheckedSubU64 subtracts b from a, failing on underflow
func CheckedSubU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrOverflow
	}
	return a - b, nil
}

// Min returns the smaller of a or b
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a or b
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
