package domain

import (
	"errors"
	"math"
)

// MaxUnitPriceCents caps a ticket price. With the purchase limits on line
// items and quantities, booking totals stay far below the int64 range.
const MaxUnitPriceCents int64 = 100_000_000

var ErrAmountOutOfRange = errors.New("amount out of range")

// MulCents returns cents*n, failing on negative operands or int64 overflow.
func MulCents(cents int64, n int) (int64, error) {
	if cents < 0 || n < 0 {
		return 0, ErrAmountOutOfRange
	}
	if n != 0 && cents > math.MaxInt64/int64(n) {
		return 0, ErrAmountOutOfRange
	}
	return cents * int64(n), nil
}

// AddCents returns a+b, failing on negative operands or int64 overflow.
func AddCents(a, b int64) (int64, error) {
	if a < 0 || b < 0 || a > math.MaxInt64-b {
		return 0, ErrAmountOutOfRange
	}
	return a + b, nil
}
