// Package pricing converts between ETH amounts, wei and lottery numbers.
package pricing

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

const weiDecimals = 18

// DefaultTicketPrice is the contract price of one number, in ETH.
var DefaultTicketPrice = decimal.RequireFromString("0.0005")

// MaxNumbersPerEntry is the size of a round: numbers run from 0 to 999.
const MaxNumbersPerEntry int64 = 1000

var (
	// ErrNotMultiple reports an amount that does not buy a whole number of tickets.
	ErrNotMultiple = errors.New("amount is not a whole multiple of the ticket price")
	// ErrTooManyNumbers reports an amount buying more numbers than a round holds.
	ErrTooManyNumbers = errors.New("amount buys more numbers than a round holds")
)

// ParseAmount parses a decimal ETH amount such as "0.0015".
func ParseAmount(input string) (decimal.Decimal, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	amount, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount must not be negative: %s", input)
	}
	return amount, nil
}

// TicketsFor returns amount/price, which must be an exact integer between 0
// and MaxNumbersPerEntry.
func TicketsFor(amount, price decimal.Decimal) (int64, error) {
	if !price.IsPositive() {
		return 0, fmt.Errorf("ticket price must be positive")
	}
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative: %s", amount)
	}
	if !amount.Mod(price).IsZero() {
		return 0, fmt.Errorf("%s ETH at %s ETH: %w", amount, price, ErrNotMultiple)
	}
	q := amount.Div(price)
	if !q.IsInteger() {
		return 0, fmt.Errorf("%s ETH at %s ETH: %w", amount, price, ErrNotMultiple)
	}
	if q.GreaterThan(decimal.NewFromInt(MaxNumbersPerEntry)) {
		return 0, fmt.Errorf("%s ETH at %s ETH is %s numbers, max %d: %w", amount, price, q, MaxNumbersPerEntry, ErrTooManyNumbers)
	}
	return q.IntPart(), nil
}

// ToWei converts an ETH amount to wei. Amounts finer than one wei are rejected.
func ToWei(amount decimal.Decimal) (*big.Int, error) {
	shifted := amount.Shift(weiDecimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount %s has more than %d decimals", amount, weiDecimals)
	}
	return shifted.BigInt(), nil
}

// FromWei converts wei to ETH.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -weiDecimals)
}

// Progress returns balance/threshold as a percentage. A zero threshold yields 0.
func Progress(balanceWei, thresholdWei *big.Int) float64 {
	if thresholdWei == nil || thresholdWei.Sign() == 0 || balanceWei == nil {
		return 0
	}
	pct, _ := decimal.NewFromBigInt(balanceWei, 0).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromBigInt(thresholdWei, 0), 4).
		Float64()
	return pct
}
