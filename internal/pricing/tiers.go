package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is a selectable purchase: a number count and its ETH amount.
type Tier struct {
	Numbers int64
	Amount  decimal.Decimal
}

// DefaultTierCounts are the number counts offered by default.
var DefaultTierCounts = []int64{1, 3, 5, 10}

// NewTier prices n numbers at the given ticket price.
func NewTier(n int64, price decimal.Decimal) Tier {
	return Tier{Numbers: n, Amount: price.Mul(decimal.NewFromInt(n))}
}

// DefaultTiers builds the default tiers from DefaultTierCounts.
func DefaultTiers(price decimal.Decimal) []Tier {
	tiers := make([]Tier, 0, len(DefaultTierCounts))
	for _, n := range DefaultTierCounts {
		tiers = append(tiers, NewTier(n, price))
	}
	return tiers
}

// ParseTiers builds tiers from configured ETH amounts and validates them.
func ParseTiers(amounts []string, price decimal.Decimal) ([]Tier, error) {
	tiers := make([]Tier, 0, len(amounts))
	for _, input := range amounts {
		amount, err := ParseAmount(input)
		if err != nil {
			return nil, fmt.Errorf("tier: %w", err)
		}
		n, err := TicketsFor(amount, price)
		if err != nil {
			return nil, fmt.Errorf("tier: %w", err)
		}
		tiers = append(tiers, Tier{Numbers: n, Amount: amount})
	}
	if err := ValidateTiers(tiers, price); err != nil {
		return nil, err
	}
	return tiers, nil
}

// ValidateTiers rejects tiers whose amount is not exactly Numbers × price.
func ValidateTiers(tiers []Tier, price decimal.Decimal) error {
	for _, tier := range tiers {
		if tier.Numbers <= 0 {
			return fmt.Errorf("tier %s ETH: number count must be positive", tier.Amount)
		}
		n, err := TicketsFor(tier.Amount, price)
		if err != nil {
			return fmt.Errorf("tier %q: %w", tier.Label(), err)
		}
		if n != tier.Numbers {
			return fmt.Errorf("tier %q: %s ETH buys %d numbers", tier.Label(), tier.Amount, n)
		}
	}
	return nil
}

// Label renders the number count, e.g. "1 Number" or "5 Numbers".
func (t Tier) Label() string {
	return fmt.Sprintf("%d %s", t.Numbers, Plural(t.Numbers, "Number"))
}

// ETH renders the amount, e.g. "0.0025 ETH".
func (t Tier) ETH() string {
	return t.Amount.String() + " ETH"
}

// Plural appends "s" to word unless n is one.
func Plural(n int64, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
