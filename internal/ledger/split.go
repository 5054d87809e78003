package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

// PercentageShare assigns a percentage of an expense to one member.
type PercentageShare struct {
	UserID  string
	Percent float64
}

var hundred = decimal.NewFromInt(100)

// EqualSplits divides amount evenly among userIDs. Leftover cents go to the
// last members so the shares always add up to the rounded total
// (100 / 3 → 33.33, 33.33, 33.34).
func EqualSplits(amount float64, userIDs []string) ([]models.Split, error) {
	if !finitePositive(amount) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	total := cents(amount).Shift(2).IntPart()
	n := int64(len(userIDs))
	base, remainder := total/n, total%n

	splits := make([]models.Split, len(userIDs))
	for i, id := range userIDs {
		c := base
		if int64(i) >= n-remainder {
			c++
		}
		if c <= 0 {
			return nil, &InvalidSplitAmountError{UserID: id, Amount: 0}
		}
		splits[i] = models.Split{
			UserID: id,
			Amount: decimal.NewFromInt(c).Shift(-2).InexactFloat64(),
			Kind:   models.SplitEqual,
		}
	}
	return splits, nil
}

// PercentageSplits assigns each member their percentage of amount. Shares
// are truncated to cents and the leftover cents go to the last members, so
// the result always sums to the rounded total.
func PercentageSplits(amount float64, shares []PercentageShare) ([]models.Split, error) {
	if !finitePositive(amount) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}

	pctSum := decimal.Zero
	for _, s := range shares {
		if !finitePositive(s.Percent) {
			return nil, fmt.Errorf("%w: user %s has %v", ErrInvalidPercentages, s.UserID, s.Percent)
		}
		pctSum = pctSum.Add(decimal.NewFromFloat(s.Percent))
	}
	if !withinTolerance(pctSum.Sub(hundred)) {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidPercentages, pctSum.String())
	}

	total := cents(amount).Shift(2).IntPart()
	parts := make([]int64, len(shares))
	var assigned int64
	for i, s := range shares {
		parts[i] = decimal.NewFromInt(total).Mul(decimal.NewFromFloat(s.Percent)).Div(pctSum).IntPart()
		assigned += parts[i]
	}
	for i := len(parts) - 1; assigned < total; i-- {
		if i < 0 {
			i = len(parts) - 1
		}
		parts[i]++
		assigned++
	}

	splits := make([]models.Split, len(shares))
	for i, s := range shares {
		if parts[i] <= 0 {
			return nil, &InvalidSplitAmountError{UserID: s.UserID, Amount: 0}
		}
		splits[i] = models.Split{
			UserID: s.UserID,
			Amount: decimal.NewFromInt(parts[i]).Shift(-2).InexactFloat64(),
			Kind:   models.SplitPercentage,
		}
	}
	return splits, nil
}
