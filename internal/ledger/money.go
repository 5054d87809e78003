package ledger

import (
	"math"

	"github.com/shopspring/decimal"
)

// Tolerance is the absolute difference below which two amounts are equal.
// It absorbs rounding from splits such as 100 / 3.
const Tolerance = 0.01

var tolerance = decimal.NewFromFloat(Tolerance)

// cents converts an amount to a decimal rounded to two places.
func cents(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}

// Round rounds an amount to cents.
func Round(amount float64) float64 {
	return cents(amount).InexactFloat64()
}

// NearlyEqual reports whether a and b differ by at most Tolerance.
func NearlyEqual(a, b float64) bool {
	return withinTolerance(decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)))
}

// Sum adds amounts without accumulating float error.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return total.InexactFloat64()
}

func withinTolerance(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(tolerance)
}

// settled reports whether a balance is rounding dust. Nothing is owed on a
// settled balance, so it never becomes a debtor, creditor or instruction.
func settled(balance decimal.Decimal) bool {
	return withinTolerance(balance)
}

func finitePositive(amount float64) bool {
	return !math.IsNaN(amount) && !math.IsInf(amount, 0) && amount > 0
}
