package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

// ValidateSplits checks that an expense's shares are consistent with its total.
// Every split must be positive. When splits are present they must add up to
// amount within Tolerance. An empty split list is accepted.
func ValidateSplits(amount float64, splits []models.Split) error {
	if !finitePositive(amount) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	if err := validateSplitAmounts(splits); err != nil {
		return err
	}
	if len(splits) == 0 {
		return nil
	}
	return checkSplitSum(amount, splits)
}

// ValidateUpdate checks a partial expense edit. A nil amount or nil splits
// means the field is not being changed. The sum is only cross-checked when
// both fields arrive together; supplying just one is a partial edit and is
// accepted as is.
func ValidateUpdate(amount *float64, splits []models.Split) error {
	if amount != nil && !finitePositive(*amount) {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, *amount)
	}
	if splits != nil {
		if err := validateSplitAmounts(splits); err != nil {
			return err
		}
	}
	if amount == nil || len(splits) == 0 {
		return nil
	}
	return checkSplitSum(*amount, splits)
}

func validateSplitAmounts(splits []models.Split) error {
	for _, s := range splits {
		if !finitePositive(s.Amount) {
			return &InvalidSplitAmountError{UserID: s.UserID, Amount: s.Amount}
		}
	}
	return nil
}

func checkSplitSum(amount float64, splits []models.Split) error {
	sum := decimal.Zero
	for _, s := range splits {
		sum = sum.Add(decimal.NewFromFloat(s.Amount))
	}
	if !withinTolerance(sum.Sub(decimal.NewFromFloat(amount))) {
		return &SplitMismatchError{Expected: amount, Actual: sum.InexactFloat64()}
	}
	return nil
}
