package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrSplitMismatch       = errors.New("split amounts must sum to expense amount")
	ErrInvalidSplitAmount  = errors.New("split amount must be positive")
	ErrInvalidAmount       = errors.New("expense amount must be positive")
	ErrLedgerInconsistency = errors.New("ledger inconsistency")
	ErrInvalidMode         = errors.New("unknown optimization mode")
	ErrInvalidPercentages  = errors.New("percentages must be positive and sum to 100")

	// Membership errors come from the group collaborator and are passed through unchanged.
	ErrGroupNotFound    = errors.New("group not found")
	ErrMemberNotInGroup = errors.New("user is not a member of the group")
)

// SplitMismatchError reports the expected total and what the splits actually add up to.
type SplitMismatchError struct {
	Expected float64
	Actual   float64
}

func (e *SplitMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %.2f, got %.2f", ErrSplitMismatch, e.Expected, e.Actual)
}

func (e *SplitMismatchError) Is(target error) bool {
	return target == ErrSplitMismatch
}

// InvalidSplitAmountError identifies the offending split.
type InvalidSplitAmountError struct {
	UserID string
	Amount float64
}

func (e *InvalidSplitAmountError) Error() string {
	return fmt.Sprintf("%s: user %s has %v", ErrInvalidSplitAmount, e.UserID, e.Amount)
}

func (e *InvalidSplitAmountError) Is(target error) bool {
	return target == ErrInvalidSplitAmount
}

// InconsistencyError is raised when ledger data violates an invariant the
// writers are supposed to guarantee. It is never corrected automatically.
type InconsistencyError struct {
	EntryID string
	Reason  string
}

func (e *InconsistencyError) Error() string {
	if e.EntryID == "" {
		return fmt.Sprintf("%s: %s", ErrLedgerInconsistency, e.Reason)
	}
	return fmt.Sprintf("%s: entry %s: %s", ErrLedgerInconsistency, e.EntryID, e.Reason)
}

func (e *InconsistencyError) Is(target error) bool {
	return target == ErrLedgerInconsistency
}
