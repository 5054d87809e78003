package models

import (
	"errors"
	"fmt"
	"math"
)

// EntryStatus is the lifecycle state of a SettlementEntry.
type EntryStatus string

const (
	StatusPending   EntryStatus = "pending"
	StatusCompleted EntryStatus = "completed"
	StatusCancelled EntryStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether an entry may move from s to next.
// Only pending entries move, and only to completed or cancelled.
func (s EntryStatus) CanTransition(next EntryStatus) bool {
	return s == StatusPending && (next == StatusCompleted || next == StatusCancelled)
}

var (
	ErrSelfSettlement = errors.New("payer and payee must differ")
	ErrEntryAmount    = errors.New("entry amount must be positive")
	ErrEntryParty     = errors.New("payer and payee are required")
)

// SettlementEntry is one directed obligation: PayerID owes PayeeID Amount.
// Amount and parties never change after creation; only Status moves.
type SettlementEntry struct {
	// ID is the unique identifier for the entry (UUID format).
	ID string

	// ExpenseID links the entry to the expense it was derived from.
	// Empty for manual settlements.
	ExpenseID string

	// GroupID is the group this entry belongs to.
	GroupID string

	// PayerID is the member who owes.
	PayerID string

	// PayeeID is the member who is owed.
	PayeeID string

	// Amount is the obligation. Always > 0.
	Amount float64

	Status EntryStatus

	// Description is an optional note (e.g., "Share for Groceries").
	Description string

	// CreatedAt is the Unix timestamp when the entry was recorded.
	CreatedAt int64

	// PaidAt is the Unix timestamp when the entry was completed. Zero when unpaid.
	PaidAt int64
}

// NewSettlementEntry builds a pending entry and checks its invariants.
func NewSettlementEntry(groupID, expenseID, payerID, payeeID string, amount float64, createdAt int64) (SettlementEntry, error) {
	e := SettlementEntry{
		ExpenseID: expenseID,
		GroupID:   groupID,
		PayerID:   payerID,
		PayeeID:   payeeID,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: createdAt,
	}
	if err := e.Validate(); err != nil {
		return SettlementEntry{}, err
	}
	return e, nil
}

// Validate checks the entry's structural invariants.
func (e *SettlementEntry) Validate() error {
	if e.PayerID == "" || e.PayeeID == "" {
		return ErrEntryParty
	}
	if e.PayerID == e.PayeeID {
		return fmt.Errorf("%w: %s", ErrSelfSettlement, e.PayerID)
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) || e.Amount <= 0 {
		return fmt.Errorf("%w: %v", ErrEntryAmount, e.Amount)
	}
	return nil
}

// Manual reports whether the entry was recorded directly rather than derived from an expense.
func (e *SettlementEntry) Manual() bool {
	return e.ExpenseID == ""
}

// OptimizedSettlement is a computed payment instruction. It is recomputed
// from the pending ledger on every request and never stored.
type OptimizedSettlement struct {
	FromUserID   string
	ToUserID     string
	FromUserName string
	ToUserName   string
	Amount       float64

	// ConsolidatedEntries lists the ledger entries this instruction discharges.
	// Empty when the instruction merges balances across more than two members.
	ConsolidatedEntries []string
}

// GroupSummary is the presentation view of a group's ledger.
type GroupSummary struct {
	// TotalExpenses is the sum of all non-voided expense amounts.
	TotalExpenses float64

	// TotalSettlements is the number of pending ledger entries.
	TotalSettlements int

	OptimizedSettlements []OptimizedSettlement
}
