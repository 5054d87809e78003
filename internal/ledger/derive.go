package ledger

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

// DeriveEntries turns an expense into ledger entries: one pending entry per
// split whose member is not the payer of record. The split member owes the
// creator their share. The creator's own split produces nothing.
func DeriveEntries(expense models.Expense, now int64) ([]models.SettlementEntry, error) {
	entries := make([]models.SettlementEntry, 0, len(expense.Splits))
	for i, split := range expense.Splits {
		if split.UserID == expense.CreatedBy {
			continue
		}
		entry, err := newDerivedEntry(expense, split.UserID, split.Amount, now)
		if err != nil {
			return nil, fmt.Errorf("split %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RederiveEntries recomputes an edited expense's obligations. All of the
// expense's pending entries are cancelled and replaced. Amounts a member
// already completed for this expense are deducted from their new share, so
// an edit never charges the same debt twice. Completed payments that exceed
// the new share come back as a pending refund from the creator to the
// member. Remainders within Tolerance are settled and produce no entry.
func RederiveEntries(expense models.Expense, existing []models.SettlementEntry, now int64) (cancel []string, create []models.SettlementEntry, err error) {
	paid := make(map[string]decimal.Decimal)
	var payers []string
	for _, e := range existing {
		if e.ExpenseID != expense.ID {
			continue
		}
		switch e.Status {
		case models.StatusPending:
			cancel = append(cancel, e.ID)
		case models.StatusCompleted:
			if _, ok := paid[e.PayerID]; !ok {
				payers = append(payers, e.PayerID)
			}
			paid[e.PayerID] = paid[e.PayerID].Add(cents(e.Amount))
		}
	}

	for i, split := range expense.Splits {
		if split.UserID == expense.CreatedBy {
			continue
		}
		owed := cents(split.Amount)
		if credit, ok := paid[split.UserID]; ok {
			used := decimal.Min(credit, owed)
			owed = owed.Sub(used)
			paid[split.UserID] = credit.Sub(used)
		}
		if settled(owed) {
			continue
		}
		entry, err := newDerivedEntry(expense, split.UserID, owed.InexactFloat64(), now)
		if err != nil {
			return nil, nil, fmt.Errorf("split %d: %w", i, err)
		}
		create = append(create, entry)
	}

	sort.Strings(payers)
	for _, id := range payers {
		credit := paid[id]
		if id == expense.CreatedBy || settled(credit) {
			continue
		}
		refund, err := newRefundEntry(expense, id, credit.InexactFloat64(), now)
		if err != nil {
			return nil, nil, fmt.Errorf("refund %s: %w", id, err)
		}
		create = append(create, refund)
	}
	return cancel, create, nil
}

// VoidEntries returns the IDs of the expense's entries that must be
// cancelled when the expense is deleted.
func VoidEntries(expenseID string, existing []models.SettlementEntry) []string {
	var ids []string
	for _, e := range existing {
		if e.ExpenseID == expenseID && e.Status == models.StatusPending {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

func newDerivedEntry(expense models.Expense, payerID string, amount float64, now int64) (models.SettlementEntry, error) {
	entry, err := models.NewSettlementEntry(expense.GroupID, expense.ID, payerID, expense.CreatedBy, amount, now)
	if err != nil {
		return models.SettlementEntry{}, err
	}
	entry.ID = uuid.New().String()
	if expense.Description != "" {
		entry.Description = "Share for " + expense.Description
	}
	return entry, nil
}

func newRefundEntry(expense models.Expense, memberID string, amount float64, now int64) (models.SettlementEntry, error) {
	entry, err := models.NewSettlementEntry(expense.GroupID, expense.ID, expense.CreatedBy, memberID, amount, now)
	if err != nil {
		return models.SettlementEntry{}, err
	}
	entry.ID = uuid.New().String()
	if expense.Description != "" {
		entry.Description = "Refund for " + expense.Description
	}
	return entry, nil
}
