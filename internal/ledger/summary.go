package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

// BuildGroupSummary combines expense totals, the pending-entry count and a
// plan into the group summary view. Voided expenses do not count.
func BuildGroupSummary(expenses []models.Expense, entries []models.SettlementEntry, plan []models.OptimizedSettlement) models.GroupSummary {
	total := decimal.Zero
	for _, e := range expenses {
		if e.Voided() {
			continue
		}
		total = total.Add(decimal.NewFromFloat(e.Amount))
	}
	pending := 0
	for _, e := range entries {
		if e.Status == models.StatusPending {
			pending++
		}
	}
	if plan == nil {
		plan = []models.OptimizedSettlement{}
	}
	return models.GroupSummary{
		TotalExpenses:        total.Round(2).InexactFloat64(),
		TotalSettlements:     pending,
		OptimizedSettlements: plan,
	}
}

// Savings compares the raw pending entries against an optimized plan.
type Savings struct {
	OriginalTransactions  int
	OptimizedTransactions int
	ReductionPercentage   float64
}

// ComputeSavings reports how many transactions a plan saves over paying
// every pending entry individually.
func ComputeSavings(entries []models.SettlementEntry, plan []models.OptimizedSettlement) Savings {
	pending := 0
	for _, e := range entries {
		if e.Status == models.StatusPending {
			pending++
		}
	}
	s := Savings{OriginalTransactions: pending, OptimizedTransactions: len(plan)}
	if pending > 0 {
		s.ReductionPercentage = decimal.NewFromInt(int64(pending - len(plan))).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(pending))).
			Round(1).
			InexactFloat64()
	}
	return s
}

// MemberStatement is one member's view of their own position in a group.
type MemberStatement struct {
	UserID string

	// TotalOwed is what others owe this member.
	TotalOwed float64

	// TotalOwes is what this member owes others.
	TotalOwes float64
	Net       float64
	Position  Position

	// Pending are the member's pending entries, as payer or payee.
	Pending []models.SettlementEntry
}

// StatementFor builds the balance statement of userID from a group snapshot.
func StatementFor(userID string, entries []models.SettlementEntry) (MemberStatement, error) {
	s, err := scan(entries)
	if err != nil {
		return MemberStatement{}, err
	}
	st := MemberStatement{UserID: userID, Position: PositionSettled, Pending: []models.SettlementEntry{}}
	if u, ok := s.users[userID]; ok {
		net := u.owed.Sub(u.owes)
		st.TotalOwed = u.owed.InexactFloat64()
		st.TotalOwes = u.owes.InexactFloat64()
		st.Net = net.InexactFloat64()
		st.Position = position(net)
	}
	for _, e := range entries {
		if e.Status == models.StatusPending && (e.PayerID == userID || e.PayeeID == userID) {
			st.Pending = append(st.Pending, e)
		}
	}
	return st, nil
}
