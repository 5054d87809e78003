package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
)

func owes(id, payer, payee string, amount float64) models.SettlementEntry {
	return models.SettlementEntry{
		ID:      id,
		GroupID: "grp-1",
		PayerID: payer,
		PayeeID: payee,
		Amount:  amount,
		Status:  models.StatusPending,
	}
}

func TestAggregate(t *testing.T) {
	entries := []models.SettlementEntry{
		owes("1", "bob", "alice", 30),
		owes("2", "carol", "alice", 30),
		owes("3", "alice", "bob", 10),
		{ID: "4", PayerID: "carol", PayeeID: "bob", Amount: 99, Status: models.StatusCompleted},
	}

	got, err := Aggregate(entries)
	require.NoError(t, err)

	require.Len(t, got.Pairs, 2)
	ab := got.Pairs[0]
	assert.Equal(t, "alice", ab.UserA)
	assert.Equal(t, "bob", ab.UserB)
	assert.Equal(t, -20.0, ab.Net)
	assert.Equal(t, "bob", ab.Debtor)
	assert.Equal(t, "alice", ab.Creditor)
	assert.Equal(t, 20.0, ab.Amount)
	assert.Equal(t, []string{"1", "3"}, ab.Entries)

	ac := got.Pairs[1]
	assert.Equal(t, "carol", ac.UserB)
	assert.Equal(t, "carol", ac.Debtor)
	assert.Equal(t, 30.0, ac.Amount)

	require.Len(t, got.Users, 3)
	assert.Equal(t, UserBalance{UserID: "alice", TotalOwed: 60, TotalOwes: 10, Net: 50, Position: PositionCreditor}, got.Users[0])
	assert.Equal(t, UserBalance{UserID: "bob", TotalOwed: 10, TotalOwes: 30, Net: -20, Position: PositionDebtor}, got.Users[1])
	assert.Equal(t, UserBalance{UserID: "carol", TotalOwed: 0, TotalOwes: 30, Net: -30, Position: PositionDebtor}, got.Users[2])
}

func TestAggregate_SettledPair(t *testing.T) {
	got, err := Aggregate([]models.SettlementEntry{
		owes("1", "alice", "bob", 25),
		owes("2", "bob", "alice", 25),
	})
	require.NoError(t, err)
	require.Len(t, got.Pairs, 1)
	assert.True(t, got.Pairs[0].Settled())
	assert.Equal(t, 0.0, got.Pairs[0].Amount)
	for _, u := range got.Users {
		assert.Equal(t, PositionSettled, u.Position)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	entries := []models.SettlementEntry{
		owes("1", "bob", "alice", 33.33),
		owes("2", "carol", "alice", 33.34),
		owes("3", "carol", "bob", 12.5),
	}
	first, err := Aggregate(entries)
	require.NoError(t, err)
	second, err := Aggregate(entries)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregate_Inconsistent(t *testing.T) {
	tests := []struct {
		name  string
		entry models.SettlementEntry
	}{
		{name: "self obligation", entry: owes("x", "alice", "alice", 10)},
		{name: "negative amount", entry: owes("x", "alice", "bob", -10)},
		{name: "missing payee", entry: owes("x", "alice", "", 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Aggregate([]models.SettlementEntry{tt.entry})
			assert.ErrorIs(t, err, ErrLedgerInconsistency)

			_, err = Optimize([]models.SettlementEntry{tt.entry}, ModeAdvanced)
			assert.ErrorIs(t, err, ErrLedgerInconsistency)
		})
	}

	// Cancelled garbage is never looked at.
	bad := owes("x", "alice", "alice", 10)
	bad.Status = models.StatusCancelled
	_, err := Aggregate([]models.SettlementEntry{bad})
	assert.NoError(t, err)
}

func TestNetBalancesSumToZero(t *testing.T) {
	entries := []models.SettlementEntry{
		owes("1", "bob", "alice", 33.33),
		owes("2", "carol", "alice", 33.33),
		owes("3", "dave", "alice", 33.34),
		owes("4", "alice", "carol", 0.1),
		owes("5", "dave", "bob", 0.2),
	}
	nets, err := NetBalances(entries)
	require.NoError(t, err)
	total := 0.0
	for _, n := range nets {
		total = Sum(total, n)
	}
	assert.Equal(t, 0.0, total)
}

func TestPairwiseNet(t *testing.T) {
	entries := []models.SettlementEntry{
		owes("1", "alice", "bob", 100),
		owes("2", "bob", "alice", 30),
	}
	assert.Equal(t, 70.0, PairwiseNet(entries, "alice", "bob"))
	assert.Equal(t, -70.0, PairwiseNet(entries, "bob", "alice"))
	assert.Equal(t, 0.0, PairwiseNet(entries, "alice", "carol"))
}

func TestAggregate_DustIsSettled(t *testing.T) {
	got, err := Aggregate([]models.SettlementEntry{
		owes("1", "alice", "bob", 33.34),
		owes("2", "bob", "alice", 33.33),
	})
	require.NoError(t, err)

	require.Len(t, got.Pairs, 1)
	assert.True(t, got.Pairs[0].Settled())
	assert.Empty(t, got.Pairs[0].Creditor)
	assert.Equal(t, 0.01, got.Pairs[0].Amount)

	require.Len(t, got.Users, 2)
	for _, u := range got.Users {
		assert.Equal(t, PositionSettled, u.Position, u.UserID)
	}
	assert.Equal(t, -0.01, got.Users[0].Net)
	assert.Equal(t, 0.01, got.Users[1].Net)
}

func TestPosition(t *testing.T) {
	tests := []struct {
		net  string
		want Position
	}{
		{"0", PositionSettled},
		{"0.01", PositionSettled},
		{"-0.01", PositionSettled},
		{"0.02", PositionCreditor},
		{"-0.02", PositionDebtor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, position(decimal.RequireFromString(tt.net)), tt.net)
	}
}
