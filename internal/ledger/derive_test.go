package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
)

func dinner() models.Expense {
	return models.Expense{
		ID:          "exp-1",
		GroupID:     "grp-1",
		CreatedBy:   "alice",
		Description: "Dinner",
		Amount:      90,
		Splits: []models.Split{
			{UserID: "alice", Amount: 30, Kind: models.SplitEqual},
			{UserID: "bob", Amount: 30, Kind: models.SplitEqual},
			{UserID: "carol", Amount: 30, Kind: models.SplitEqual},
		},
	}
}

func TestDeriveEntries(t *testing.T) {
	entries, err := DeriveEntries(dinner(), 1700000000)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for i, payer := range []string{"bob", "carol"} {
		e := entries[i]
		assert.NotEmpty(t, e.ID)
		assert.Equal(t, "exp-1", e.ExpenseID)
		assert.Equal(t, "grp-1", e.GroupID)
		assert.Equal(t, payer, e.PayerID)
		assert.Equal(t, "alice", e.PayeeID)
		assert.Equal(t, 30.0, e.Amount)
		assert.Equal(t, models.StatusPending, e.Status)
		assert.Equal(t, "Share for Dinner", e.Description)
		assert.Equal(t, int64(1700000000), e.CreatedAt)
	}
	assert.NotEqual(t, entries[0].ID, entries[1].ID)
}

func TestDeriveEntries_NoSelfObligations(t *testing.T) {
	e := dinner()
	e.Splits = []models.Split{{UserID: "alice", Amount: 90}}
	entries, err := DeriveEntries(e, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	e.Splits = nil
	entries, err = DeriveEntries(e, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRederiveEntries(t *testing.T) {
	existing := []models.SettlementEntry{
		{ID: "e-bob", ExpenseID: "exp-1", GroupID: "grp-1", PayerID: "bob", PayeeID: "alice", Amount: 30, Status: models.StatusPending},
		{ID: "e-carol", ExpenseID: "exp-1", GroupID: "grp-1", PayerID: "carol", PayeeID: "alice", Amount: 30, Status: models.StatusCompleted},
		{ID: "e-other", ExpenseID: "exp-2", GroupID: "grp-1", PayerID: "bob", PayeeID: "alice", Amount: 5, Status: models.StatusPending},
	}

	edited := dinner()
	edited.Amount = 120
	edited.Splits = []models.Split{
		{UserID: "alice", Amount: 40},
		{UserID: "bob", Amount: 40},
		{UserID: "carol", Amount: 40},
	}

	cancel, create, err := RederiveEntries(edited, existing, 1700000100)
	require.NoError(t, err)
	assert.Equal(t, []string{"e-bob"}, cancel)
	require.Len(t, create, 2)
	assert.Equal(t, "bob", create[0].PayerID)
	assert.Equal(t, 40.0, create[0].Amount)
	// carol already paid 30 of her new 40.
	assert.Equal(t, "carol", create[1].PayerID)
	assert.Equal(t, 10.0, create[1].Amount)
}

func TestRederiveEntries_PaidInFull(t *testing.T) {
	existing := []models.SettlementEntry{
		{ID: "e-bob", ExpenseID: "exp-1", PayerID: "bob", PayeeID: "alice", Amount: 30, Status: models.StatusCompleted},
		{ID: "e-carol", ExpenseID: "exp-1", PayerID: "carol", PayeeID: "alice", Amount: 30, Status: models.StatusCancelled},
	}
	edited := dinner()
	edited.Amount = 75
	edited.Splits = []models.Split{
		{UserID: "alice", Amount: 25},
		{UserID: "bob", Amount: 25},
		{UserID: "carol", Amount: 25},
	}

	cancel, create, err := RederiveEntries(edited, existing, 0)
	require.NoError(t, err)
	assert.Empty(t, cancel)
	require.Len(t, create, 2)
	assert.Equal(t, "carol", create[0].PayerID)
	assert.Equal(t, 25.0, create[0].Amount)
	// bob paid 30 against a new share of 25.
	assert.Equal(t, "alice", create[1].PayerID)
	assert.Equal(t, "bob", create[1].PayeeID)
	assert.Equal(t, 5.0, create[1].Amount)
}

func TestRederiveEntries_Overpaid(t *testing.T) {
	existing := []models.SettlementEntry{
		{ID: "e-bob", ExpenseID: "exp-1", GroupID: "grp-1", PayerID: "bob", PayeeID: "alice", Amount: 50, Status: models.StatusCompleted},
		{ID: "e-carol", ExpenseID: "exp-1", GroupID: "grp-1", PayerID: "carol", PayeeID: "alice", Amount: 15, Status: models.StatusCompleted},
	}
	edited := dinner()
	edited.Amount = 40
	edited.Splits = []models.Split{
		{UserID: "alice", Amount: 20},
		{UserID: "bob", Amount: 20},
	}

	cancel, create, err := RederiveEntries(edited, existing, 1700000100)
	require.NoError(t, err)
	assert.Empty(t, cancel)

	// carol left the expense, so her whole payment comes back.
	require.Len(t, create, 2)
	for _, e := range create {
		assert.Equal(t, "alice", e.PayerID)
		assert.Equal(t, "exp-1", e.ExpenseID)
		assert.Equal(t, "grp-1", e.GroupID)
		assert.Equal(t, models.StatusPending, e.Status)
		assert.Equal(t, "Refund for Dinner", e.Description)
	}
	assert.Equal(t, "bob", create[0].PayeeID)
	assert.Equal(t, 30.0, create[0].Amount)
	assert.Equal(t, "carol", create[1].PayeeID)
	assert.Equal(t, 15.0, create[1].Amount)
}

func TestRederiveEntries_DustRemainder(t *testing.T) {
	existing := []models.SettlementEntry{
		{ID: "e-bob", ExpenseID: "exp-1", PayerID: "bob", PayeeID: "alice", Amount: 33.33, Status: models.StatusCompleted},
		{ID: "e-carol", ExpenseID: "exp-1", PayerID: "carol", PayeeID: "alice", Amount: 33.34, Status: models.StatusCompleted},
	}
	edited := dinner()
	edited.Amount = 100
	edited.Splits = []models.Split{
		{UserID: "alice", Amount: 33.33},
		{UserID: "bob", Amount: 33.34},
		{UserID: "carol", Amount: 33.33},
	}

	_, create, err := RederiveEntries(edited, existing, 0)
	require.NoError(t, err)
	assert.Empty(t, create)
}

func TestVoidEntries(t *testing.T) {
	existing := []models.SettlementEntry{
		{ID: "1", ExpenseID: "exp-1", Status: models.StatusPending},
		{ID: "2", ExpenseID: "exp-1", Status: models.StatusCompleted},
		{ID: "3", ExpenseID: "exp-2", Status: models.StatusPending},
		{ID: "4", ExpenseID: "exp-1", Status: models.StatusPending},
	}
	assert.Equal(t, []string{"1", "4"}, VoidEntries("exp-1", existing))
	assert.Empty(t, VoidEntries("exp-9", existing))
}

func TestEntryStatusTransitions(t *testing.T) {
	assert.True(t, models.StatusPending.CanTransition(models.StatusCompleted))
	assert.True(t, models.StatusPending.CanTransition(models.StatusCancelled))
	assert.False(t, models.StatusPending.CanTransition(models.StatusPending))
	assert.False(t, models.StatusCompleted.CanTransition(models.StatusCancelled))
	assert.False(t, models.StatusCancelled.CanTransition(models.StatusCompleted))
}

func TestNewSettlementEntry(t *testing.T) {
	_, err := models.NewSettlementEntry("g", "", "alice", "alice", 10, 0)
	assert.ErrorIs(t, err, models.ErrSelfSettlement)

	_, err = models.NewSettlementEntry("g", "", "alice", "bob", 0, 0)
	assert.ErrorIs(t, err, models.ErrEntryAmount)

	_, err = models.NewSettlementEntry("g", "", "", "bob", 5, 0)
	assert.ErrorIs(t, err, models.ErrEntryParty)

	e, err := models.NewSettlementEntry("g", "", "alice", "bob", 5, 10)
	require.NoError(t, err)
	assert.True(t, e.Manual())
	assert.Equal(t, models.StatusPending, e.Status)
}
