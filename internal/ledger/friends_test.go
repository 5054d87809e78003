package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
)

func TestFriendBalances(t *testing.T) {
	ledgers := []GroupLedger{
		{
			GroupID:   "trip",
			GroupName: "Trip",
			Entries: []models.SettlementEntry{
				owes("1", "bob", "alice", 40),
				owes("2", "alice", "carol", 15),
				owes("3", "bob", "carol", 99),
			},
		},
		{
			GroupID:   "flat",
			GroupName: "Flat",
			Entries: []models.SettlementEntry{
				owes("4", "alice", "bob", 10),
				owes("5", "carol", "alice", 15),
				{ID: "6", PayerID: "dave", PayeeID: "alice", Amount: 50, Status: models.StatusCompleted},
			},
		},
	}

	got, err := FriendBalances("alice", ledgers)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ActiveGroups)

	// carol nets to zero across the two groups and is left out.
	require.Len(t, got.Friends, 1)
	bob := got.Friends[0]
	assert.Equal(t, "bob", bob.UserID)
	assert.Equal(t, 30.0, bob.Net)
	assert.True(t, bob.OwesYou)
	assert.Equal(t, []FriendGroupBalance{
		{GroupID: "trip", GroupName: "Trip", Balance: 40, OwesYou: true},
		{GroupID: "flat", GroupName: "Flat", Balance: -10, OwesYou: false},
	}, bob.Breakdown)

	assert.Equal(t, 30.0, got.TotalOwedToYou)
	assert.Equal(t, 0.0, got.TotalYouOwe)
	assert.Equal(t, 30.0, got.Net)
}

func TestFriendBalances_NoGroups(t *testing.T) {
	got, err := FriendBalances("alice", nil)
	require.NoError(t, err)
	assert.Empty(t, got.Friends)
	assert.Equal(t, 0, got.ActiveGroups)
}

func TestOverallBalance(t *testing.T) {
	ledgers := []GroupLedger{
		{GroupID: "trip", GroupName: "Trip", Entries: []models.SettlementEntry{
			owes("1", "bob", "alice", 40),
			owes("2", "alice", "carol", 15),
		}},
		{GroupID: "flat", GroupName: "Flat", Entries: []models.SettlementEntry{
			owes("3", "alice", "bob", 12.5),
		}},
		{GroupID: "old", GroupName: "Old", Entries: []models.SettlementEntry{
			owes("4", "alice", "bob", 5),
			owes("5", "bob", "alice", 5),
		}},
	}

	got, err := OverallBalance("alice", ledgers)
	require.NoError(t, err)
	assert.Equal(t, []GroupPosition{
		{GroupID: "trip", GroupName: "Trip", Balance: 25},
		{GroupID: "flat", GroupName: "Flat", Balance: -12.5},
	}, got.Groups)
	assert.Equal(t, 25.0, got.TotalOwedToYou)
	assert.Equal(t, 12.5, got.TotalYouOwe)
	assert.Equal(t, 12.5, got.Net)
}

func TestOverallBalance_Inconsistent(t *testing.T) {
	_, err := OverallBalance("alice", []GroupLedger{{Entries: []models.SettlementEntry{owes("x", "alice", "alice", 1)}}})
	assert.ErrorIs(t, err, ErrLedgerInconsistency)
}

func TestFriendBalances_DustIsSettled(t *testing.T) {
	ledgers := []GroupLedger{{
		GroupID:   "trip",
		GroupName: "Trip",
		Entries: []models.SettlementEntry{
			owes("1", "alice", "bob", 33.34),
			owes("2", "bob", "alice", 33.33),
			owes("3", "carol", "alice", 5),
		},
	}}

	friends, err := FriendBalances("alice", ledgers)
	require.NoError(t, err)
	require.Len(t, friends.Friends, 1)
	assert.Equal(t, "carol", friends.Friends[0].UserID)

	overall, err := OverallBalance("bob", ledgers)
	require.NoError(t, err)
	assert.Empty(t, overall.Groups)
	assert.Equal(t, 0.0, overall.TotalOwedToYou)
}
