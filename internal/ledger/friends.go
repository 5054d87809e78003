package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

// GroupLedger is one group's pending-entry snapshot as seen by a single user.
type GroupLedger struct {
	GroupID   string
	GroupName string
	Entries   []models.SettlementEntry
}

// FriendGroupBalance is the balance with one friend inside one group.
// Positive Balance means the friend owes the user.
type FriendGroupBalance struct {
	GroupID   string
	GroupName string
	Balance   float64
	OwesYou   bool
}

// FriendBalance is the user's net position with one counterparty across groups.
type FriendBalance struct {
	UserID    string
	Net       float64
	OwesYou   bool
	Breakdown []FriendGroupBalance
}

// FriendsSummary is the "friends" view for one user.
type FriendsSummary struct {
	Friends        []FriendBalance
	TotalOwedToYou float64
	TotalYouOwe    float64
	Net            float64
	ActiveGroups   int
}

// FriendBalances computes userID's balance with every counterparty across
// the given groups. Friends whose balance is within Tolerance of zero are
// left out.
// Friends are sorted by ID and breakdowns keep the order of ledgers.
func FriendBalances(userID string, ledgers []GroupLedger) (FriendsSummary, error) {
	type acc struct {
		total     decimal.Decimal
		breakdown []FriendGroupBalance
	}
	friends := make(map[string]*acc)

	for _, gl := range ledgers {
		perFriend := make(map[string]decimal.Decimal)
		for _, e := range gl.Entries {
			if e.Status != models.StatusPending {
				continue
			}
			if err := e.Validate(); err != nil {
				return FriendsSummary{}, &InconsistencyError{EntryID: e.ID, Reason: err.Error()}
			}
			switch userID {
			case e.PayeeID:
				perFriend[e.PayerID] = perFriend[e.PayerID].Add(cents(e.Amount))
			case e.PayerID:
				perFriend[e.PayeeID] = perFriend[e.PayeeID].Sub(cents(e.Amount))
			}
		}

		ids := make([]string, 0, len(perFriend))
		for id := range perFriend {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			bal := perFriend[id]
			if settled(bal) {
				continue
			}
			f, ok := friends[id]
			if !ok {
				f = &acc{}
				friends[id] = f
			}
			f.total = f.total.Add(bal)
			f.breakdown = append(f.breakdown, FriendGroupBalance{
				GroupID:   gl.GroupID,
				GroupName: gl.GroupName,
				Balance:   bal.InexactFloat64(),
				OwesYou:   bal.IsPositive(),
			})
		}
	}

	out := FriendsSummary{ActiveGroups: len(ledgers), Friends: []FriendBalance{}}
	owed, owes := decimal.Zero, decimal.Zero
	ids := make([]string, 0, len(friends))
	for id := range friends {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		f := friends[id]
		if settled(f.total) {
			continue
		}
		if f.total.IsPositive() {
			owed = owed.Add(f.total)
		} else {
			owes = owes.Add(f.total.Neg())
		}
		out.Friends = append(out.Friends, FriendBalance{
			UserID:    id,
			Net:       f.total.InexactFloat64(),
			OwesYou:   f.total.IsPositive(),
			Breakdown: f.breakdown,
		})
	}
	out.TotalOwedToYou = owed.InexactFloat64()
	out.TotalYouOwe = owes.InexactFloat64()
	out.Net = owed.Sub(owes).InexactFloat64()
	return out, nil
}

// GroupPosition is a user's net balance within one group.
type GroupPosition struct {
	GroupID   string
	GroupName string
	Balance   float64
}

// OverallSummary is a user's balance across all of their groups.
type OverallSummary struct {
	TotalOwedToYou float64
	TotalYouOwe    float64
	Net            float64
	Groups         []GroupPosition
}

// OverallBalance sums userID's net position per group. Groups where the user
// is settled are omitted.
func OverallBalance(userID string, ledgers []GroupLedger) (OverallSummary, error) {
	out := OverallSummary{Groups: []GroupPosition{}}
	owed, owes := decimal.Zero, decimal.Zero
	for _, gl := range ledgers {
		s, err := scan(gl.Entries)
		if err != nil {
			return OverallSummary{}, err
		}
		u, ok := s.users[userID]
		if !ok {
			continue
		}
		net := u.owed.Sub(u.owes)
		if settled(net) {
			continue
		}
		if net.IsPositive() {
			owed = owed.Add(net)
		} else {
			owes = owes.Add(net.Neg())
		}
		out.Groups = append(out.Groups, GroupPosition{
			GroupID:   gl.GroupID,
			GroupName: gl.GroupName,
			Balance:   net.InexactFloat64(),
		})
	}
	out.TotalOwedToYou = owed.InexactFloat64()
	out.TotalYouOwe = owes.InexactFloat64()
	out.Net = owed.Sub(owes).InexactFloat64()
	return out, nil
}
