package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

// Position classifies a member's global balance.
type Position string

const (
	PositionCreditor Position = "creditor"
	PositionDebtor   Position = "debtor"
	PositionSettled  Position = "settled"
)

// PairBalance is the netted debt between two members.
// UserA sorts before UserB. Net is what UserA owes UserB minus what UserB
// owes UserA, so a positive Net means UserA owes. Debtor and Creditor spell
// the direction out and are empty when the pair is settled, that is when
// Net is within Tolerance of zero.
type PairBalance struct {
	UserA    string
	UserB    string
	Net      float64
	Debtor   string
	Creditor string
	Amount   float64

	// Entries are the pending entry IDs between the two members, sorted.
	Entries []string
}

// Settled reports whether the pair owes nothing either way.
func (p PairBalance) Settled() bool {
	return p.Debtor == ""
}

// UserBalance is a member's position across the whole group.
type UserBalance struct {
	UserID string

	// TotalOwed is what others owe this member.
	TotalOwed float64

	// TotalOwes is what this member owes others.
	TotalOwes float64

	// Net is TotalOwed - TotalOwes. Positive means creditor.
	Net      float64
	Position Position
}

// Balances is the aggregate view of a pending-entry snapshot.
type Balances struct {
	Pairs []PairBalance
	Users []UserBalance
}

// Aggregate folds pending entries into pairwise and per-member balances.
// Non-pending entries are ignored. Pairs are sorted by (UserA, UserB) and
// users by ID.
func Aggregate(entries []models.SettlementEntry) (Balances, error) {
	s, err := scan(entries)
	if err != nil {
		return Balances{}, err
	}

	var out Balances
	for _, key := range s.pairKeys() {
		out.Pairs = append(out.Pairs, s.pairBalance(key))
	}
	for _, id := range s.userIDs() {
		u := s.users[id]
		net := u.owed.Sub(u.owes)
		out.Users = append(out.Users, UserBalance{
			UserID:    id,
			TotalOwed: u.owed.InexactFloat64(),
			TotalOwes: u.owes.InexactFloat64(),
			Net:       net.InexactFloat64(),
			Position:  position(net),
		})
	}
	return out, nil
}

// PairwiseNet returns what u owes v minus what v owes u over pending entries.
func PairwiseNet(entries []models.SettlementEntry, u, v string) float64 {
	net := decimal.Zero
	for _, e := range entries {
		if e.Status != models.StatusPending {
			continue
		}
		switch {
		case e.PayerID == u && e.PayeeID == v:
			net = net.Add(cents(e.Amount))
		case e.PayerID == v && e.PayeeID == u:
			net = net.Sub(cents(e.Amount))
		}
	}
	return net.InexactFloat64()
}

// NetBalances returns each member's global net: owed to them minus owed by them.
func NetBalances(entries []models.SettlementEntry) (map[string]float64, error) {
	s, err := scan(entries)
	if err != nil {
		return nil, err
	}
	nets := make(map[string]float64, len(s.users))
	for id, u := range s.users {
		nets[id] = u.owed.Sub(u.owes).InexactFloat64()
	}
	return nets, nil
}

func position(net decimal.Decimal) Position {
	switch {
	case settled(net):
		return PositionSettled
	case net.IsPositive():
		return PositionCreditor
	default:
		return PositionDebtor
	}
}

type pairKey struct {
	a, b string
}

func newPairKey(u, v string) pairKey {
	if u < v {
		return pairKey{a: u, b: v}
	}
	return pairKey{a: v, b: u}
}

type pairAcc struct {
	// net is what a owes b minus what b owes a.
	net     decimal.Decimal
	entries []string
}

type userAcc struct {
	owed decimal.Decimal
	owes decimal.Decimal
}

// ledgerScan is the single-pass accumulation every view is built from.
// Amounts are normalized to cents so every derived sum is exact.
type ledgerScan struct {
	pairs   map[pairKey]*pairAcc
	users   map[string]*userAcc
	entries map[string]models.SettlementEntry
}

func scan(entries []models.SettlementEntry) (*ledgerScan, error) {
	s := &ledgerScan{
		pairs:   make(map[pairKey]*pairAcc),
		users:   make(map[string]*userAcc),
		entries: make(map[string]models.SettlementEntry),
	}
	for _, e := range entries {
		if e.Status != models.StatusPending {
			continue
		}
		if err := e.Validate(); err != nil {
			return nil, &InconsistencyError{EntryID: e.ID, Reason: err.Error()}
		}
		amount := cents(e.Amount)
		if amount.IsZero() {
			continue
		}

		key := newPairKey(e.PayerID, e.PayeeID)
		p, ok := s.pairs[key]
		if !ok {
			p = &pairAcc{}
			s.pairs[key] = p
		}
		if e.PayerID == key.a {
			p.net = p.net.Add(amount)
		} else {
			p.net = p.net.Sub(amount)
		}
		p.entries = append(p.entries, e.ID)

		s.user(e.PayerID).owes = s.user(e.PayerID).owes.Add(amount)
		s.user(e.PayeeID).owed = s.user(e.PayeeID).owed.Add(amount)
		s.entries[e.ID] = e
	}
	return s, nil
}

func (s *ledgerScan) user(id string) *userAcc {
	u, ok := s.users[id]
	if !ok {
		u = &userAcc{}
		s.users[id] = u
	}
	return u
}

func (s *ledgerScan) pairKeys() []pairKey {
	keys := make([]pairKey, 0, len(s.pairs))
	for k := range s.pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].a != keys[j].a {
			return keys[i].a < keys[j].a
		}
		return keys[i].b < keys[j].b
	})
	return keys
}

func (s *ledgerScan) userIDs() []string {
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *ledgerScan) pairBalance(key pairKey) PairBalance {
	p := s.pairs[key]
	ids := make([]string, len(p.entries))
	copy(ids, p.entries)
	sort.Strings(ids)

	pb := PairBalance{
		UserA:   key.a,
		UserB:   key.b,
		Net:     p.net.InexactFloat64(),
		Amount:  p.net.Abs().InexactFloat64(),
		Entries: ids,
	}
	switch {
	case settled(p.net):
	case p.net.IsPositive():
		pb.Debtor, pb.Creditor = key.a, key.b
	case p.net.IsNegative():
		pb.Debtor, pb.Creditor = key.b, key.a
	}
	return pb
}
