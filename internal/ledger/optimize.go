package ledger

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

// Mode selects how aggressively debts are netted.
type Mode string

const (
	// ModeNormal nets debts only within each pair of members.
	ModeNormal Mode = "normal"

	// ModeAdvanced nets every member's global balance, collapsing chains
	// that pass through third parties.
	ModeAdvanced Mode = "advanced"
)

// ParseMode parses a mode name. The empty string selects ModeAdvanced.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeAdvanced:
		return ModeAdvanced, nil
	case ModeNormal:
		return ModeNormal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Optimize turns pending entries into payment instructions that zero every
// member's balance.
//
// Balances within Tolerance of zero count as settled and produce no
// instruction.
//
// ModeNormal emits one instruction per unsettled pair, from the net debtor
// to the net creditor, ordered by (from, to).
//
// ModeAdvanced runs a greedy match over global balances: the largest
// creditor is paired with the largest debtor, the smaller side is settled
// in full and the remainder goes back into the queue. Ties on amount are
// broken by ascending user ID. The result is deterministic but not
// guaranteed minimal; finding the minimum is NP-hard.
//
// An empty snapshot yields an empty plan. Entries that break ledger
// invariants fail with ErrLedgerInconsistency.
func Optimize(entries []models.SettlementEntry, mode Mode) ([]models.OptimizedSettlement, error) {
	s, err := scan(entries)
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModeNormal:
		return s.optimizeNormal(), nil
	case ModeAdvanced:
		return s.optimizeAdvanced()
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
}

// AttachNames fills display names on a plan. Unknown members are shown as "Unknown".
func AttachNames(plan []models.OptimizedSettlement, names map[string]string) {
	name := func(id string) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return "Unknown"
	}
	for i := range plan {
		plan[i].FromUserName = name(plan[i].FromUserID)
		plan[i].ToUserName = name(plan[i].ToUserID)
	}
}

func (s *ledgerScan) optimizeNormal() []models.OptimizedSettlement {
	plan := make([]models.OptimizedSettlement, 0, len(s.pairs))
	for _, key := range s.pairKeys() {
		pb := s.pairBalance(key)
		if pb.Settled() {
			continue
		}
		plan = append(plan, models.OptimizedSettlement{
			FromUserID:          pb.Debtor,
			ToUserID:            pb.Creditor,
			Amount:              pb.Amount,
			ConsolidatedEntries: pb.Entries,
		})
	}
	sort.SliceStable(plan, func(i, j int) bool {
		if plan[i].FromUserID != plan[j].FromUserID {
			return plan[i].FromUserID < plan[j].FromUserID
		}
		return plan[i].ToUserID < plan[j].ToUserID
	})
	return plan
}

func (s *ledgerScan) optimizeAdvanced() ([]models.OptimizedSettlement, error) {
	creditors := &balanceHeap{}
	debtors := &balanceHeap{}
	total := decimal.Zero
	for _, id := range s.userIDs() {
		u := s.users[id]
		net := u.owed.Sub(u.owes)
		total = total.Add(net)
		switch {
		case settled(net):
		case net.IsPositive():
			*creditors = append(*creditors, party{id: id, amount: net})
		case net.IsNegative():
			*debtors = append(*debtors, party{id: id, amount: net.Neg()})
		}
	}
	if !total.IsZero() {
		return nil, &InconsistencyError{Reason: fmt.Sprintf("balances do not net to zero (residual %s)", total.String())}
	}
	heap.Init(creditors)
	heap.Init(debtors)

	groups := s.components()
	plan := []models.OptimizedSettlement{}
	for creditors.Len() > 0 && debtors.Len() > 0 {
		c := heap.Pop(creditors).(party)
		d := heap.Pop(debtors).(party)
		x := decimal.Min(c.amount, d.amount)

		plan = append(plan, models.OptimizedSettlement{
			FromUserID:          d.id,
			ToUserID:            c.id,
			Amount:              x.InexactFloat64(),
			ConsolidatedEntries: groups.entriesBetween(d.id, c.id),
		})

		c.amount = c.amount.Sub(x)
		d.amount = d.amount.Sub(x)
		if !settled(c.amount) {
			heap.Push(creditors, c)
		}
		if !settled(d.amount) {
			heap.Push(debtors, d)
		}
	}
	return plan, nil
}

// party is one side of the greedy match. amount is always a magnitude.
type party struct {
	id     string
	amount decimal.Decimal
}

// balanceHeap is a max-heap on amount with ascending ID as tie-break.
type balanceHeap []party

func (h balanceHeap) Len() int { return len(h) }

func (h balanceHeap) Less(i, j int) bool {
	if c := h[i].amount.Cmp(h[j].amount); c != 0 {
		return c > 0
	}
	return h[i].id < h[j].id
}

func (h balanceHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *balanceHeap) Push(x any) { *h = append(*h, x.(party)) }

func (h *balanceHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	*h = old[:n-1]
	return p
}

// componentIndex maps each member to the connected component of the
// obligation graph it belongs to.
type componentIndex struct {
	parent  map[string]string
	members map[string][]string
	entries map[string][]string
}

func (s *ledgerScan) components() *componentIndex {
	ci := &componentIndex{parent: make(map[string]string)}
	for key := range s.pairs {
		ci.union(key.a, key.b)
	}

	ci.members = make(map[string][]string)
	for id := range ci.parent {
		root := ci.find(id)
		ci.members[root] = append(ci.members[root], id)
	}
	ci.entries = make(map[string][]string)
	for key, p := range s.pairs {
		root := ci.find(key.a)
		ci.entries[root] = append(ci.entries[root], p.entries...)
	}
	for _, ids := range ci.entries {
		sort.Strings(ids)
	}
	return ci
}

func (ci *componentIndex) find(id string) string {
	p, ok := ci.parent[id]
	if !ok {
		ci.parent[id] = id
		return id
	}
	if p == id {
		return id
	}
	root := ci.find(p)
	ci.parent[id] = root
	return root
}

func (ci *componentIndex) union(a, b string) {
	ra, rb := ci.find(a), ci.find(b)
	if ra == rb {
		return
	}
	if ra < rb {
		ci.parent[rb] = ra
	} else {
		ci.parent[ra] = rb
	}
}

// entriesBetween returns the entries an instruction discharges when the two
// members only ever owed each other. Instructions that merge balances from a
// larger component get no trace.
func (ci *componentIndex) entriesBetween(from, to string) []string {
	root := ci.find(from)
	if ci.find(to) != root || len(ci.members[root]) != 2 {
		return nil
	}
	ids := make([]string, len(ci.entries[root]))
	copy(ids, ci.entries[root])
	return ids
}
