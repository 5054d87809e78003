package models

// SplitKind describes how an expense was divided among members.
type SplitKind string

const (
	SplitEqual      SplitKind = "equal"
	SplitUnequal    SplitKind = "unequal"
	SplitPercentage SplitKind = "percentage"
)

// Valid reports whether k is one of the known split kinds.
func (k SplitKind) Valid() bool {
	switch k {
	case SplitEqual, SplitUnequal, SplitPercentage:
		return true
	}
	return false
}

// Split is one member's share of one expense.
type Split struct {
	// UserID is the member who owes this share.
	UserID string

	// Amount is the share in the expense currency. Always > 0.
	Amount float64

	// Kind records how the share was computed.
	Kind SplitKind
}

// Expense is a single shared cost paid by CreatedBy.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group the expense belongs to.
	GroupID string

	// CreatedBy is the payer of record. Every other split user owes them.
	CreatedBy string

	// Description is the human-readable label (e.g., "Groceries").
	Description string

	// Amount is the expense total.
	Amount float64

	// Splits is the ordered list of member shares. May be empty.
	Splits []Split

	// Kind defaults to the dominant split kind.
	Kind SplitKind

	Tags           []string
	AttachmentRefs []string
	Comments       []Comment

	// History holds a before-image for every edit, oldest first.
	History []EditHistoryEntry

	CreatedAt int64
	UpdatedAt int64

	// VoidedAt is set when the expense is deleted. Voided expenses keep
	// their rows so the ledger's audit trail stays intact.
	VoidedAt int64
}

// Voided reports whether the expense has been deleted.
func (e *Expense) Voided() bool {
	return e.VoidedAt != 0
}

// Snapshot captures the fields an edit can change.
func (e *Expense) Snapshot() ExpenseSnapshot {
	splits := make([]Split, len(e.Splits))
	copy(splits, e.Splits)
	return ExpenseSnapshot{
		Description: e.Description,
		Amount:      e.Amount,
		Splits:      splits,
	}
}

// ExpenseSnapshot is the before-image stored in an expense's edit history.
type ExpenseSnapshot struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Splits      []Split `json:"splits"`
}

// EditHistoryEntry records who edited an expense and what it looked like before.
type EditHistoryEntry struct {
	ID       string
	UserID   string
	Before   ExpenseSnapshot
	EditedAt int64
}

// Comment is a note left on an expense by a group member.
type Comment struct {
	ID        string
	ExpenseID string
	UserID    string
	Content   string
	CreatedAt int64
}

// DominantKind returns the most frequent kind among splits.
// Ties go to the kind listed first in equal, unequal, percentage order.
func DominantKind(splits []Split) SplitKind {
	if len(splits) == 0 {
		return SplitEqual
	}
	counts := make(map[SplitKind]int, 3)
	for _, s := range splits {
		counts[s.Kind]++
	}
	best := SplitEqual
	for _, k := range []SplitKind{SplitEqual, SplitUnequal, SplitPercentage} {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return best
}
