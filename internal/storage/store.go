// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/settleup/internal/models"
)

// Page sizes for listings. DefaultPageSize applies when no limit is given.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns nil and no error if the user does not exist.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns nil and no error if the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs returns a map of user ID to User. Unknown IDs are omitted.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
}

// GroupStore persists groups and their membership.
type GroupStore interface {
	// CreateGroup persists a new group. The ID and CreatedAt fields are
	// populated by the store if empty.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup returns ErrNotFound if the group does not exist.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForUser returns every group userID belongs to, newest first.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// AddGroupMembers adds users to a group. Existing members are ignored.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error
}

// ExpenseFilter selects expenses for listing. A zero Limit returns every match.
type ExpenseFilter struct {
	GroupID       string
	IncludeVoided bool
	Page          int
	Limit         int
}

// ExpenseUpdate carries an edit to an expense. The expense holds the new
// values. Cancel and Create replace ledger entries when the amount or the
// splits changed, and are empty otherwise.
type ExpenseUpdate struct {
	Expense *models.Expense
	History models.EditHistoryEntry
	Cancel  []string
	Create  []models.SettlementEntry
}

// ExpenseStore persists expenses together with the ledger entries derived from them.
type ExpenseStore interface {
	// CreateExpense inserts the expense and its entries in one transaction.
	CreateExpense(ctx context.Context, expense *models.Expense, entries []models.SettlementEntry) error

	// GetExpense returns the expense with its splits, comments and history.
	// Voided expenses are returned too. Returns ErrNotFound if it does not exist.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// ListExpenses returns the matching expenses, newest first, and the total match count.
	// Comments and history are not loaded.
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*models.Expense, int, error)

	// UpdateExpense applies an edit, appends the history record and swaps
	// the ledger entries in one transaction.
	UpdateExpense(ctx context.Context, update ExpenseUpdate) error

	// VoidExpense marks the expense deleted and cancels the given pending entries
	// in one transaction.
	VoidExpense(ctx context.Context, expenseID string, cancel []string, voidedAt int64) error

	AddComment(ctx context.Context, comment *models.Comment) error
}

// EntryFilter selects ledger entries for listing. Empty fields match everything.
type EntryFilter struct {
	GroupID string

	// UserID matches entries where the user is either payer or payee.
	UserID string
	Status models.EntryStatus
	Page   int
	Limit  int
}

// LedgerStore persists settlement entries.
type LedgerStore interface {
	CreateSettlementEntry(ctx context.Context, entry *models.SettlementEntry) error

	// GetSettlementEntry returns ErrNotFound if the entry does not exist.
	GetSettlementEntry(ctx context.Context, entryID string) (*models.SettlementEntry, error)

	// ListSettlementEntries returns a page of matching entries, newest first,
	// and the total match count.
	ListSettlementEntries(ctx context.Context, filter EntryFilter) ([]models.SettlementEntry, int, error)

	// ListEntriesForExpense returns every entry derived from an expense, in any status.
	ListEntriesForExpense(ctx context.Context, expenseID string) ([]models.SettlementEntry, error)

	// ListPendingEntries returns a consistent snapshot of a group's pending entries.
	ListPendingEntries(ctx context.Context, groupID string) ([]models.SettlementEntry, error)

	// ListPendingEntriesForUser returns the pending entries of every group
	// userID belongs to, keyed by group ID.
	ListPendingEntriesForUser(ctx context.Context, userID string) (map[string][]models.SettlementEntry, error)

	// UpdateEntryStatus moves an entry from `from` to `to` only if it is still
	// in `from`. Returns ErrNotFound, ErrAlreadySettled or ErrConflict when
	// the guard fails.
	UpdateEntryStatus(ctx context.Context, entryID string, from, to models.EntryStatus, at int64) error
}

// Store is the full persistence surface used by the services.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	UserStore
	GroupStore
	ExpenseStore
	LedgerStore

	// Close releases any resources held by the store.
	Close() error
}

// Offset converts a 1-based page and a limit into a row offset.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
