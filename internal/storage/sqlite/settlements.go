package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

const entryColumns = "id, group_id, expense_id, payer_id, payee_id, amount, status, description, created_at, paid_at"

// CreateSettlementEntry persists a single ledger entry, typically a manual settlement.
func (s *SQLiteStore) CreateSettlementEntry(ctx context.Context, entry *models.SettlementEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}
	if entry.Status == "" {
		entry.Status = models.StatusPending
	}
	return insertEntry(ctx, s.db, entry)
}

// GetSettlementEntry retrieves an entry by ID.
func (s *SQLiteStore) GetSettlementEntry(ctx context.Context, entryID string) (*models.SettlementEntry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM settlement_entries WHERE id = ?", entryID)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settlement entry %s: %w", entryID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement entry: %w", err)
	}
	return &entry, nil
}

// ListSettlementEntries retrieves a page of entries matching the filter, newest first.
func (s *SQLiteStore) ListSettlementEntries(ctx context.Context, filter storage.EntryFilter) ([]models.SettlementEntry, int, error) {
	var where []string
	var args []any
	if filter.GroupID != "" {
		where = append(where, "group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.UserID != "" {
		where = append(where, "(payer_id = ? OR payee_id = ?)")
		args = append(args, filter.UserID, filter.UserID)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM settlement_entries"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count settlement entries: %w", err)
	}

	limit := pageLimit(filter.Limit)
	entries, err := s.queryEntries(ctx,
		"SELECT "+entryColumns+" FROM settlement_entries"+clause+" ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		append(args, limit, storage.Offset(filter.Page, limit))...,
	)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListEntriesForExpense retrieves every entry derived from an expense.
func (s *SQLiteStore) ListEntriesForExpense(ctx context.Context, expenseID string) ([]models.SettlementEntry, error) {
	return s.queryEntries(ctx,
		"SELECT "+entryColumns+" FROM settlement_entries WHERE expense_id = ? ORDER BY created_at, id",
		expenseID,
	)
}

// ListPendingEntries retrieves the pending entries of a group.
func (s *SQLiteStore) ListPendingEntries(ctx context.Context, groupID string) ([]models.SettlementEntry, error) {
	return s.queryEntries(ctx,
		"SELECT "+entryColumns+" FROM settlement_entries WHERE group_id = ? AND status = ? ORDER BY created_at, id",
		groupID, string(models.StatusPending),
	)
}

// ListPendingEntriesForUser retrieves the pending entries of every group the user belongs to.
func (s *SQLiteStore) ListPendingEntriesForUser(ctx context.Context, userID string) (map[string][]models.SettlementEntry, error) {
	entries, err := s.queryEntries(ctx,
		`SELECT e.id, e.group_id, e.expense_id, e.payer_id, e.payee_id, e.amount, e.status, e.description, e.created_at, e.paid_at
		 FROM settlement_entries e JOIN group_members m ON m.group_id = e.group_id
		 WHERE m.user_id = ? AND e.status = ?
		 ORDER BY e.created_at, e.id`,
		userID, string(models.StatusPending),
	)
	if err != nil {
		return nil, err
	}
	byGroup := make(map[string][]models.SettlementEntry)
	for _, e := range entries {
		byGroup[e.GroupID] = append(byGroup[e.GroupID], e)
	}
	return byGroup, nil
}

// UpdateEntryStatus moves an entry from one status to another with a
// compare-and-set on the current status. PaidAt is recorded on completion.
func (s *SQLiteStore) UpdateEntryStatus(ctx context.Context, entryID string, from, to models.EntryStatus, at int64) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s to %s", storage.ErrInvalidTransition, from, to)
	}
	var paidAt int64
	if to == models.StatusCompleted {
		paidAt = at
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE settlement_entries SET status = ?, paid_at = ? WHERE id = ? AND status = ?",
		string(to), paidAt, entryID, string(from),
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update settlement entry: %w", err)
	}
	if n == 1 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM settlement_entries WHERE id = ?", entryID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("settlement entry %s: %w", entryID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check settlement entry: %w", err)
	}
	if models.EntryStatus(current) == models.StatusCompleted {
		return fmt.Errorf("settlement entry %s: %w", entryID, storage.ErrAlreadySettled)
	}
	return fmt.Errorf("settlement entry %s is %s: %w", entryID, current, storage.ErrConflict)
}

func (s *SQLiteStore) queryEntries(ctx context.Context, query string, args ...any) ([]models.SettlementEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlement entries: %w", err)
	}
	defer rows.Close()

	entries := []models.SettlementEntry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement entries: %w", err)
	}
	return entries, nil
}

func insertEntry(ctx context.Context, db execer, entry *models.SettlementEntry) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO settlement_entries ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		entry.ID, entry.GroupID, nullString(entry.ExpenseID), entry.PayerID, entry.PayeeID,
		entry.Amount, string(entry.Status), entry.Description, entry.CreatedAt, entry.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert settlement entry: %w", err)
	}
	return nil
}

// cancelEntries cancels pending entries inside a transaction. An entry that
// is no longer pending means someone else changed it first.
func cancelEntries(ctx context.Context, tx execer, ids []string) error {
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			"UPDATE settlement_entries SET status = ? WHERE id = ? AND status = ?",
			string(models.StatusCancelled), id, string(models.StatusPending),
		)
		if err != nil {
			return fmt.Errorf("failed to cancel settlement entry: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to cancel settlement entry: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("settlement entry %s is no longer pending: %w", id, storage.ErrConflict)
		}
	}
	return nil
}

func scanEntry(row rowScanner) (models.SettlementEntry, error) {
	var e models.SettlementEntry
	var expenseID sql.NullString
	var status string
	err := row.Scan(&e.ID, &e.GroupID, &expenseID, &e.PayerID, &e.PayeeID,
		&e.Amount, &status, &e.Description, &e.CreatedAt, &e.PaidAt)
	if err != nil {
		return models.SettlementEntry{}, err
	}
	e.ExpenseID = expenseID.String
	e.Status = models.EntryStatus(status)
	return e, nil
}
