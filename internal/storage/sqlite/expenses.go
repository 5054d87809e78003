package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

const expenseColumns = "id, group_id, created_by, description, amount, kind, tags, attachment_refs, created_at, updated_at, voided_at"

// CreateExpense persists an expense, its splits and the ledger entries
// derived from it in a single transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense, entries []models.SettlementEntry) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	if expense.UpdatedAt == 0 {
		expense.UpdatedAt = expense.CreatedAt
	}
	if expense.Kind == "" {
		expense.Kind = models.DominantKind(expense.Splits)
	}

	tags, err := encodeList(expense.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	refs, err := encodeList(expense.AttachmentRefs)
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)",
		expense.ID, expense.GroupID, expense.CreatedBy, expense.Description, expense.Amount,
		string(expense.Kind), tags, refs, expense.CreatedAt, expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if err := insertSplits(ctx, tx, expense.ID, expense.Splits); err != nil {
		return err
	}

	for i := range entries {
		entries[i].ExpenseID = expense.ID
		entries[i].GroupID = expense.GroupID
		if err := insertEntry(ctx, tx, &entries[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense with its splits, comments and edit history.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", expenseID)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	splits, err := s.splitsOf(ctx, []string{expenseID})
	if err != nil {
		return nil, err
	}
	expense.Splits = splits[expenseID]

	if expense.Comments, err = s.commentsOf(ctx, expenseID); err != nil {
		return nil, err
	}
	if expense.History, err = s.historyOf(ctx, expenseID); err != nil {
		return nil, err
	}
	return expense, nil
}

// ListExpenses retrieves a page of a group's expenses, newest first.
func (s *SQLiteStore) ListExpenses(ctx context.Context, filter storage.ExpenseFilter) ([]*models.Expense, int, error) {
	clause := " WHERE group_id = ?"
	args := []any{filter.GroupID}
	if !filter.IncludeVoided {
		clause += " AND voided_at = 0"
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM expenses"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := "SELECT " + expenseColumns + " FROM expenses" + clause + " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		limit := pageLimit(filter.Limit)
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, storage.Offset(filter.Page, limit))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	expenses := []*models.Expense{}
	var ids []string
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
		ids = append(ids, expense.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	splits, err := s.splitsOf(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, e := range expenses {
		e.Splits = splits[e.ID]
	}
	return expenses, total, nil
}

// UpdateExpense writes an edited expense, records the before-image and
// replaces the affected ledger entries in one transaction.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, update storage.ExpenseUpdate) error {
	expense := update.Expense
	tags, err := encodeList(expense.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	refs, err := encodeList(expense.AttachmentRefs)
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}
	before, err := json.Marshal(update.History.Before)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if update.History.ID == "" {
		update.History.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET description = ?, amount = ?, kind = ?, tags = ?, attachment_refs = ?, updated_at = ?
		 WHERE id = ? AND voided_at = 0`,
		expense.Description, expense.Amount, string(expense.Kind), tags, refs, expense.UpdatedAt, expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if err := expectLiveExpense(ctx, tx, res, expense.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM expense_splits WHERE expense_id = ?", expense.ID); err != nil {
		return fmt.Errorf("failed to replace splits: %w", err)
	}
	if err := insertSplits(ctx, tx, expense.ID, expense.Splits); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO expense_history (id, expense_id, user_id, before_image, edited_at) VALUES (?, ?, ?, ?, ?)",
		update.History.ID, expense.ID, update.History.UserID, string(before), update.History.EditedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history: %w", err)
	}

	if err := cancelEntries(ctx, tx, update.Cancel); err != nil {
		return err
	}
	for i := range update.Create {
		if err := insertEntry(ctx, tx, &update.Create[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// VoidExpense marks an expense deleted and cancels its pending entries.
// The rows are kept for the audit trail.
func (s *SQLiteStore) VoidExpense(ctx context.Context, expenseID string, cancel []string, voidedAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE expenses SET voided_at = ?, updated_at = ? WHERE id = ? AND voided_at = 0",
		voidedAt, voidedAt, expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to void expense: %w", err)
	}
	if err := expectLiveExpense(ctx, tx, res, expenseID); err != nil {
		return err
	}

	if err := cancelEntries(ctx, tx, cancel); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// AddComment attaches a comment to an expense.
func (s *SQLiteStore) AddComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.New().String()
	}
	if comment.CreatedAt == 0 {
		comment.CreatedAt = time.Now().Unix()
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM expenses WHERE id = ?", comment.ExpenseID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("expense %s: %w", comment.ExpenseID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check expense existence: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO expense_comments (id, expense_id, user_id, content, created_at) VALUES (?, ?, ?, ?, ?)",
		comment.ID, comment.ExpenseID, comment.UserID, comment.Content, comment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// expectLiveExpense turns a zero-row guarded update into ErrNotFound or,
// when the expense exists but is voided, ErrConflict.
func expectLiveExpense(ctx context.Context, tx *sql.Tx, res sql.Result, expenseID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM expenses WHERE id = ?", expenseID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("expense %s: %w", expenseID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check expense existence: %w", err)
	}
	return fmt.Errorf("expense %s is voided: %w", expenseID, storage.ErrConflict)
}

func insertSplits(ctx context.Context, tx execer, expenseID string, splits []models.Split) error {
	for i, split := range splits {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expense_splits (expense_id, position, user_id, amount, kind) VALUES (?, ?, ?, ?, ?)",
			expenseID, i, split.UserID, split.Amount, string(split.Kind),
		)
		if err != nil {
			return fmt.Errorf("failed to insert split: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) splitsOf(ctx context.Context, expenseIDs []string) (map[string][]models.Split, error) {
	splits := make(map[string][]models.Split, len(expenseIDs))
	if len(expenseIDs) == 0 {
		return splits, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT expense_id, user_id, amount, kind FROM expense_splits WHERE expense_id IN ("+placeholders(len(expenseIDs))+") ORDER BY expense_id, position",
		stringArgs(expenseIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID, kind string
		var split models.Split
		if err := rows.Scan(&expenseID, &split.UserID, &split.Amount, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		split.Kind = models.SplitKind(kind)
		splits[expenseID] = append(splits[expenseID], split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return splits, nil
}

func (s *SQLiteStore) commentsOf(ctx context.Context, expenseID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, expense_id, user_id, content, created_at FROM expense_comments WHERE expense_id = ? ORDER BY created_at, rowid",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.ExpenseID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

func (s *SQLiteStore) historyOf(ctx context.Context, expenseID string) ([]models.EditHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, before_image, edited_at FROM expense_history WHERE expense_id = ? ORDER BY edited_at, rowid",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var history []models.EditHistoryEntry
	for rows.Next() {
		var h models.EditHistoryEntry
		var before string
		if err := rows.Scan(&h.ID, &h.UserID, &before, &h.EditedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		if err := json.Unmarshal([]byte(before), &h.Before); err != nil {
			return nil, fmt.Errorf("failed to decode history: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return history, nil
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	e := &models.Expense{}
	var kind, tags, refs string
	err := row.Scan(&e.ID, &e.GroupID, &e.CreatedBy, &e.Description, &e.Amount,
		&kind, &tags, &refs, &e.CreatedAt, &e.UpdatedAt, &e.VoidedAt)
	if err != nil {
		return nil, err
	}
	e.Kind = models.SplitKind(kind)
	if e.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	if e.AttachmentRefs, err = decodeList(refs); err != nil {
		return nil, fmt.Errorf("failed to decode attachments: %w", err)
	}
	return e, nil
}
