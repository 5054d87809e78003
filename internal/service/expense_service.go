package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

const sourceExpense = "expense"

// ExpenseService implements the Connect ExpenseService. Every write keeps
// the expense and its ledger entries in step.
type ExpenseService struct {
	store   storage.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

var _ api.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.Store, m *metrics.Metrics) *ExpenseService {
	return &ExpenseService{store: store, metrics: m, now: time.Now}
}

// CreateExpense records an expense paid by the caller and derives its ledger entries.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	slog.Info("CreateExpense request received",
		"group_id", msg.GroupID,
		"amount", msg.Amount,
		"splits_count", len(msg.Splits),
		"percentages_count", len(msg.Percentages),
		"participants_count", len(msg.Participants),
	)

	group, err := groupForMember(ctx, s.store, msg.GroupID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	splits, err := buildSplits(msg)
	if err != nil {
		return nil, connectError(err)
	}
	if err := checkSplitMembers(group, splits); err != nil {
		return nil, err
	}
	if err := ledger.ValidateSplits(msg.Amount, splits); err != nil {
		slog.Warn("CreateExpense rejected", "group_id", group.ID, "error", err)
		return nil, connectError(err)
	}

	now := s.now().Unix()
	expense := &models.Expense{
		ID:             uuid.New().String(),
		GroupID:        group.ID,
		CreatedBy:      userID,
		Description:    strings.TrimSpace(msg.Description),
		Amount:         msg.Amount,
		Splits:         splits,
		Kind:           models.DominantKind(splits),
		Tags:           msg.Tags,
		AttachmentRefs: msg.AttachmentRefs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	entries, err := ledger.DeriveEntries(*expense, now)
	if err != nil {
		return nil, connectError(err)
	}

	if err := s.store.CreateExpense(ctx, expense, entries); err != nil {
		slog.Error("CreateExpense failed", "group_id", group.ID, "error", err)
		return nil, connectError(err)
	}
	s.metrics.EntriesCreated(sourceExpense, len(entries))

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", group.ID,
		"entries_count", len(entries),
	)
	return connect.NewResponse(&api.CreateExpenseResponse{
		Expense: toAPIExpense(expense),
		Entries: toAPIEntries(entries),
	}), nil
}

// GetExpense retrieves an expense with its comments and edit history.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetExpense request received", "expense_id", req.Msg.ExpenseID)

	expense, err := s.expenseForMember(ctx, req.Msg.ExpenseID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// ListExpenses lists a group's expenses, newest first.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListExpenses request received", "group_id", req.Msg.GroupID, "page", req.Msg.Page)

	if _, err := groupForMember(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, connectError(err)
	}
	page, limit := pageParams(req.Msg.Page, req.Msg.Limit)
	expenses, total, err := s.store.ListExpenses(ctx, storage.ExpenseFilter{
		GroupID:       req.Msg.GroupID,
		IncludeVoided: req.Msg.IncludeVoided,
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		slog.Error("ListExpenses failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}

	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(e)
	}
	slog.Info("ListExpenses successful", "count", len(out), "total", total)
	return connect.NewResponse(&api.ListExpensesResponse{
		Expenses: out,
		Total:    total,
		Page:     page,
		Limit:    limit,
	}), nil
}

// UpdateExpense edits an expense. When the amount or the splits change,
// the expense's pending entries are cancelled and re-derived.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	slog.Info("UpdateExpense request received",
		"expense_id", msg.ExpenseID,
		"amount_changed", msg.Amount != nil,
		"splits_changed", msg.Splits != nil,
	)

	expense, err := s.expenseForMember(ctx, msg.ExpenseID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	if expense.Voided() {
		return nil, connectError(fmt.Errorf("expense %s is voided: %w", expense.ID, storage.ErrConflict))
	}
	group, err := s.store.GetGroup(ctx, expense.GroupID)
	if err != nil {
		return nil, connectError(err)
	}

	splits, err := fromAPISplits(msg.Splits)
	if err != nil {
		return nil, err
	}
	if err := checkSplitMembers(group, splits); err != nil {
		return nil, err
	}
	if err := ledger.ValidateUpdate(msg.Amount, splits); err != nil {
		slog.Warn("UpdateExpense rejected", "expense_id", expense.ID, "error", err)
		return nil, connectError(err)
	}

	before := expense.Snapshot()
	now := s.now().Unix()
	if msg.Description != nil {
		expense.Description = strings.TrimSpace(*msg.Description)
	}
	if msg.Tags != nil {
		expense.Tags = msg.Tags
	}
	rederive := false
	if msg.Amount != nil && *msg.Amount != expense.Amount {
		expense.Amount = *msg.Amount
		rederive = true
	}
	if splits != nil {
		expense.Splits = splits
		expense.Kind = models.DominantKind(splits)
		rederive = true
	}
	expense.UpdatedAt = now

	update := storage.ExpenseUpdate{
		Expense: expense,
		History: models.EditHistoryEntry{
			ID:       uuid.New().String(),
			UserID:   userID,
			Before:   before,
			EditedAt: now,
		},
	}
	if rederive {
		existing, err := s.store.ListEntriesForExpense(ctx, expense.ID)
		if err != nil {
			return nil, connectError(err)
		}
		update.Cancel, update.Create, err = ledger.RederiveEntries(*expense, existing, now)
		if err != nil {
			return nil, connectError(err)
		}
	}

	if err := s.store.UpdateExpense(ctx, update); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", expense.ID, "error", err)
		return nil, connectError(err)
	}
	s.metrics.EntriesCreated(sourceExpense, len(update.Create))

	updated, err := s.store.GetExpense(ctx, expense.ID)
	if err != nil {
		return nil, connectError(err)
	}
	pending, err := s.pendingEntries(ctx, expense.ID)
	if err != nil {
		return nil, connectError(err)
	}

	slog.Info("Expense updated",
		"expense_id", expense.ID,
		"cancelled_count", len(update.Cancel),
		"created_count", len(update.Create),
	)
	return connect.NewResponse(&api.UpdateExpenseResponse{
		Expense: toAPIExpense(updated),
		Entries: toAPIEntries(pending),
	}), nil
}

// DeleteExpense voids an expense and cancels its pending entries.
// Completed entries stay as they are.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[emptypb.Empty], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID)

	expense, err := s.expenseForMember(ctx, req.Msg.ExpenseID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	existing, err := s.store.ListEntriesForExpense(ctx, expense.ID)
	if err != nil {
		return nil, connectError(err)
	}
	cancel := ledger.VoidEntries(expense.ID, existing)

	if err := s.store.VoidExpense(ctx, expense.ID, cancel, s.now().Unix()); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		return nil, connectError(err)
	}

	slog.Info("Expense voided", "expense_id", expense.ID, "cancelled_count", len(cancel))
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// AddComment attaches a note to an expense.
func (s *ExpenseService) AddComment(ctx context.Context, req *connect.Request[api.AddCommentRequest]) (*connect.Response[api.AddCommentResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddComment request received", "expense_id", req.Msg.ExpenseID)

	content := strings.TrimSpace(req.Msg.Content)
	if content == "" {
		return nil, invalidArgument("content required")
	}
	expense, err := s.expenseForMember(ctx, req.Msg.ExpenseID, userID)
	if err != nil {
		return nil, connectError(err)
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		ExpenseID: expense.ID,
		UserID:    userID,
		Content:   content,
		CreatedAt: s.now().Unix(),
	}
	if err := s.store.AddComment(ctx, comment); err != nil {
		slog.Error("AddComment failed", "expense_id", expense.ID, "error", err)
		return nil, connectError(err)
	}

	c := toAPIComment(*comment)
	return connect.NewResponse(&api.AddCommentResponse{Comment: &c}), nil
}

func (s *ExpenseService) expenseForMember(ctx context.Context, expenseID, userID string) (*models.Expense, error) {
	if expenseID == "" {
		return nil, invalidArgument("expense_id required")
	}
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if _, err := groupForMember(ctx, s.store, expense.GroupID, userID); err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) pendingEntries(ctx context.Context, expenseID string) ([]models.SettlementEntry, error) {
	all, err := s.store.ListEntriesForExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	pending := make([]models.SettlementEntry, 0, len(all))
	for _, e := range all {
		if e.Status == models.StatusPending {
			pending = append(pending, e)
		}
	}
	return pending, nil
}

// buildSplits picks the share source of a create request: explicit splits,
// then percentages, then an equal division among participants.
func buildSplits(msg *api.CreateExpenseRequest) ([]models.Split, error) {
	sources := 0
	for _, n := range []int{len(msg.Splits), len(msg.Percentages), len(msg.Participants)} {
		if n > 0 {
			sources++
		}
	}
	if sources > 1 {
		return nil, invalidArgument("splits, percentages and participants are mutually exclusive")
	}
	if math.IsNaN(msg.Amount) || math.IsInf(msg.Amount, 0) || msg.Amount <= 0 {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, msg.Amount)
	}

	switch {
	case len(msg.Splits) > 0:
		return fromAPISplits(msg.Splits)
	case len(msg.Percentages) > 0:
		shares := make([]ledger.PercentageShare, len(msg.Percentages))
		for i, p := range msg.Percentages {
			shares[i] = ledger.PercentageShare{UserID: p.UserID, Percent: p.Percent}
		}
		return ledger.PercentageSplits(msg.Amount, shares)
	case len(msg.Participants) > 0:
		return ledger.EqualSplits(msg.Amount, msg.Participants)
	}
	return nil, nil
}

// checkSplitMembers requires every split to name a distinct group member.
func checkSplitMembers(group *models.Group, splits []models.Split) error {
	seen := make(map[string]bool, len(splits))
	for _, sp := range splits {
		if sp.UserID == "" {
			return invalidArgument("split user_id required")
		}
		if seen[sp.UserID] {
			return invalidArgument("user %s appears in more than one split", sp.UserID)
		}
		seen[sp.UserID] = true
		if !group.HasMember(sp.UserID) {
			return invalidArgument("split user %s is not a member of the group", sp.UserID)
		}
	}
	return nil
}
