package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

const sourceManual = "manual"

// SettlementService implements the Connect SettlementService: manual
// entries and the status lifecycle of every entry.
type SettlementService struct {
	store   storage.Store
	metrics *metrics.Metrics
	now     func() time.Time
}

var _ api.SettlementServiceHandler = (*SettlementService)(nil)

// NewSettlementService creates a new SettlementService with the given storage backend.
func NewSettlementService(store storage.Store, m *metrics.Metrics) *SettlementService {
	return &SettlementService{store: store, metrics: m, now: time.Now}
}

// CreateSettlement records a manual entry between two group members.
// Entries recorded as completed are stamped as paid immediately.
func (s *SettlementService) CreateSettlement(ctx context.Context, req *connect.Request[api.CreateSettlementRequest]) (*connect.Response[api.CreateSettlementResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	slog.Info("CreateSettlement request received",
		"group_id", msg.GroupID,
		"payer_id", msg.PayerID,
		"payee_id", msg.PayeeID,
		"amount", msg.Amount,
		"status", msg.Status,
	)

	status := models.StatusPending
	switch models.EntryStatus(msg.Status) {
	case "", models.StatusPending:
	case models.StatusCompleted:
		status = models.StatusCompleted
	default:
		return nil, invalidArgument("status must be pending or completed, got %q", msg.Status)
	}

	group, err := groupForMember(ctx, s.store, msg.GroupID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	for _, id := range []string{msg.PayerID, msg.PayeeID} {
		if id != "" && !group.HasMember(id) {
			return nil, invalidArgument("user %s is not a member of the group", id)
		}
	}

	now := s.now().Unix()
	entry, err := models.NewSettlementEntry(group.ID, "", msg.PayerID, msg.PayeeID, msg.Amount, now)
	if err != nil {
		return nil, connectError(err)
	}
	entry.ID = uuid.New().String()
	entry.Description = strings.TrimSpace(msg.Description)
	if status == models.StatusCompleted {
		entry.Status = models.StatusCompleted
		entry.PaidAt = now
	}

	if err := s.store.CreateSettlementEntry(ctx, &entry); err != nil {
		slog.Error("CreateSettlement failed", "group_id", group.ID, "error", err)
		return nil, connectError(err)
	}
	s.metrics.EntriesCreated(sourceManual, 1)

	slog.Info("Settlement created", "settlement_id", entry.ID, "group_id", group.ID, "status", entry.Status)
	return connect.NewResponse(&api.CreateSettlementResponse{Settlement: toAPIEntry(entry)}), nil
}

// GetSettlement retrieves an entry from one of the caller's groups.
func (s *SettlementService) GetSettlement(ctx context.Context, req *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.GetSettlementResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetSettlement request received", "settlement_id", req.Msg.SettlementID)

	entry, err := s.entryForMember(ctx, req.Msg.SettlementID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(&api.GetSettlementResponse{Settlement: toAPIEntry(*entry)}), nil
}

// ListSettlements lists a group's entries or, without a group, the caller's own.
func (s *SettlementService) ListSettlements(ctx context.Context, req *connect.Request[api.ListSettlementsRequest]) (*connect.Response[api.ListSettlementsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	slog.Info("ListSettlements request received", "group_id", msg.GroupID, "status", msg.Status, "page", msg.Page)

	status := models.EntryStatus(msg.Status)
	if status != "" && !status.Valid() {
		return nil, invalidArgument("unknown status %q", msg.Status)
	}
	page, limit := pageParams(msg.Page, msg.Limit)
	filter := storage.EntryFilter{Status: status, Page: page, Limit: limit}
	if msg.GroupID != "" {
		if _, err := groupForMember(ctx, s.store, msg.GroupID, userID); err != nil {
			return nil, connectError(err)
		}
		filter.GroupID = msg.GroupID
	} else {
		filter.UserID = userID
	}

	entries, total, err := s.store.ListSettlementEntries(ctx, filter)
	if err != nil {
		slog.Error("ListSettlements failed", "error", err)
		return nil, connectError(err)
	}

	slog.Info("ListSettlements successful", "count", len(entries), "total", total)
	return connect.NewResponse(&api.ListSettlementsResponse{
		Settlements: toAPIEntries(entries),
		Total:       total,
		Page:        page,
		Limit:       limit,
	}), nil
}

// UpdateSettlementStatus completes or cancels a pending entry. Of two
// concurrent requests for the same entry exactly one succeeds; the other
// gets Aborted.
func (s *SettlementService) UpdateSettlementStatus(ctx context.Context, req *connect.Request[api.UpdateSettlementStatusRequest]) (*connect.Response[api.UpdateSettlementStatusResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("UpdateSettlementStatus request received",
		"settlement_id", req.Msg.SettlementID,
		"status", req.Msg.Status,
	)

	to := models.EntryStatus(req.Msg.Status)
	if to != models.StatusCompleted && to != models.StatusCancelled {
		return nil, invalidArgument("status must be completed or cancelled, got %q", req.Msg.Status)
	}
	entry, err := s.entryForMember(ctx, req.Msg.SettlementID, userID)
	if err != nil {
		return nil, connectError(err)
	}

	switch {
	case entry.Status == models.StatusCompleted:
		err = fmt.Errorf("settlement entry %s: %w", entry.ID, storage.ErrAlreadySettled)
	case !entry.Status.CanTransition(to):
		err = fmt.Errorf("%w: %s to %s", storage.ErrInvalidTransition, entry.Status, to)
	}
	if err != nil {
		s.metrics.StatusTransition(string(to), err)
		return nil, connectError(err)
	}

	// Compare-and-set on pending: a concurrent writer makes this fail with ErrConflict.
	err = s.store.UpdateEntryStatus(ctx, entry.ID, models.StatusPending, to, s.now().Unix())
	s.metrics.StatusTransition(string(to), err)
	if err != nil {
		slog.Warn("UpdateSettlementStatus failed", "settlement_id", entry.ID, "error", err)
		return nil, connectError(err)
	}

	updated, err := s.store.GetSettlementEntry(ctx, entry.ID)
	if err != nil {
		return nil, connectError(err)
	}
	slog.Info("Settlement status updated", "settlement_id", updated.ID, "status", updated.Status)
	return connect.NewResponse(&api.UpdateSettlementStatusResponse{Settlement: toAPIEntry(*updated)}), nil
}

func (s *SettlementService) entryForMember(ctx context.Context, entryID, userID string) (*models.SettlementEntry, error) {
	if entryID == "" {
		return nil, invalidArgument("settlement_id required")
	}
	entry, err := s.store.GetSettlementEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if _, err := groupForMember(ctx, s.store, entry.GroupID, userID); err != nil {
		return nil, err
	}
	return entry, nil
}
