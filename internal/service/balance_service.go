package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

// BalanceService implements the Connect BalanceService: the caller's
// position across all of their groups.
type BalanceService struct {
	store storage.Store
}

var _ api.BalanceServiceHandler = (*BalanceService)(nil)

// NewBalanceService creates a new BalanceService with the given storage backend.
func NewBalanceService(store storage.Store) *BalanceService {
	return &BalanceService{store: store}
}

// GetFriendsBalance reports what the caller owes, and is owed by, each
// counterparty, broken down by group.
func (s *BalanceService) GetFriendsBalance(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.GetFriendsBalanceResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetFriendsBalance request received", "user_id", userID)

	ledgers, err := s.ledgersFor(ctx, userID)
	if err != nil {
		slog.Error("GetFriendsBalance failed", "user_id", userID, "error", err)
		return nil, connectError(err)
	}
	summary, err := ledger.FriendBalances(userID, ledgers)
	if err != nil {
		slog.Error("GetFriendsBalance failed", "user_id", userID, "error", err)
		return nil, connectError(err)
	}

	ids := make([]string, len(summary.Friends))
	for i, f := range summary.Friends {
		ids[i] = f.UserID
	}
	names, err := displayNames(ctx, s.store, ids)
	if err != nil {
		return nil, connectError(err)
	}

	resp := &api.GetFriendsBalanceResponse{
		Friends:        make([]api.FriendBalance, 0, len(summary.Friends)),
		TotalOwedToYou: summary.TotalOwedToYou,
		TotalYouOwe:    summary.TotalYouOwe,
		Net:            summary.Net,
		ActiveGroups:   summary.ActiveGroups,
	}
	for _, f := range summary.Friends {
		groups := make([]api.FriendGroupBalance, len(f.Breakdown))
		for i, b := range f.Breakdown {
			groups[i] = api.FriendGroupBalance(b)
		}
		resp.Friends = append(resp.Friends, api.FriendBalance{
			UserID:      f.UserID,
			DisplayName: names[f.UserID],
			Net:         f.Net,
			OwesYou:     f.OwesYou,
			Groups:      groups,
		})
	}

	slog.Info("GetFriendsBalance successful", "user_id", userID, "friends_count", len(resp.Friends))
	return connect.NewResponse(resp), nil
}

// GetOverallBalance reports the caller's net position in each group.
func (s *BalanceService) GetOverallBalance(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.GetOverallBalanceResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetOverallBalance request received", "user_id", userID)

	ledgers, err := s.ledgersFor(ctx, userID)
	if err != nil {
		slog.Error("GetOverallBalance failed", "user_id", userID, "error", err)
		return nil, connectError(err)
	}
	summary, err := ledger.OverallBalance(userID, ledgers)
	if err != nil {
		slog.Error("GetOverallBalance failed", "user_id", userID, "error", err)
		return nil, connectError(err)
	}

	resp := &api.GetOverallBalanceResponse{
		TotalOwedToYou: summary.TotalOwedToYou,
		TotalYouOwe:    summary.TotalYouOwe,
		Net:            summary.Net,
		Groups:         make([]api.GroupPosition, len(summary.Groups)),
	}
	for i, g := range summary.Groups {
		resp.Groups[i] = api.GroupPosition(g)
	}
	return connect.NewResponse(resp), nil
}

// ledgersFor snapshots the pending entries of every group userID belongs to.
func (s *BalanceService) ledgersFor(ctx context.Context, userID string) ([]ledger.GroupLedger, error) {
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.ListPendingEntriesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ledgers := make([]ledger.GroupLedger, len(groups))
	for i, g := range groups {
		ledgers[i] = ledger.GroupLedger{
			GroupID:   g.ID,
			GroupName: g.Name,
			Entries:   pending[g.ID],
		}
	}
	return ledgers, nil
}
