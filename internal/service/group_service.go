package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
	"github.com/mmynk/settleup/pkg/api"
)

// GroupService implements the Connect GroupService: membership plus every
// read-only view computed from a group's ledger.
type GroupService struct {
	store       storage.Store
	metrics     *metrics.Metrics
	defaultMode ledger.Mode
	now         func() time.Time
}

var _ api.GroupServiceHandler = (*GroupService)(nil)

// NewGroupService creates a new GroupService. defaultMode is used when a
// request does not name an optimization mode.
func NewGroupService(store storage.Store, m *metrics.Metrics, defaultMode ledger.Mode) *GroupService {
	return &GroupService{store: store, metrics: m, defaultMode: defaultMode, now: time.Now}
}

// CreateGroup creates a new group with the caller as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
		"user_id", userID,
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, invalidArgument("name required")
	}
	if err := s.checkUsersExist(ctx, req.Msg.Members); err != nil {
		return nil, err
	}

	group := &models.Group{
		Name:      name,
		Members:   req.Msg.Members,
		CreatedBy: userID,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, connectError(err)
	}

	slog.Info("Group created", "group_id", group.ID, "members_count", len(group.Members))
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group)}), nil
}

// GetGroup retrieves a group the caller belongs to.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := groupForMember(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		slog.Warn("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}
	return connect.NewResponse(&api.GetGroupResponse{Group: toAPIGroup(group)}), nil
}

// ListGroups lists the caller's groups.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, connectError(err)
	}

	out := make([]*api.Group, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g)
	}
	slog.Info("ListGroups successful", "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMembers adds registered users to a group the caller belongs to.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddMembers request received", "group_id", req.Msg.GroupID, "count", len(req.Msg.UserIDs))

	if len(req.Msg.UserIDs) == 0 {
		return nil, invalidArgument("user_ids required")
	}
	if _, err := groupForMember(ctx, s.store, req.Msg.GroupID, userID); err != nil {
		return nil, connectError(err)
	}
	if err := s.checkUsersExist(ctx, req.Msg.UserIDs); err != nil {
		return nil, err
	}

	if err := s.store.AddGroupMembers(ctx, req.Msg.GroupID, req.Msg.UserIDs); err != nil {
		slog.Error("AddMembers failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, connectError(err)
	}
	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, connectError(err)
	}

	slog.Info("Members added", "group_id", group.ID, "members_count", len(group.Members))
	return connect.NewResponse(&api.AddMembersResponse{Group: toAPIGroup(group)}), nil
}

// GetGroupBalances reports pairwise and per-member balances over the
// group's pending entries.
func (s *GroupService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	groupID := req.Msg.GroupID
	slog.Info("GetGroupBalances request received", "group_id", groupID)

	group, err := groupForMember(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	entries, err := s.store.ListPendingEntries(ctx, groupID)
	if err != nil {
		slog.Error("GetGroupBalances failed - could not list entries", "group_id", groupID, "error", err)
		return nil, connectError(err)
	}

	balances, err := ledger.Aggregate(entries)
	if err != nil {
		slog.Error("GetGroupBalances failed - aggregation error", "group_id", groupID, "error", err)
		return nil, connectError(err)
	}
	names, err := displayNames(ctx, s.store, group.Members)
	if err != nil {
		return nil, connectError(err)
	}

	resp := &api.GetGroupBalancesResponse{
		Pairs:   make([]api.PairBalance, 0, len(balances.Pairs)),
		Members: make([]api.MemberBalance, 0, len(balances.Users)),
	}
	for _, p := range balances.Pairs {
		resp.Pairs = append(resp.Pairs, api.PairBalance{
			UserA:    p.UserA,
			UserB:    p.UserB,
			Net:      p.Net,
			Debtor:   p.Debtor,
			Creditor: p.Creditor,
			Amount:   p.Amount,
			EntryIDs: p.Entries,
		})
	}
	for _, u := range balances.Users {
		resp.Members = append(resp.Members, api.MemberBalance{
			UserID:      u.UserID,
			DisplayName: names[u.UserID],
			TotalOwed:   u.TotalOwed,
			TotalOwes:   u.TotalOwes,
			Net:         u.Net,
			Position:    string(u.Position),
		})
	}

	slog.Info("GetGroupBalances successful",
		"group_id", groupID,
		"entries_count", len(entries),
		"pairs_count", len(resp.Pairs),
	)
	return connect.NewResponse(resp), nil
}

// GetOptimizedSettlements computes the payment plan for a group.
func (s *GroupService) GetOptimizedSettlements(ctx context.Context, req *connect.Request[api.GetOptimizedSettlementsRequest]) (*connect.Response[api.GetOptimizedSettlementsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	groupID := req.Msg.GroupID
	slog.Info("GetOptimizedSettlements request received", "group_id", groupID, "mode", req.Msg.Mode)

	mode, err := s.mode(req.Msg.Mode)
	if err != nil {
		return nil, connectError(err)
	}
	group, err := groupForMember(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	entries, err := s.store.ListPendingEntries(ctx, groupID)
	if err != nil {
		return nil, connectError(err)
	}

	plan, err := s.optimize(ctx, group, entries, mode)
	if err != nil {
		slog.Error("GetOptimizedSettlements failed", "group_id", groupID, "error", err)
		return nil, connectError(err)
	}
	savings := ledger.ComputeSavings(entries, plan)

	slog.Info("GetOptimizedSettlements successful",
		"group_id", groupID,
		"mode", mode,
		"entries_count", savings.OriginalTransactions,
		"instructions_count", savings.OptimizedTransactions,
	)
	return connect.NewResponse(&api.GetOptimizedSettlementsResponse{
		Mode:        string(mode),
		Settlements: toAPIPlan(plan),
		Savings:     toAPISavings(savings),
	}), nil
}

// GetGroupSummary reports expense totals, the pending-entry count and the plan.
func (s *GroupService) GetGroupSummary(ctx context.Context, req *connect.Request[api.GetGroupSummaryRequest]) (*connect.Response[api.GetGroupSummaryResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	groupID := req.Msg.GroupID
	slog.Info("GetGroupSummary request received", "group_id", groupID)

	mode, err := s.mode(req.Msg.Mode)
	if err != nil {
		return nil, connectError(err)
	}
	group, err := groupForMember(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	expenses, err := s.groupExpenses(ctx, groupID)
	if err != nil {
		return nil, connectError(err)
	}
	entries, err := s.store.ListPendingEntries(ctx, groupID)
	if err != nil {
		return nil, connectError(err)
	}
	plan, err := s.optimize(ctx, group, entries, mode)
	if err != nil {
		slog.Error("GetGroupSummary failed", "group_id", groupID, "error", err)
		return nil, connectError(err)
	}

	summary := ledger.BuildGroupSummary(expenses, entries, plan)
	return connect.NewResponse(&api.GetGroupSummaryResponse{
		Summary: api.GroupSummary{
			TotalExpenses:        summary.TotalExpenses,
			TotalSettlements:     summary.TotalSettlements,
			OptimizedSettlements: toAPIPlan(summary.OptimizedSettlements),
		},
	}), nil
}

// GetUserBalance reports one member's position in a group. The member
// defaults to the caller.
func (s *GroupService) GetUserBalance(ctx context.Context, req *connect.Request[api.GetUserBalanceRequest]) (*connect.Response[api.GetUserBalanceResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	target := req.Msg.UserID
	if target == "" {
		target = userID
	}
	slog.Info("GetUserBalance request received", "group_id", req.Msg.GroupID, "target_user_id", target)

	group, err := groupForMember(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	if !group.HasMember(target) {
		return nil, connectError(fmt.Errorf("%w: %s", ledger.ErrMemberNotInGroup, target))
	}
	entries, err := s.store.ListPendingEntries(ctx, group.ID)
	if err != nil {
		return nil, connectError(err)
	}

	st, err := ledger.StatementFor(target, entries)
	if err != nil {
		slog.Error("GetUserBalance failed", "group_id", group.ID, "error", err)
		return nil, connectError(err)
	}
	return connect.NewResponse(&api.GetUserBalanceResponse{
		UserID:    st.UserID,
		TotalOwed: st.TotalOwed,
		TotalOwes: st.TotalOwes,
		Net:       st.Net,
		Position:  string(st.Position),
		Pending:   toAPIEntries(st.Pending),
	}), nil
}

// GetGroupAnalytics reports spending in a group over a month or a year.
func (s *GroupService) GetGroupAnalytics(ctx context.Context, req *connect.Request[api.GetGroupAnalyticsRequest]) (*connect.Response[api.GetGroupAnalyticsResponse], error) {
	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroupAnalytics request received",
		"group_id", req.Msg.GroupID,
		"period", req.Msg.Period,
		"year", req.Msg.Year,
		"month", req.Msg.Month,
	)

	period, err := ledger.ResolvePeriod(req.Msg.Period, req.Msg.Year, req.Msg.Month, s.now())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	group, err := groupForMember(ctx, s.store, req.Msg.GroupID, userID)
	if err != nil {
		return nil, connectError(err)
	}
	expenses, err := s.groupExpenses(ctx, group.ID)
	if err != nil {
		return nil, connectError(err)
	}
	names, err := displayNames(ctx, s.store, group.Members)
	if err != nil {
		return nil, connectError(err)
	}

	a := ledger.GroupAnalytics(expenses, group.Members, period)
	resp := &api.GetGroupAnalyticsResponse{
		Period:        a.Period,
		TotalExpenses: a.TotalExpenses,
		ExpenseCount:  a.ExpenseCount,
		AverageAmount: a.AverageAmount,
		TopCategories: make([]api.CategoryStat, 0, len(a.TopCategories)),
		Contributions: make([]api.MemberContribution, 0, len(a.Contributions)),
		Trend:         make([]api.DayTotal, 0, len(a.Trend)),
	}
	for _, c := range a.TopCategories {
		resp.TopCategories = append(resp.TopCategories, api.CategoryStat(c))
	}
	for _, c := range a.Contributions {
		resp.Contributions = append(resp.Contributions, api.MemberContribution{
			UserID:          c.UserID,
			DisplayName:     names[c.UserID],
			TotalPaid:       c.TotalPaid,
			TotalShare:      c.TotalShare,
			NetContribution: c.NetContribution,
		})
	}
	for _, d := range a.Trend {
		resp.Trend = append(resp.Trend, api.DayTotal(d))
	}

	slog.Info("GetGroupAnalytics successful", "group_id", group.ID, "period", a.Period, "expenses_count", a.ExpenseCount)
	return connect.NewResponse(resp), nil
}

func (s *GroupService) mode(requested string) (ledger.Mode, error) {
	if strings.TrimSpace(requested) == "" {
		return s.defaultMode, nil
	}
	return ledger.ParseMode(requested)
}

// optimize runs the optimizer over entries and labels the plan with member names.
func (s *GroupService) optimize(ctx context.Context, group *models.Group, entries []models.SettlementEntry, mode ledger.Mode) ([]models.OptimizedSettlement, error) {
	start := time.Now()
	plan, err := ledger.Optimize(entries, mode)
	if err != nil {
		return nil, err
	}
	s.metrics.Optimized(string(mode), time.Since(start), len(plan))

	names, err := displayNames(ctx, s.store, group.Members)
	if err != nil {
		return nil, err
	}
	ledger.AttachNames(plan, names)
	return plan, nil
}

// groupExpenses loads every live expense of a group.
func (s *GroupService) groupExpenses(ctx context.Context, groupID string) ([]models.Expense, error) {
	list, _, err := s.store.ListExpenses(ctx, storage.ExpenseFilter{GroupID: groupID})
	if err != nil {
		return nil, err
	}
	expenses := make([]models.Expense, len(list))
	for i, e := range list {
		expenses[i] = *e
	}
	return expenses, nil
}

// checkUsersExist rejects IDs that do not belong to a registered user.
func (s *GroupService) checkUsersExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return connectError(fmt.Errorf("failed to load users: %w", err))
	}
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return invalidArgument("unknown user %q", id)
		}
	}
	return nil
}
