package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// GroupServiceName is the fully-qualified name of the GroupService service.
const GroupServiceName = "settleup.v1.GroupService"

const (
	GroupServiceCreateGroupProcedure             = "/settleup.v1.GroupService/CreateGroup"
	GroupServiceGetGroupProcedure                = "/settleup.v1.GroupService/GetGroup"
	GroupServiceListGroupsProcedure              = "/settleup.v1.GroupService/ListGroups"
	GroupServiceAddMembersProcedure              = "/settleup.v1.GroupService/AddMembers"
	GroupServiceGetGroupBalancesProcedure        = "/settleup.v1.GroupService/GetGroupBalances"
	GroupServiceGetOptimizedSettlementsProcedure = "/settleup.v1.GroupService/GetOptimizedSettlements"
	GroupServiceGetGroupSummaryProcedure         = "/settleup.v1.GroupService/GetGroupSummary"
	GroupServiceGetUserBalanceProcedure          = "/settleup.v1.GroupService/GetUserBalance"
	GroupServiceGetGroupAnalyticsProcedure       = "/settleup.v1.GroupService/GetGroupAnalytics"
)

type Group struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedBy string   `json:"createdBy"`
	CreatedAt int64    `json:"createdAt"`
}

type CreateGroupRequest struct {
	Name string `json:"name"`

	// Members are user IDs. The caller is always added.
	Members []string `json:"members"`
}

type CreateGroupResponse struct {
	Group *Group `json:"group"`
}

type GetGroupRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type AddMembersRequest struct {
	GroupID string   `json:"groupId"`
	UserIDs []string `json:"userIds"`
}

type AddMembersResponse struct {
	Group *Group `json:"group"`
}

// PairBalance is the netted debt between two members. Net is what UserA
// owes UserB minus what UserB owes UserA.
type PairBalance struct {
	UserA    string   `json:"userA"`
	UserB    string   `json:"userB"`
	Net      float64  `json:"net"`
	Debtor   string   `json:"debtor,omitempty"`
	Creditor string   `json:"creditor,omitempty"`
	Amount   float64  `json:"amount"`
	EntryIDs []string `json:"entryIds"`
}

// MemberBalance is a member's position across the whole group.
type MemberBalance struct {
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	TotalOwed   float64 `json:"totalOwed"`
	TotalOwes   float64 `json:"totalOwes"`
	Net         float64 `json:"net"`
	Position    string  `json:"position"`
}

type GetGroupBalancesRequest struct {
	GroupID string `json:"groupId"`
}

type GetGroupBalancesResponse struct {
	Pairs   []PairBalance   `json:"pairs"`
	Members []MemberBalance `json:"members"`
}

type OptimizedSettlement struct {
	FromUserID          string   `json:"fromUserId"`
	ToUserID            string   `json:"toUserId"`
	FromUserName        string   `json:"fromUserName"`
	ToUserName          string   `json:"toUserName"`
	Amount              float64  `json:"amount"`
	ConsolidatedEntries []string `json:"consolidatedEntries"`
}

type Savings struct {
	OriginalTransactions  int     `json:"originalTransactions"`
	OptimizedTransactions int     `json:"optimizedTransactions"`
	ReductionPercentage   float64 `json:"reductionPercentage"`
}

type GetOptimizedSettlementsRequest struct {
	GroupID string `json:"groupId"`

	// Mode is "normal" or "advanced". Empty uses the server default.
	Mode string `json:"mode"`
}

type GetOptimizedSettlementsResponse struct {
	Mode        string                `json:"mode"`
	Settlements []OptimizedSettlement `json:"settlements"`
	Savings     Savings               `json:"savings"`
}

type GroupSummary struct {
	TotalExpenses        float64               `json:"totalExpenses"`
	TotalSettlements     int                   `json:"totalSettlements"`
	OptimizedSettlements []OptimizedSettlement `json:"optimizedSettlements"`
}

type GetGroupSummaryRequest struct {
	GroupID string `json:"groupId"`
	Mode    string `json:"mode"`
}

type GetGroupSummaryResponse struct {
	Summary GroupSummary `json:"summary"`
}

type GetUserBalanceRequest struct {
	GroupID string `json:"groupId"`

	// UserID defaults to the caller.
	UserID string `json:"userId"`
}

type GetUserBalanceResponse struct {
	UserID    string             `json:"userId"`
	TotalOwed float64            `json:"totalOwed"`
	TotalOwes float64            `json:"totalOwes"`
	Net       float64            `json:"net"`
	Position  string             `json:"position"`
	Pending   []*SettlementEntry `json:"pending"`
}

type GetGroupAnalyticsRequest struct {
	GroupID string `json:"groupId"`

	// Period is "month" or "year". Anything else reports the current month.
	Period string `json:"period"`
	Year   int    `json:"year"`
	Month  int    `json:"month"`
}

type CategoryStat struct {
	Tag        string  `json:"tag"`
	Amount     float64 `json:"amount"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type MemberContribution struct {
	UserID          string  `json:"userId"`
	DisplayName     string  `json:"displayName"`
	TotalPaid       float64 `json:"totalPaid"`
	TotalShare      float64 `json:"totalShare"`
	NetContribution float64 `json:"netContribution"`
}

type DayTotal struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
	Count  int     `json:"count"`
}

type GetGroupAnalyticsResponse struct {
	Period        string               `json:"period"`
	TotalExpenses float64              `json:"totalExpenses"`
	ExpenseCount  int                  `json:"expenseCount"`
	AverageAmount float64              `json:"averageAmount"`
	TopCategories []CategoryStat       `json:"topCategories"`
	Contributions []MemberContribution `json:"contributions"`
	Trend         []DayTotal           `json:"trend"`
}

// GroupServiceHandler is implemented by the server side of GroupService.
type GroupServiceHandler interface {
	CreateGroup(context.Context, *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error)
	GetGroup(context.Context, *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error)
	ListGroups(context.Context, *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error)
	AddMembers(context.Context, *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error)
	GetGroupBalances(context.Context, *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error)
	GetOptimizedSettlements(context.Context, *connect.Request[GetOptimizedSettlementsRequest]) (*connect.Response[GetOptimizedSettlementsResponse], error)
	GetGroupSummary(context.Context, *connect.Request[GetGroupSummaryRequest]) (*connect.Response[GetGroupSummaryResponse], error)
	GetUserBalance(context.Context, *connect.Request[GetUserBalanceRequest]) (*connect.Response[GetUserBalanceResponse], error)
	GetGroupAnalytics(context.Context, *connect.Request[GetGroupAnalyticsRequest]) (*connect.Response[GetGroupAnalyticsResponse], error)
}

// NewGroupServiceHandler builds an HTTP handler for GroupService and returns the path to mount it on.
func NewGroupServiceHandler(svc GroupServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(GroupServiceCreateGroupProcedure, connect.NewUnaryHandler(GroupServiceCreateGroupProcedure, svc.CreateGroup, opts...))
	mux.Handle(GroupServiceGetGroupProcedure, connect.NewUnaryHandler(GroupServiceGetGroupProcedure, svc.GetGroup, opts...))
	mux.Handle(GroupServiceListGroupsProcedure, connect.NewUnaryHandler(GroupServiceListGroupsProcedure, svc.ListGroups, opts...))
	mux.Handle(GroupServiceAddMembersProcedure, connect.NewUnaryHandler(GroupServiceAddMembersProcedure, svc.AddMembers, opts...))
	mux.Handle(GroupServiceGetGroupBalancesProcedure, connect.NewUnaryHandler(GroupServiceGetGroupBalancesProcedure, svc.GetGroupBalances, opts...))
	mux.Handle(GroupServiceGetOptimizedSettlementsProcedure, connect.NewUnaryHandler(GroupServiceGetOptimizedSettlementsProcedure, svc.GetOptimizedSettlements, opts...))
	mux.Handle(GroupServiceGetGroupSummaryProcedure, connect.NewUnaryHandler(GroupServiceGetGroupSummaryProcedure, svc.GetGroupSummary, opts...))
	mux.Handle(GroupServiceGetUserBalanceProcedure, connect.NewUnaryHandler(GroupServiceGetUserBalanceProcedure, svc.GetUserBalance, opts...))
	mux.Handle(GroupServiceGetGroupAnalyticsProcedure, connect.NewUnaryHandler(GroupServiceGetGroupAnalyticsProcedure, svc.GetGroupAnalytics, opts...))
	return "/" + GroupServiceName + "/", mux
}

// GroupServiceClient is a client for GroupService.
type GroupServiceClient struct {
	createGroup             *connect.Client[CreateGroupRequest, CreateGroupResponse]
	getGroup                *connect.Client[GetGroupRequest, GetGroupResponse]
	listGroups              *connect.Client[ListGroupsRequest, ListGroupsResponse]
	addMembers              *connect.Client[AddMembersRequest, AddMembersResponse]
	getGroupBalances        *connect.Client[GetGroupBalancesRequest, GetGroupBalancesResponse]
	getOptimizedSettlements *connect.Client[GetOptimizedSettlementsRequest, GetOptimizedSettlementsResponse]
	getGroupSummary         *connect.Client[GetGroupSummaryRequest, GetGroupSummaryResponse]
	getUserBalance          *connect.Client[GetUserBalanceRequest, GetUserBalanceResponse]
	getGroupAnalytics       *connect.Client[GetGroupAnalyticsRequest, GetGroupAnalyticsResponse]
}

// NewGroupServiceClient constructs a client for GroupService.
func NewGroupServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *GroupServiceClient {
	baseURL = trimBase(baseURL)
	opts = clientOptions(opts)
	return &GroupServiceClient{
		createGroup:             connect.NewClient[CreateGroupRequest, CreateGroupResponse](httpClient, baseURL+GroupServiceCreateGroupProcedure, opts...),
		getGroup:                connect.NewClient[GetGroupRequest, GetGroupResponse](httpClient, baseURL+GroupServiceGetGroupProcedure, opts...),
		listGroups:              connect.NewClient[ListGroupsRequest, ListGroupsResponse](httpClient, baseURL+GroupServiceListGroupsProcedure, opts...),
		addMembers:              connect.NewClient[AddMembersRequest, AddMembersResponse](httpClient, baseURL+GroupServiceAddMembersProcedure, opts...),
		getGroupBalances:        connect.NewClient[GetGroupBalancesRequest, GetGroupBalancesResponse](httpClient, baseURL+GroupServiceGetGroupBalancesProcedure, opts...),
		getOptimizedSettlements: connect.NewClient[GetOptimizedSettlementsRequest, GetOptimizedSettlementsResponse](httpClient, baseURL+GroupServiceGetOptimizedSettlementsProcedure, opts...),
		getGroupSummary:         connect.NewClient[GetGroupSummaryRequest, GetGroupSummaryResponse](httpClient, baseURL+GroupServiceGetGroupSummaryProcedure, opts...),
		getUserBalance:          connect.NewClient[GetUserBalanceRequest, GetUserBalanceResponse](httpClient, baseURL+GroupServiceGetUserBalanceProcedure, opts...),
		getGroupAnalytics:       connect.NewClient[GetGroupAnalyticsRequest, GetGroupAnalyticsResponse](httpClient, baseURL+GroupServiceGetGroupAnalyticsProcedure, opts...),
	}
}

func (c *GroupServiceClient) CreateGroup(ctx context.Context, req *connect.Request[CreateGroupRequest]) (*connect.Response[CreateGroupResponse], error) {
	return c.createGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	return c.getGroup.CallUnary(ctx, req)
}

func (c *GroupServiceClient) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	return c.listGroups.CallUnary(ctx, req)
}

func (c *GroupServiceClient) AddMembers(ctx context.Context, req *connect.Request[AddMembersRequest]) (*connect.Response[AddMembersResponse], error) {
	return c.addMembers.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupBalances(ctx context.Context, req *connect.Request[GetGroupBalancesRequest]) (*connect.Response[GetGroupBalancesResponse], error) {
	return c.getGroupBalances.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetOptimizedSettlements(ctx context.Context, req *connect.Request[GetOptimizedSettlementsRequest]) (*connect.Response[GetOptimizedSettlementsResponse], error) {
	return c.getOptimizedSettlements.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupSummary(ctx context.Context, req *connect.Request[GetGroupSummaryRequest]) (*connect.Response[GetGroupSummaryResponse], error) {
	return c.getGroupSummary.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetUserBalance(ctx context.Context, req *connect.Request[GetUserBalanceRequest]) (*connect.Response[GetUserBalanceResponse], error) {
	return c.getUserBalance.CallUnary(ctx, req)
}

func (c *GroupServiceClient) GetGroupAnalytics(ctx context.Context, req *connect.Request[GetGroupAnalyticsRequest]) (*connect.Response[GetGroupAnalyticsResponse], error) {
	return c.getGroupAnalytics.CallUnary(ctx, req)
}
