package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
)

// BalanceServiceName is the fully-qualified name of the BalanceService service.
const BalanceServiceName = "settleup.v1.BalanceService"

const (
	BalanceServiceGetFriendsBalanceProcedure = "/settleup.v1.BalanceService/GetFriendsBalance"
	BalanceServiceGetOverallBalanceProcedure = "/settleup.v1.BalanceService/GetOverallBalance"
)

// FriendGroupBalance is the balance with a friend inside one group.
// Positive means the friend owes the caller.
type FriendGroupBalance struct {
	GroupID   string  `json:"groupId"`
	GroupName string  `json:"groupName"`
	Balance   float64 `json:"balance"`
	OwesYou   bool    `json:"owesYou"`
}

type FriendBalance struct {
	UserID      string               `json:"userId"`
	DisplayName string               `json:"displayName"`
	Net         float64              `json:"net"`
	OwesYou     bool                 `json:"owesYou"`
	Groups      []FriendGroupBalance `json:"groups"`
}

type GetFriendsBalanceResponse struct {
	Friends        []FriendBalance `json:"friends"`
	TotalOwedToYou float64         `json:"totalOwedToYou"`
	TotalYouOwe    float64         `json:"totalYouOwe"`
	Net            float64         `json:"net"`
	ActiveGroups   int             `json:"activeGroups"`
}

type GroupPosition struct {
	GroupID   string  `json:"groupId"`
	GroupName string  `json:"groupName"`
	Balance   float64 `json:"balance"`
}

type GetOverallBalanceResponse struct {
	TotalOwedToYou float64         `json:"totalOwedToYou"`
	TotalYouOwe    float64         `json:"totalYouOwe"`
	Net            float64         `json:"net"`
	Groups         []GroupPosition `json:"groups"`
}

// BalanceServiceHandler is implemented by the server side of BalanceService.
type BalanceServiceHandler interface {
	GetFriendsBalance(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[GetFriendsBalanceResponse], error)
	GetOverallBalance(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[GetOverallBalanceResponse], error)
}

// NewBalanceServiceHandler builds an HTTP handler for BalanceService and returns the path to mount it on.
func NewBalanceServiceHandler(svc BalanceServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(BalanceServiceGetFriendsBalanceProcedure, connect.NewUnaryHandler(BalanceServiceGetFriendsBalanceProcedure, svc.GetFriendsBalance, opts...))
	mux.Handle(BalanceServiceGetOverallBalanceProcedure, connect.NewUnaryHandler(BalanceServiceGetOverallBalanceProcedure, svc.GetOverallBalance, opts...))
	return "/" + BalanceServiceName + "/", mux
}

// BalanceServiceClient is a client for BalanceService.
type BalanceServiceClient struct {
	getFriendsBalance *connect.Client[emptypb.Empty, GetFriendsBalanceResponse]
	getOverallBalance *connect.Client[emptypb.Empty, GetOverallBalanceResponse]
}

// NewBalanceServiceClient constructs a client for BalanceService.
func NewBalanceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BalanceServiceClient {
	baseURL = trimBase(baseURL)
	opts = clientOptions(opts)
	return &BalanceServiceClient{
		getFriendsBalance: connect.NewClient[emptypb.Empty, GetFriendsBalanceResponse](httpClient, baseURL+BalanceServiceGetFriendsBalanceProcedure, opts...),
		getOverallBalance: connect.NewClient[emptypb.Empty, GetOverallBalanceResponse](httpClient, baseURL+BalanceServiceGetOverallBalanceProcedure, opts...),
	}
}

func (c *BalanceServiceClient) GetFriendsBalance(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[GetFriendsBalanceResponse], error) {
	return c.getFriendsBalance.CallUnary(ctx, req)
}

func (c *BalanceServiceClient) GetOverallBalance(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[GetOverallBalanceResponse], error) {
	return c.getOverallBalance.CallUnary(ctx, req)
}
