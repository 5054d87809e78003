package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// SettlementServiceName is the fully-qualified name of the SettlementService service.
const SettlementServiceName = "settleup.v1.SettlementService"

const (
	SettlementServiceCreateSettlementProcedure       = "/settleup.v1.SettlementService/CreateSettlement"
	SettlementServiceGetSettlementProcedure          = "/settleup.v1.SettlementService/GetSettlement"
	SettlementServiceListSettlementsProcedure        = "/settleup.v1.SettlementService/ListSettlements"
	SettlementServiceUpdateSettlementStatusProcedure = "/settleup.v1.SettlementService/UpdateSettlementStatus"
)

// SettlementEntry is one directed obligation: PayerID owes PayeeID Amount.
type SettlementEntry struct {
	ID          string  `json:"id"`
	ExpenseID   string  `json:"expenseId,omitempty"`
	GroupID     string  `json:"groupId"`
	PayerID     string  `json:"payerId"`
	PayeeID     string  `json:"payeeId"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	Description string  `json:"description,omitempty"`
	CreatedAt   int64   `json:"createdAt"`
	PaidAt      int64   `json:"paidAt,omitempty"`
}

// CreateSettlementRequest records a manual entry that is not tied to an expense.
type CreateSettlementRequest struct {
	GroupID     string  `json:"groupId"`
	PayerID     string  `json:"payerId"`
	PayeeID     string  `json:"payeeId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`

	// Status is "pending" (default) or "completed".
	Status string `json:"status"`
}

type CreateSettlementResponse struct {
	Settlement *SettlementEntry `json:"settlement"`
}

type GetSettlementRequest struct {
	SettlementID string `json:"settlementId"`
}

type GetSettlementResponse struct {
	Settlement *SettlementEntry `json:"settlement"`
}

// ListSettlementsRequest lists entries. Without a GroupID it lists the
// caller's own entries across groups.
type ListSettlementsRequest struct {
	GroupID string `json:"groupId"`
	Status  string `json:"status"`
	Page    int    `json:"page"`
	Limit   int    `json:"limit"`
}

type ListSettlementsResponse struct {
	Settlements []*SettlementEntry `json:"settlements"`
	Total       int                `json:"total"`
	Page        int                `json:"page"`
	Limit       int                `json:"limit"`
}

type UpdateSettlementStatusRequest struct {
	SettlementID string `json:"settlementId"`

	// Status is "completed" or "cancelled".
	Status string `json:"status"`
}

type UpdateSettlementStatusResponse struct {
	Settlement *SettlementEntry `json:"settlement"`
}

// SettlementServiceHandler is implemented by the server side of SettlementService.
type SettlementServiceHandler interface {
	CreateSettlement(context.Context, *connect.Request[CreateSettlementRequest]) (*connect.Response[CreateSettlementResponse], error)
	GetSettlement(context.Context, *connect.Request[GetSettlementRequest]) (*connect.Response[GetSettlementResponse], error)
	ListSettlements(context.Context, *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error)
	UpdateSettlementStatus(context.Context, *connect.Request[UpdateSettlementStatusRequest]) (*connect.Response[UpdateSettlementStatusResponse], error)
}

// NewSettlementServiceHandler builds an HTTP handler for SettlementService and returns the path to mount it on.
func NewSettlementServiceHandler(svc SettlementServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(SettlementServiceCreateSettlementProcedure, connect.NewUnaryHandler(SettlementServiceCreateSettlementProcedure, svc.CreateSettlement, opts...))
	mux.Handle(SettlementServiceGetSettlementProcedure, connect.NewUnaryHandler(SettlementServiceGetSettlementProcedure, svc.GetSettlement, opts...))
	mux.Handle(SettlementServiceListSettlementsProcedure, connect.NewUnaryHandler(SettlementServiceListSettlementsProcedure, svc.ListSettlements, opts...))
	mux.Handle(SettlementServiceUpdateSettlementStatusProcedure, connect.NewUnaryHandler(SettlementServiceUpdateSettlementStatusProcedure, svc.UpdateSettlementStatus, opts...))
	return "/" + SettlementServiceName + "/", mux
}

// SettlementServiceClient is a client for SettlementService.
type SettlementServiceClient struct {
	createSettlement       *connect.Client[CreateSettlementRequest, CreateSettlementResponse]
	getSettlement          *connect.Client[GetSettlementRequest, GetSettlementResponse]
	listSettlements        *connect.Client[ListSettlementsRequest, ListSettlementsResponse]
	updateSettlementStatus *connect.Client[UpdateSettlementStatusRequest, UpdateSettlementStatusResponse]
}

// NewSettlementServiceClient constructs a client for SettlementService.
func NewSettlementServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SettlementServiceClient {
	baseURL = trimBase(baseURL)
	opts = clientOptions(opts)
	return &SettlementServiceClient{
		createSettlement:       connect.NewClient[CreateSettlementRequest, CreateSettlementResponse](httpClient, baseURL+SettlementServiceCreateSettlementProcedure, opts...),
		getSettlement:          connect.NewClient[GetSettlementRequest, GetSettlementResponse](httpClient, baseURL+SettlementServiceGetSettlementProcedure, opts...),
		listSettlements:        connect.NewClient[ListSettlementsRequest, ListSettlementsResponse](httpClient, baseURL+SettlementServiceListSettlementsProcedure, opts...),
		updateSettlementStatus: connect.NewClient[UpdateSettlementStatusRequest, UpdateSettlementStatusResponse](httpClient, baseURL+SettlementServiceUpdateSettlementStatusProcedure, opts...),
	}
}

func (c *SettlementServiceClient) CreateSettlement(ctx context.Context, req *connect.Request[CreateSettlementRequest]) (*connect.Response[CreateSettlementResponse], error) {
	return c.createSettlement.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) GetSettlement(ctx context.Context, req *connect.Request[GetSettlementRequest]) (*connect.Response[GetSettlementResponse], error) {
	return c.getSettlement.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) ListSettlements(ctx context.Context, req *connect.Request[ListSettlementsRequest]) (*connect.Response[ListSettlementsResponse], error) {
	return c.listSettlements.CallUnary(ctx, req)
}

func (c *SettlementServiceClient) UpdateSettlementStatus(ctx context.Context, req *connect.Request[UpdateSettlementStatusRequest]) (*connect.Response[UpdateSettlementStatusResponse], error) {
	return c.updateSettlementStatus.CallUnary(ctx, req)
}
