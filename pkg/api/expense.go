package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
)

// ExpenseServiceName is the fully-qualified name of the ExpenseService service.
const ExpenseServiceName = "settleup.v1.ExpenseService"

const (
	ExpenseServiceCreateExpenseProcedure = "/settleup.v1.ExpenseService/CreateExpense"
	ExpenseServiceGetExpenseProcedure    = "/settleup.v1.ExpenseService/GetExpense"
	ExpenseServiceListExpensesProcedure  = "/settleup.v1.ExpenseService/ListExpenses"
	ExpenseServiceUpdateExpenseProcedure = "/settleup.v1.ExpenseService/UpdateExpense"
	ExpenseServiceDeleteExpenseProcedure = "/settleup.v1.ExpenseService/DeleteExpense"
	ExpenseServiceAddCommentProcedure    = "/settleup.v1.ExpenseService/AddComment"
)

type Split struct {
	UserID string  `json:"userId"`
	Amount float64 `json:"amount"`

	// Kind is "equal", "unequal" or "percentage". Empty means unequal.
	Kind string `json:"kind,omitempty"`
}

type PercentageShare struct {
	UserID  string  `json:"userId"`
	Percent float64 `json:"percent"`
}

type Comment struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

type ExpenseSnapshot struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Splits      []Split `json:"splits"`
}

type EditHistoryEntry struct {
	ID       string          `json:"id"`
	UserID   string          `json:"userId"`
	Before   ExpenseSnapshot `json:"before"`
	EditedAt int64           `json:"editedAt"`
}

type Expense struct {
	ID             string             `json:"id"`
	GroupID        string             `json:"groupId"`
	CreatedBy      string             `json:"createdBy"`
	Description    string             `json:"description"`
	Amount         float64            `json:"amount"`
	SplitKind      string             `json:"splitKind"`
	Splits         []Split            `json:"splits"`
	Tags           []string           `json:"tags"`
	AttachmentRefs []string           `json:"attachmentRefs"`
	Comments       []Comment          `json:"comments,omitempty"`
	History        []EditHistoryEntry `json:"history,omitempty"`
	CreatedAt      int64              `json:"createdAt"`
	UpdatedAt      int64              `json:"updatedAt"`
	VoidedAt       int64              `json:"voidedAt,omitempty"`
}

// CreateExpenseRequest records an expense paid by the caller.
//
// Shares come from exactly one of: explicit Splits, Percentages of the
// amount, or an equal division among Participants. With none of them the
// expense creates no obligations.
type CreateExpenseRequest struct {
	GroupID        string            `json:"groupId"`
	Description    string            `json:"description"`
	Amount         float64           `json:"amount"`
	Splits         []Split           `json:"splits"`
	Percentages    []PercentageShare `json:"percentages"`
	Participants   []string          `json:"participants"`
	Tags           []string          `json:"tags"`
	AttachmentRefs []string          `json:"attachmentRefs"`
}

type CreateExpenseResponse struct {
	Expense *Expense           `json:"expense"`
	Entries []*SettlementEntry `json:"entries"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct {
	GroupID       string `json:"groupId"`
	IncludeVoided bool   `json:"includeVoided"`
	Page          int    `json:"page"`
	Limit         int    `json:"limit"`
}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
	Total    int        `json:"total"`
	Page     int        `json:"page"`
	Limit    int        `json:"limit"`
}

// UpdateExpenseRequest edits an expense. Nil fields are left unchanged.
type UpdateExpenseRequest struct {
	ExpenseID   string   `json:"expenseId"`
	Description *string  `json:"description,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Splits      []Split  `json:"splits,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type UpdateExpenseResponse struct {
	Expense *Expense `json:"expense"`

	// Entries are the pending entries now backing the expense.
	Entries []*SettlementEntry `json:"entries"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type AddCommentRequest struct {
	ExpenseID string `json:"expenseId"`
	Content   string `json:"content"`
}

type AddCommentResponse struct {
	Comment *Comment `json:"comment"`
}

// ExpenseServiceHandler is implemented by the server side of ExpenseService.
type ExpenseServiceHandler interface {
	CreateExpense(context.Context, *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error)
	GetExpense(context.Context, *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error)
	UpdateExpense(context.Context, *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[DeleteExpenseRequest]) (*connect.Response[emptypb.Empty], error)
	AddComment(context.Context, *connect.Request[AddCommentRequest]) (*connect.Response[AddCommentResponse], error)
}

// NewExpenseServiceHandler builds an HTTP handler for ExpenseService and returns the path to mount it on.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	mux.Handle(ExpenseServiceCreateExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceCreateExpenseProcedure, svc.CreateExpense, opts...))
	mux.Handle(ExpenseServiceGetExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceGetExpenseProcedure, svc.GetExpense, opts...))
	mux.Handle(ExpenseServiceListExpensesProcedure, connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...))
	mux.Handle(ExpenseServiceUpdateExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceUpdateExpenseProcedure, svc.UpdateExpense, opts...))
	mux.Handle(ExpenseServiceDeleteExpenseProcedure, connect.NewUnaryHandler(ExpenseServiceDeleteExpenseProcedure, svc.DeleteExpense, opts...))
	mux.Handle(ExpenseServiceAddCommentProcedure, connect.NewUnaryHandler(ExpenseServiceAddCommentProcedure, svc.AddComment, opts...))
	return "/" + ExpenseServiceName + "/", mux
}

// ExpenseServiceClient is a client for ExpenseService.
type ExpenseServiceClient struct {
	createExpense *connect.Client[CreateExpenseRequest, CreateExpenseResponse]
	getExpense    *connect.Client[GetExpenseRequest, GetExpenseResponse]
	listExpenses  *connect.Client[ListExpensesRequest, ListExpensesResponse]
	updateExpense *connect.Client[UpdateExpenseRequest, UpdateExpenseResponse]
	deleteExpense *connect.Client[DeleteExpenseRequest, emptypb.Empty]
	addComment    *connect.Client[AddCommentRequest, AddCommentResponse]
}

// NewExpenseServiceClient constructs a client for ExpenseService.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ExpenseServiceClient {
	baseURL = trimBase(baseURL)
	opts = clientOptions(opts)
	return &ExpenseServiceClient{
		createExpense: connect.NewClient[CreateExpenseRequest, CreateExpenseResponse](httpClient, baseURL+ExpenseServiceCreateExpenseProcedure, opts...),
		getExpense:    connect.NewClient[GetExpenseRequest, GetExpenseResponse](httpClient, baseURL+ExpenseServiceGetExpenseProcedure, opts...),
		listExpenses:  connect.NewClient[ListExpensesRequest, ListExpensesResponse](httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		updateExpense: connect.NewClient[UpdateExpenseRequest, UpdateExpenseResponse](httpClient, baseURL+ExpenseServiceUpdateExpenseProcedure, opts...),
		deleteExpense: connect.NewClient[DeleteExpenseRequest, emptypb.Empty](httpClient, baseURL+ExpenseServiceDeleteExpenseProcedure, opts...),
		addComment:    connect.NewClient[AddCommentRequest, AddCommentResponse](httpClient, baseURL+ExpenseServiceAddCommentProcedure, opts...),
	}
}

func (c *ExpenseServiceClient) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) GetExpense(ctx context.Context, req *connect.Request[GetExpenseRequest]) (*connect.Response[GetExpenseResponse], error) {
	return c.getExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[UpdateExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[emptypb.Empty], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *ExpenseServiceClient) AddComment(ctx context.Context, req *connect.Request[AddCommentRequest]) (*connect.Response[AddCommentResponse], error) {
	return c.addComment.CallUnary(ctx, req)
}
