package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/metrics"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage/sqlite"
	"github.com/mmynk/settleup/pkg/api"
)

// testUserHeader carries the caller's user ID in tests instead of a JWT.
const testUserHeader = "X-Test-User"

// testAuthInterceptor returns a Connect interceptor that sets the user ID from testUserHeader.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if userID := req.Header().Get(testUserHeader); userID != "" {
				ctx = middleware.WithIdentity(ctx, userID, "")
			}
			return next(ctx, req)
		}
	}
}

// as builds a request made by userID.
func as[T any](userID string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if userID != "" {
		req.Header().Set(testUserHeader, userID)
	}
	return req
}

type testEnv struct {
	store       *sqlite.SQLiteStore
	groups      *api.GroupServiceClient
	expenses    *api.ExpenseServiceClient
	settlements *api.SettlementServiceClient
	balances    *api.BalanceServiceClient

	alice, bob, carol, dave string
}

// newTestEnv starts every ledger service on a fresh SQLite file and
// registers four users. Display names equal the lower-case names.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	interceptors := connect.WithInterceptors(testAuthInterceptor())
	mux := http.NewServeMux()
	mux.Handle(api.NewGroupServiceHandler(NewGroupService(store, m, ledger.ModeAdvanced), interceptors))
	mux.Handle(api.NewExpenseServiceHandler(NewExpenseService(store, m), interceptors))
	mux.Handle(api.NewSettlementServiceHandler(NewSettlementService(store, m), interceptors))
	mux.Handle(api.NewBalanceServiceHandler(NewBalanceService(store), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	env := &testEnv{
		store:       store,
		groups:      api.NewGroupServiceClient(http.DefaultClient, server.URL),
		expenses:    api.NewExpenseServiceClient(http.DefaultClient, server.URL),
		settlements: api.NewSettlementServiceClient(http.DefaultClient, server.URL),
		balances:    api.NewBalanceServiceClient(http.DefaultClient, server.URL),
	}
	env.alice = env.newUser(t, "alice")
	env.bob = env.newUser(t, "bob")
	env.carol = env.newUser(t, "carol")
	env.dave = env.newUser(t, "dave")
	return env
}

func (e *testEnv) newUser(t *testing.T, name string) string {
	t.Helper()
	user := models.NewUser(name+"@example.com", name, "not-a-hash")
	require.NoError(t, e.store.CreateUser(context.Background(), user))
	return user.ID
}

func (e *testEnv) createGroup(t *testing.T, creator string, members ...string) string {
	t.Helper()
	resp, err := e.groups.CreateGroup(context.Background(), as(creator, &api.CreateGroupRequest{
		Name:    "Trip",
		Members: members,
	}))
	require.NoError(t, err)
	return resp.Msg.Group.ID
}

// pay records an expense paid by payer with explicit splits.
func (e *testEnv) pay(t *testing.T, payer, groupID string, amount float64, splits ...api.Split) *api.CreateExpenseResponse {
	t.Helper()
	resp, err := e.expenses.CreateExpense(context.Background(), as(payer, &api.CreateExpenseRequest{
		GroupID:     groupID,
		Description: "Expense",
		Amount:      amount,
		Splits:      splits,
	}))
	require.NoError(t, err)
	return resp.Msg
}

func split(userID string, amount float64) api.Split {
	return api.Split{UserID: userID, Amount: amount}
}

// chain builds the group where alice owes bob 10 and bob owes carol 10.
func (e *testEnv) chain(t *testing.T) string {
	t.Helper()
	groupID := e.createGroup(t, e.alice, e.bob, e.carol)
	e.pay(t, e.bob, groupID, 10, split(e.alice, 10))
	e.pay(t, e.carol, groupID, 10, split(e.bob, 10))
	return groupID
}

func requireCode(t *testing.T, want connect.Code, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, connect.CodeOf(err), "error: %v", err)
}
