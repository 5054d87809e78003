package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/config"
	"github.com/mmynk/settleup/internal/storage/sqlite"
	"github.com/mmynk/settleup/pkg/api"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)

	cfg := config.Config{
		JWTSecret:    "0123456789abcdef0123456789abcdef",
		TokenTTL:     time.Hour,
		OptimizeMode: "advanced",
	}
	mux, err := newMux(cfg, store, prometheus.NewRegistry())
	require.NoError(t, err)

	server := httptest.NewServer(corsMiddleware(mux))
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})
	return server
}

func TestServer_EndToEnd(t *testing.T) {
	server := setupServer(t)
	ctx := context.Background()

	authClient := api.NewAuthServiceClient(http.DefaultClient, server.URL)
	register := func(email, name string) (string, string) {
		resp, err := authClient.Register(ctx, connect.NewRequest(&api.RegisterRequest{
			Email:       email,
			DisplayName: name,
			Password:    "password123",
		}))
		require.NoError(t, err)
		return resp.Msg.Token, resp.Msg.User.ID
	}
	aliceToken, _ := register("alice@example.com", "Alice")
	_, bobID := register("bob@example.com", "Bob")

	authed := func(req connect.AnyRequest) {
		req.Header().Set("Authorization", "Bearer "+aliceToken)
	}

	groups := api.NewGroupServiceClient(http.DefaultClient, server.URL)
	createReq := connect.NewRequest(&api.CreateGroupRequest{Name: "Flat", Members: []string{bobID}})
	authed(createReq)
	group, err := groups.CreateGroup(ctx, createReq)
	require.NoError(t, err)

	expenses := api.NewExpenseServiceClient(http.DefaultClient, server.URL)
	expenseReq := connect.NewRequest(&api.CreateExpenseRequest{
		GroupID:      group.Msg.Group.ID,
		Description:  "Groceries",
		Amount:       40,
		Participants: []string{group.Msg.Group.CreatedBy, bobID},
	})
	authed(expenseReq)
	_, err = expenses.CreateExpense(ctx, expenseReq)
	require.NoError(t, err)

	planReq := connect.NewRequest(&api.GetOptimizedSettlementsRequest{GroupID: group.Msg.Group.ID})
	authed(planReq)
	plan, err := groups.GetOptimizedSettlements(ctx, planReq)
	require.NoError(t, err)
	assert.Equal(t, "advanced", plan.Msg.Mode)
	require.Len(t, plan.Msg.Settlements, 1)
	assert.Equal(t, bobID, plan.Msg.Settlements[0].FromUserID)
	assert.InDelta(t, 20, plan.Msg.Settlements[0].Amount, 0.001)

	_, err = groups.ListGroups(ctx, connect.NewRequest(&api.ListGroupsRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestServer_HealthAndMetrics(t *testing.T) {
	server := setupServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// One RPC so the request counter has a series.
	authClient := api.NewAuthServiceClient(http.DefaultClient, server.URL)
	_, err = authClient.Login(context.Background(), connect.NewRequest(&api.LoginRequest{Email: "nobody@example.com", Password: "password123"}))
	require.Error(t, err)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "settleup_rpc_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	server := setupServer(t)

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/"+api.GroupServiceName+"/CreateGroup", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}
