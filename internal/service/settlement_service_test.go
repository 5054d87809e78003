package service

import (
	"context"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/pkg/api"
)

func TestCreateSettlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	groupID := env.createGroup(t, env.alice, env.bob)

	pending, err := env.settlements.CreateSettlement(ctx, as(env.alice, &api.CreateSettlementRequest{
		GroupID:     groupID,
		PayerID:     env.bob,
		PayeeID:     env.alice,
		Amount:      15,
		Description: "Cinema tickets",
	}))
	require.NoError(t, err)
	entry := pending.Msg.Settlement
	assert.NotEmpty(t, entry.ID)
	assert.Empty(t, entry.ExpenseID)
	assert.Equal(t, "pending", entry.Status)
	assert.Zero(t, entry.PaidAt)

	completed, err := env.settlements.CreateSettlement(ctx, as(env.bob, &api.CreateSettlementRequest{
		GroupID: groupID,
		PayerID: env.bob,
		PayeeID: env.alice,
		Amount:  5,
		Status:  "completed",
	}))
	require.NoError(t, err)
	assert.Equal(t, "completed", completed.Msg.Settlement.Status)
	assert.NotZero(t, completed.Msg.Settlement.PaidAt)

	// Only the pending entry counts towards balances.
	balances, err := env.groups.GetGroupBalances(ctx, as(env.alice, &api.GetGroupBalancesRequest{GroupID: groupID}))
	require.NoError(t, err)
	require.Len(t, balances.Msg.Pairs, 1)
	assert.InDelta(t, 15, balances.Msg.Pairs[0].Amount, 0.001)
	assert.Equal(t, env.bob, balances.Msg.Pairs[0].Debtor)
}

func TestCreateSettlement_Errors(t *testing.T) {
	env := newTestEnv(t)
	groupID := env.createGroup(t, env.alice, env.bob)

	tests := []struct {
		name string
		req  *api.CreateSettlementRequest
		want connect.Code
	}{
		{"self settlement", &api.CreateSettlementRequest{PayerID: env.alice, PayeeID: env.alice, Amount: 5}, connect.CodeInvalidArgument},
		{"zero amount", &api.CreateSettlementRequest{PayerID: env.bob, PayeeID: env.alice}, connect.CodeInvalidArgument},
		{"missing payee", &api.CreateSettlementRequest{PayerID: env.bob, Amount: 5}, connect.CodeInvalidArgument},
		{"payee outside group", &api.CreateSettlementRequest{PayerID: env.bob, PayeeID: env.carol, Amount: 5}, connect.CodeInvalidArgument},
		{"cancelled status", &api.CreateSettlementRequest{PayerID: env.bob, PayeeID: env.alice, Amount: 5, Status: "cancelled"}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.GroupID = groupID
			_, err := env.settlements.CreateSettlement(context.Background(), as(env.alice, tt.req))
			requireCode(t, tt.want, err)
		})
	}
}

func TestUpdateSettlementStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	groupID := env.createGroup(t, env.alice, env.bob)
	first := env.pay(t, env.alice, groupID, 20, split(env.bob, 20)).Entries[0]
	second := env.pay(t, env.alice, groupID, 10, split(env.bob, 10)).Entries[0]

	resp, err := env.settlements.UpdateSettlementStatus(ctx, as(env.bob, &api.UpdateSettlementStatusRequest{
		SettlementID: first.ID,
		Status:       "completed",
	}))
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Msg.Settlement.Status)
	assert.NotZero(t, resp.Msg.Settlement.PaidAt)

	_, err = env.settlements.UpdateSettlementStatus(ctx, as(env.bob, &api.UpdateSettlementStatusRequest{
		SettlementID: first.ID,
		Status:       "completed",
	}))
	requireCode(t, connect.CodeAborted, err)

	_, err = env.settlements.UpdateSettlementStatus(ctx, as(env.alice, &api.UpdateSettlementStatusRequest{
		SettlementID: second.ID,
		Status:       "cancelled",
	}))
	require.NoError(t, err)

	_, err = env.settlements.UpdateSettlementStatus(ctx, as(env.alice, &api.UpdateSettlementStatusRequest{
		SettlementID: second.ID,
		Status:       "completed",
	}))
	requireCode(t, connect.CodeFailedPrecondition, err)

	_, err = env.settlements.UpdateSettlementStatus(ctx, as(env.alice, &api.UpdateSettlementStatusRequest{
		SettlementID: second.ID,
		Status:       "pending",
	}))
	requireCode(t, connect.CodeInvalidArgument, err)

	_, err = env.settlements.UpdateSettlementStatus(ctx, as(env.carol, &api.UpdateSettlementStatusRequest{
		SettlementID: second.ID,
		Status:       "completed",
	}))
	requireCode(t, connect.CodePermissionDenied, err)

	balances, err := env.groups.GetGroupBalances(ctx, as(env.alice, &api.GetGroupBalancesRequest{GroupID: groupID}))
	require.NoError(t, err)
	assert.Empty(t, balances.Msg.Pairs)
}

func TestUpdateSettlementStatus_Concurrent(t *testing.T) {
	env := newTestEnv(t)
	groupID := env.createGroup(t, env.alice, env.bob)
	entry := env.pay(t, env.alice, groupID, 20, split(env.bob, 20)).Entries[0]

	const callers = 2
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.settlements.UpdateSettlementStatus(context.Background(), as(env.bob, &api.UpdateSettlementStatusRequest{
				SettlementID: entry.ID,
				Status:       "completed",
			}))
		}(i)
	}
	wg.Wait()

	var ok, aborted int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case connect.CodeOf(err) == connect.CodeAborted:
			aborted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, aborted)
}

func TestListSettlements(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	groupA := env.createGroup(t, env.alice, env.bob, env.carol)
	groupB := env.createGroup(t, env.bob, env.carol)

	paid := env.pay(t, env.alice, groupA, 20, split(env.bob, 20)).Entries[0]
	env.pay(t, env.alice, groupA, 30, split(env.carol, 30))
	env.pay(t, env.carol, groupB, 40, split(env.bob, 40))
	_, err := env.settlements.UpdateSettlementStatus(ctx, as(env.bob, &api.UpdateSettlementStatusRequest{
		SettlementID: paid.ID,
		Status:       "completed",
	}))
	require.NoError(t, err)

	all, err := env.settlements.ListSettlements(ctx, as(env.alice, &api.ListSettlementsRequest{GroupID: groupA}))
	require.NoError(t, err)
	assert.Equal(t, 2, all.Msg.Total)
	assert.Equal(t, 50, all.Msg.Limit)

	pending, err := env.settlements.ListSettlements(ctx, as(env.alice, &api.ListSettlementsRequest{GroupID: groupA, Status: "pending"}))
	require.NoError(t, err)
	require.Len(t, pending.Msg.Settlements, 1)
	assert.Equal(t, env.carol, pending.Msg.Settlements[0].PayerID)

	mine, err := env.settlements.ListSettlements(ctx, as(env.bob, &api.ListSettlementsRequest{}))
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Msg.Total)
	for _, e := range mine.Msg.Settlements {
		assert.True(t, e.PayerID == env.bob || e.PayeeID == env.bob)
	}

	_, err = env.settlements.ListSettlements(ctx, as(env.alice, &api.ListSettlementsRequest{GroupID: groupB}))
	requireCode(t, connect.CodePermissionDenied, err)

	_, err = env.settlements.ListSettlements(ctx, as(env.alice, &api.ListSettlementsRequest{Status: "lost"}))
	requireCode(t, connect.CodeInvalidArgument, err)

	got, err := env.settlements.GetSettlement(ctx, as(env.carol, &api.GetSettlementRequest{SettlementID: paid.ID}))
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Msg.Settlement.Status)
}
