package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/settleup/pkg/api"
)

// twoGroups puts bob 30 in debt to alice in one group and alice 10 in
// debt to bob in another.
func (e *testEnv) twoGroups(t *testing.T) (string, string) {
	t.Helper()
	trip := e.createGroup(t, e.alice, e.bob, e.carol)
	flat := e.createGroup(t, e.alice, e.bob)
	e.pay(t, e.alice, trip, 30, split(e.bob, 30))
	e.pay(t, e.bob, flat, 10, split(e.alice, 10))
	return trip, flat
}

func TestGetFriendsBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip, flat := env.twoGroups(t)

	resp, err := env.balances.GetFriendsBalance(ctx, as(env.alice, &emptypb.Empty{}))
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Msg.ActiveGroups)
	assert.InDelta(t, 20, resp.Msg.TotalOwedToYou, 0.001)
	assert.InDelta(t, 0, resp.Msg.TotalYouOwe, 0.001)
	assert.InDelta(t, 20, resp.Msg.Net, 0.001)

	require.Len(t, resp.Msg.Friends, 1)
	bob := resp.Msg.Friends[0]
	assert.Equal(t, env.bob, bob.UserID)
	assert.Equal(t, "bob", bob.DisplayName)
	assert.True(t, bob.OwesYou)
	assert.InDelta(t, 20, bob.Net, 0.001)

	byGroup := make(map[string]api.FriendGroupBalance)
	for _, g := range bob.Groups {
		byGroup[g.GroupID] = g
	}
	require.Len(t, byGroup, 2)
	assert.InDelta(t, 30, byGroup[trip].Balance, 0.001)
	assert.True(t, byGroup[trip].OwesYou)
	assert.InDelta(t, -10, byGroup[flat].Balance, 0.001)
	assert.False(t, byGroup[flat].OwesYou)

	carol, err := env.balances.GetFriendsBalance(ctx, as(env.carol, &emptypb.Empty{}))
	require.NoError(t, err)
	assert.Empty(t, carol.Msg.Friends)
	assert.Equal(t, 1, carol.Msg.ActiveGroups)
}

func TestGetOverallBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip, flat := env.twoGroups(t)

	resp, err := env.balances.GetOverallBalance(ctx, as(env.bob, &emptypb.Empty{}))
	require.NoError(t, err)

	assert.InDelta(t, 10, resp.Msg.TotalOwedToYou, 0.001)
	assert.InDelta(t, 30, resp.Msg.TotalYouOwe, 0.001)
	assert.InDelta(t, -20, resp.Msg.Net, 0.001)

	byGroup := make(map[string]float64)
	for _, g := range resp.Msg.Groups {
		byGroup[g.GroupID] = g.Balance
		assert.Equal(t, "Trip", g.GroupName)
	}
	assert.InDelta(t, -30, byGroup[trip], 0.001)
	assert.InDelta(t, 10, byGroup[flat], 0.001)

	_, err = env.balances.GetOverallBalance(ctx, as("", &emptypb.Empty{}))
	requireCode(t, connect.CodeUnauthenticated, err)
}
