package ledger

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeAdvanced},
		{in: "advanced", want: ModeAdvanced},
		{in: " Normal ", want: ModeNormal},
		{in: "greedy", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOptimize_Chain(t *testing.T) {
	// B owes A 100 and C owes B 100: B is just passing money along.
	entries := []models.SettlementEntry{
		owes("1", "b", "a", 100),
		owes("2", "c", "b", 100),
	}

	normal, err := Optimize(entries, ModeNormal)
	require.NoError(t, err)
	require.Len(t, normal, 2)
	assert.Equal(t, "b", normal[0].FromUserID)
	assert.Equal(t, "a", normal[0].ToUserID)
	assert.Equal(t, 100.0, normal[0].Amount)
	assert.Equal(t, []string{"1"}, normal[0].ConsolidatedEntries)
	assert.Equal(t, "c", normal[1].FromUserID)
	assert.Equal(t, "b", normal[1].ToUserID)

	advanced, err := Optimize(entries, ModeAdvanced)
	require.NoError(t, err)
	require.Len(t, advanced, 1)
	assert.Equal(t, "c", advanced[0].FromUserID)
	assert.Equal(t, "a", advanced[0].ToUserID)
	assert.Equal(t, 100.0, advanced[0].Amount)
	assert.Empty(t, advanced[0].ConsolidatedEntries)
}

func TestOptimize_PairwiseCancellation(t *testing.T) {
	entries := []models.SettlementEntry{
		owes("1", "a", "b", 100),
		owes("2", "b", "a", 30),
	}
	for _, mode := range []Mode{ModeNormal, ModeAdvanced} {
		t.Run(string(mode), func(t *testing.T) {
			plan, err := Optimize(entries, mode)
			require.NoError(t, err)
			require.Len(t, plan, 1)
			assert.Equal(t, "a", plan[0].FromUserID)
			assert.Equal(t, "b", plan[0].ToUserID)
			assert.Equal(t, 70.0, plan[0].Amount)
			assert.Equal(t, []string{"1", "2"}, plan[0].ConsolidatedEntries)
		})
	}
}

func TestOptimize_Empty(t *testing.T) {
	for _, mode := range []Mode{ModeNormal, ModeAdvanced} {
		plan, err := Optimize(nil, mode)
		require.NoError(t, err)
		assert.NotNil(t, plan)
		assert.Empty(t, plan)
	}

	settled := []models.SettlementEntry{
		owes("1", "a", "b", 40),
		owes("2", "b", "a", 40),
		{ID: "3", PayerID: "c", PayeeID: "a", Amount: 10, Status: models.StatusCompleted},
	}
	plan, err := Optimize(settled, ModeAdvanced)
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestOptimize_InvalidMode(t *testing.T) {
	_, err := Optimize(nil, Mode("fastest"))
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestOptimize_TieBreakByID(t *testing.T) {
	// Two creditors and two debtors with identical amounts.
	entries := []models.SettlementEntry{
		owes("1", "d2", "c2", 50),
		owes("2", "d1", "c1", 50),
	}
	plan, err := Optimize(entries, ModeAdvanced)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "d1", plan[0].FromUserID)
	assert.Equal(t, "c1", plan[0].ToUserID)
	assert.Equal(t, []string{"2"}, plan[0].ConsolidatedEntries)
	assert.Equal(t, "d2", plan[1].FromUserID)
	assert.Equal(t, "c2", plan[1].ToUserID)
}

func TestOptimize_Greedy(t *testing.T) {
	// a is owed 60, b is owed 40, c owes 70, d owes 30.
	entries := []models.SettlementEntry{
		owes("1", "c", "a", 60),
		owes("2", "c", "b", 10),
		owes("3", "d", "b", 30),
	}
	plan, err := Optimize(entries, ModeAdvanced)
	require.NoError(t, err)

	var got []string
	for _, s := range plan {
		got = append(got, fmt.Sprintf("%s->%s:%.2f", s.FromUserID, s.ToUserID, s.Amount))
	}
	assert.Equal(t, []string{"c->a:60.00", "d->b:30.00", "c->b:10.00"}, got)
}

func randomLedger(r *rand.Rand, members, n int) []models.SettlementEntry {
	entries := make([]models.SettlementEntry, 0, n)
	for i := 0; i < n; i++ {
		payer := r.Intn(members)
		payee := (payer + 1 + r.Intn(members-1)) % members
		entries = append(entries, owes(
			fmt.Sprintf("e%03d", i),
			fmt.Sprintf("u%02d", payer),
			fmt.Sprintf("u%02d", payee),
			float64(1+r.Intn(50000))/100,
		))
	}
	return entries
}

// Applying the plan as payments must zero every balance, up to the
// rounding dust left on settled members.
func TestOptimize_Conservation(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		entries := randomLedger(r, 2+r.Intn(7), 1+r.Intn(30))
		nets, err := NetBalances(entries)
		require.NoError(t, err)

		for _, mode := range []Mode{ModeNormal, ModeAdvanced} {
			plan, err := Optimize(entries, mode)
			require.NoError(t, err)

			after := make(map[string]float64, len(nets))
			for id, n := range nets {
				after[id] = n
			}
			for _, s := range plan {
				assert.Greater(t, s.Amount, 0.0)
				assert.NotEqual(t, s.FromUserID, s.ToUserID)
				after[s.FromUserID] = Sum(after[s.FromUserID], s.Amount)
				after[s.ToUserID] = Sum(after[s.ToUserID], -s.Amount)
			}
			for id, n := range after {
				assert.InDelta(t, 0, n, Tolerance*float64(len(nets)), "round %d mode %s user %s", round, mode, id)
			}
		}
	}
}

// Every greedy step zeroes at least one member, the last step zeroes two.
func TestOptimize_AdvancedBound(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		entries := randomLedger(r, 2+r.Intn(7), 1+r.Intn(30))
		nets, err := NetBalances(entries)
		require.NoError(t, err)
		nonZero := 0
		for _, n := range nets {
			if n != 0 {
				nonZero++
			}
		}

		advanced, err := Optimize(entries, ModeAdvanced)
		require.NoError(t, err)
		if nonZero == 0 {
			assert.Empty(t, advanced)
			continue
		}
		assert.LessOrEqual(t, len(advanced), nonZero-1)
	}
}

func TestOptimize_Deterministic(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	entries := randomLedger(r, 6, 25)
	reversed := make([]models.SettlementEntry, len(entries))
	for i, e := range entries {
		reversed[len(entries)-1-i] = e
	}

	for _, mode := range []Mode{ModeNormal, ModeAdvanced} {
		first, err := Optimize(entries, mode)
		require.NoError(t, err)
		second, err := Optimize(reversed, mode)
		require.NoError(t, err)
		assert.Equal(t, first, second, "mode %s", mode)
	}
}

func TestOptimize_ThirdsSplit(t *testing.T) {
	entries := []models.SettlementEntry{
		owes("1", "bob", "alice", 33.33),
		owes("2", "carol", "alice", 33.34),
	}
	plan, err := Optimize(entries, ModeAdvanced)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, "carol", plan[0].FromUserID)
	assert.Equal(t, 33.34, plan[0].Amount)
	assert.Equal(t, "bob", plan[1].FromUserID)
	assert.Equal(t, 33.33, plan[1].Amount)
	assert.Empty(t, plan[0].ConsolidatedEntries)
}

func TestAttachNames(t *testing.T) {
	plan := []models.OptimizedSettlement{{FromUserID: "u1", ToUserID: "u2", Amount: 5}}
	AttachNames(plan, map[string]string{"u1": "Alice"})
	assert.Equal(t, "Alice", plan[0].FromUserName)
	assert.Equal(t, "Unknown", plan[0].ToUserName)
}

func TestOptimize_DustIsSettled(t *testing.T) {
	entries := []models.SettlementEntry{
		owes("1", "alice", "bob", 33.34),
		owes("2", "bob", "alice", 33.33),
	}
	for _, mode := range []Mode{ModeNormal, ModeAdvanced} {
		plan, err := Optimize(entries, mode)
		require.NoError(t, err)
		assert.Empty(t, plan, "mode %s", mode)
	}
}

func TestOptimize_DustDroppedFromChain(t *testing.T) {
	// carol's leftover cent is not worth an instruction.
	entries := []models.SettlementEntry{
		owes("1", "alice", "bob", 20),
		owes("2", "bob", "carol", 19.99),
	}
	plan, err := Optimize(entries, ModeAdvanced)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, "alice", plan[0].FromUserID)
	assert.Equal(t, "carol", plan[0].ToUserID)
	assert.Equal(t, 19.99, plan[0].Amount)
}
