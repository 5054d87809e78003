package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/settleup/internal/models"
)

func amounts(splits []models.Split) []float64 {
	out := make([]float64, len(splits))
	for i, s := range splits {
		out[i] = s.Amount
	}
	return out
}

func TestEqualSplits(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		users   []string
		want    []float64
		wantErr bool
	}{
		{name: "even", amount: 90, users: []string{"a", "b", "c"}, want: []float64{30, 30, 30}},
		{name: "thirds", amount: 100, users: []string{"a", "b", "c"}, want: []float64{33.33, 33.33, 33.34}},
		{name: "two leftover cents", amount: 10, users: []string{"a", "b", "c"}, want: []float64{3.33, 3.33, 3.34}},
		{name: "leftover spread", amount: 0.05, users: []string{"a", "b", "c"}, want: []float64{0.01, 0.02, 0.02}},
		{name: "single", amount: 12.5, users: []string{"a"}, want: []float64{12.5}},
		{name: "too small", amount: 0.02, users: []string{"a", "b", "c"}, wantErr: true},
		{name: "no users", amount: 10, wantErr: true},
		{name: "zero amount", amount: 0, users: []string{"a"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EqualSplits(tt.amount, tt.users)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, amounts(got))
			for i, s := range got {
				assert.Equal(t, tt.users[i], s.UserID)
				assert.Equal(t, models.SplitEqual, s.Kind)
			}
			assert.NoError(t, ValidateSplits(tt.amount, got))
		})
	}
}

func TestPercentageSplits(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		shares  []PercentageShare
		want    []float64
		wantErr error
	}{
		{
			name:   "sixty forty",
			amount: 50,
			shares: []PercentageShare{{UserID: "a", Percent: 60}, {UserID: "b", Percent: 40}},
			want:   []float64{30, 20},
		},
		{
			name:   "thirds by percent",
			amount: 100,
			shares: []PercentageShare{{UserID: "a", Percent: 33.33}, {UserID: "b", Percent: 33.33}, {UserID: "c", Percent: 33.34}},
			want:   []float64{33.33, 33.33, 33.34},
		},
		{
			name:    "under one hundred",
			amount:  100,
			shares:  []PercentageShare{{UserID: "a", Percent: 50}, {UserID: "b", Percent: 40}},
			wantErr: ErrInvalidPercentages,
		},
		{
			name:    "negative share",
			amount:  100,
			shares:  []PercentageShare{{UserID: "a", Percent: 110}, {UserID: "b", Percent: -10}},
			wantErr: ErrInvalidPercentages,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PercentageSplits(tt.amount, tt.shares)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, amounts(got))
			assert.NoError(t, ValidateSplits(tt.amount, got))
		})
	}
}

func TestDominantKind(t *testing.T) {
	assert.Equal(t, models.SplitEqual, models.DominantKind(nil))
	assert.Equal(t, models.SplitPercentage, models.DominantKind([]models.Split{
		{Kind: models.SplitPercentage}, {Kind: models.SplitPercentage}, {Kind: models.SplitEqual},
	}))
	assert.Equal(t, models.SplitUnequal, models.DominantKind([]models.Split{
		{Kind: models.SplitPercentage}, {Kind: models.SplitUnequal},
	}))
}
