package service

import (
	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/pkg/api"
)

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPIGroup(g *models.Group) *api.Group {
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		Members:   g.Members,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
	}
}

// fromAPISplits converts request splits. An empty kind means the caller
// chose the amounts, so it is recorded as unequal.
func fromAPISplits(in []api.Split) ([]models.Split, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]models.Split, len(in))
	for i, s := range in {
		if s.UserID == "" {
			return nil, invalidArgument("split %d: user_id required", i)
		}
		kind := models.SplitKind(s.Kind)
		if kind == "" {
			kind = models.SplitUnequal
		}
		if !kind.Valid() {
			return nil, invalidArgument("split %d: unknown kind %q", i, s.Kind)
		}
		out[i] = models.Split{UserID: s.UserID, Amount: s.Amount, Kind: kind}
	}
	return out, nil
}

func toAPISplits(in []models.Split) []api.Split {
	out := make([]api.Split, len(in))
	for i, s := range in {
		out[i] = api.Split{UserID: s.UserID, Amount: s.Amount, Kind: string(s.Kind)}
	}
	return out
}

func toAPIExpense(e *models.Expense) *api.Expense {
	out := &api.Expense{
		ID:             e.ID,
		GroupID:        e.GroupID,
		CreatedBy:      e.CreatedBy,
		Description:    e.Description,
		Amount:         e.Amount,
		SplitKind:      string(e.Kind),
		Splits:         toAPISplits(e.Splits),
		Tags:           nonNil(e.Tags),
		AttachmentRefs: nonNil(e.AttachmentRefs),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		VoidedAt:       e.VoidedAt,
	}
	for _, c := range e.Comments {
		out.Comments = append(out.Comments, toAPIComment(c))
	}
	for _, h := range e.History {
		out.History = append(out.History, api.EditHistoryEntry{
			ID:     h.ID,
			UserID: h.UserID,
			Before: api.ExpenseSnapshot{
				Description: h.Before.Description,
				Amount:      h.Before.Amount,
				Splits:      toAPISplits(h.Before.Splits),
			},
			EditedAt: h.EditedAt,
		})
	}
	return out
}

func toAPIComment(c models.Comment) api.Comment {
	return api.Comment{ID: c.ID, UserID: c.UserID, Content: c.Content, CreatedAt: c.CreatedAt}
}

func toAPIEntry(e models.SettlementEntry) *api.SettlementEntry {
	return &api.SettlementEntry{
		ID:          e.ID,
		ExpenseID:   e.ExpenseID,
		GroupID:     e.GroupID,
		PayerID:     e.PayerID,
		PayeeID:     e.PayeeID,
		Amount:      e.Amount,
		Status:      string(e.Status),
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		PaidAt:      e.PaidAt,
	}
}

func toAPIEntries(entries []models.SettlementEntry) []*api.SettlementEntry {
	out := make([]*api.SettlementEntry, len(entries))
	for i, e := range entries {
		out[i] = toAPIEntry(e)
	}
	return out
}

func toAPIPlan(plan []models.OptimizedSettlement) []api.OptimizedSettlement {
	out := make([]api.OptimizedSettlement, len(plan))
	for i, p := range plan {
		out[i] = api.OptimizedSettlement{
			FromUserID:          p.FromUserID,
			ToUserID:            p.ToUserID,
			FromUserName:        p.FromUserName,
			ToUserName:          p.ToUserName,
			Amount:              p.Amount,
			ConsolidatedEntries: nonNil(p.ConsolidatedEntries),
		}
	}
	return out
}

func toAPISavings(s ledger.Savings) api.Savings {
	return api.Savings{
		OriginalTransactions:  s.OriginalTransactions,
		OptimizedTransactions: s.OptimizedTransactions,
		ReductionPercentage:   s.ReductionPercentage,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
