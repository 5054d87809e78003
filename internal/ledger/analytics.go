package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/settleup/internal/models"
)

const (
	maxTopCategories = 10
	untaggedCategory = "uncategorized"
)

// Period is a half-open [Start, End) reporting window.
type Period struct {
	Label string
	Start time.Time
	End   time.Time
}

// ResolvePeriod builds a monthly or yearly window in UTC. Anything that does
// not name a complete period falls back to the month containing now.
func ResolvePeriod(kind string, year, month int, now time.Time) (Period, error) {
	switch {
	case kind == "month" && year > 0 && month > 0:
		if month > 12 {
			return Period{}, fmt.Errorf("invalid month: %d", month)
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return Period{Label: fmt.Sprintf("%d-%02d", year, month), Start: start, End: start.AddDate(0, 1, 0)}, nil
	case kind == "year" && year > 0:
		start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		return Period{Label: fmt.Sprintf("%d", year), Start: start, End: start.AddDate(1, 0, 0)}, nil
	}
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Label: fmt.Sprintf("%d-%02d", now.Year(), int(now.Month())), Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// CategoryStat aggregates expenses sharing a tag.
type CategoryStat struct {
	Tag        string
	Amount     float64
	Count      int
	Percentage float64
}

// MemberContribution compares what a member paid with their share.
type MemberContribution struct {
	UserID          string
	TotalPaid       float64
	TotalShare      float64
	NetContribution float64
}

// DayTotal is one point of the daily spending trend.
type DayTotal struct {
	Date   string
	Amount float64
	Count  int
}

// Analytics is the spending report for a group over a period.
type Analytics struct {
	Period        string
	TotalExpenses float64
	ExpenseCount  int
	AverageAmount float64
	TopCategories []CategoryStat
	Contributions []MemberContribution
	Trend         []DayTotal
}

// GroupAnalytics reports spending for the non-voided expenses created within p.
func GroupAnalytics(expenses []models.Expense, members []string, p Period) Analytics {
	var inPeriod []models.Expense
	for _, e := range expenses {
		if e.Voided() {
			continue
		}
		created := time.Unix(e.CreatedAt, 0).UTC()
		if created.Before(p.Start) || !created.Before(p.End) {
			continue
		}
		inPeriod = append(inPeriod, e)
	}

	total := decimal.Zero
	type tagAcc struct {
		amount decimal.Decimal
		count  int
	}
	tags := make(map[string]*tagAcc)
	paid := make(map[string]decimal.Decimal)
	share := make(map[string]decimal.Decimal)
	days := make(map[string]*tagAcc)

	for _, e := range inPeriod {
		amount := decimal.NewFromFloat(e.Amount)
		total = total.Add(amount)

		expenseTags := e.Tags
		if len(expenseTags) == 0 {
			expenseTags = []string{untaggedCategory}
		}
		for _, t := range expenseTags {
			acc, ok := tags[t]
			if !ok {
				acc = &tagAcc{}
				tags[t] = acc
			}
			acc.amount = acc.amount.Add(amount)
			acc.count++
		}

		paid[e.CreatedBy] = paid[e.CreatedBy].Add(amount)
		for _, s := range e.Splits {
			share[s.UserID] = share[s.UserID].Add(decimal.NewFromFloat(s.Amount))
		}

		day := time.Unix(e.CreatedAt, 0).UTC().Format("2006-01-02")
		d, ok := days[day]
		if !ok {
			d = &tagAcc{}
			days[day] = d
		}
		d.amount = d.amount.Add(amount)
		d.count++
	}

	a := Analytics{
		Period:        p.Label,
		TotalExpenses: total.Round(2).InexactFloat64(),
		ExpenseCount:  len(inPeriod),
	}
	if len(inPeriod) > 0 {
		a.AverageAmount = total.Div(decimal.NewFromInt(int64(len(inPeriod)))).Round(2).InexactFloat64()
	}

	for tag, acc := range tags {
		stat := CategoryStat{Tag: tag, Amount: acc.amount.Round(2).InexactFloat64(), Count: acc.count}
		if total.IsPositive() {
			stat.Percentage = acc.amount.Mul(hundred).Div(total).Round(1).InexactFloat64()
		}
		a.TopCategories = append(a.TopCategories, stat)
	}
	sort.Slice(a.TopCategories, func(i, j int) bool {
		if a.TopCategories[i].Amount != a.TopCategories[j].Amount {
			return a.TopCategories[i].Amount > a.TopCategories[j].Amount
		}
		return a.TopCategories[i].Tag < a.TopCategories[j].Tag
	})
	if len(a.TopCategories) > maxTopCategories {
		a.TopCategories = a.TopCategories[:maxTopCategories]
	}

	for _, m := range members {
		a.Contributions = append(a.Contributions, MemberContribution{
			UserID:          m,
			TotalPaid:       paid[m].Round(2).InexactFloat64(),
			TotalShare:      share[m].Round(2).InexactFloat64(),
			NetContribution: paid[m].Sub(share[m]).Round(2).InexactFloat64(),
		})
	}

	for day := p.Start; day.Before(p.End); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		point := DayTotal{Date: key}
		if d, ok := days[key]; ok {
			point.Amount = d.amount.Round(2).InexactFloat64()
			point.Count = d.count
		}
		a.Trend = append(a.Trend, point)
	}
	return a
}
