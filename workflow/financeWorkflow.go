package workflow

import (
	"context"
	"errors"
	"sort"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
)

type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
)

// maxDailyRangeDays is the widest range still summarized per day; anything
// wider rolls up per month.
const maxDailyRangeDays = 35

type PeriodSummary struct {
	// Key is the group label: YYYY-MM-DD for daily, YYYY-MM for monthly.
	Key     string          `json:"key"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Profit  decimal.Decimal `json:"profit"`
}

type CategorySummary struct {
	Category models.LedgerCategory `json:"category"`
	Amount   decimal.Decimal       `json:"amount"`
	Count    int                   `json:"count"`
}

type ChannelSummary struct {
	Channel string          `json:"channel"`
	Amount  decimal.Decimal `json:"amount"`
	Count   int             `json:"count"`
}

type FinanceSummary struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	// NetMargin is net profit as a percentage of income, zero when there is
	// no income.
	NetMargin decimal.Decimal `json:"net_margin"`

	Granularity Granularity     `json:"granularity"`
	Periods     []PeriodSummary `json:"periods"`

	ExpenseByCategory []CategorySummary `json:"expense_by_category"`
	IncomeByChannel   []ChannelSummary  `json:"income_by_channel"`

	Advisory     models.AdvisoryTier `json:"advisory"`
	AdvisoryText string              `json:"advisory_text"`
	EntryCount   int                 `json:"entry_count"`
}

// Aggregate folds a ledger slice into the report for [startDate, endDate],
// both inclusive. Dates compare lexicographically, which matches calendar
// order for the YYYY-MM-DD form.
func Aggregate(entries []models.LedgerItem, startDate, endDate string) (*FinanceSummary, error) {
	if _, err := utils.ParseBusinessDate(startDate); err != nil {
		return nil, errors.New("start date must be YYYY-MM-DD")
	}
	if _, err := utils.ParseBusinessDate(endDate); err != nil {
		return nil, errors.New("end date must be YYYY-MM-DD")
	}
	if startDate > endDate {
		return nil, errors.New("start date must not be after end date")
	}

	summary := &FinanceSummary{
		StartDate:   startDate,
		EndDate:     endDate,
		Granularity: GranularityDay,
	}
	if utils.DaysInclusive(startDate, endDate) > maxDailyRangeDays {
		summary.Granularity = GranularityMonth
	}

	periods := map[string]*PeriodSummary{}
	expenseByCategory := map[models.LedgerCategory]*CategorySummary{}
	incomeByChannel := map[string]*ChannelSummary{}

	for i := range entries {
		entry := &entries[i]
		if entry.Date < startDate || entry.Date > endDate {
			continue
		}
		summary.EntryCount++

		key := entry.Date
		if summary.Granularity == GranularityMonth && len(key) >= 7 {
			key = key[:7]
		}
		period, ok := periods[key]
		if !ok {
			period = &PeriodSummary{Key: key}
			periods[key] = period
		}

		switch entry.Type {
		case models.LedgerTypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(entry.Amount)
			period.Income = period.Income.Add(entry.Amount)

			channel := entry.Channel
			if channel == "" {
				channel = "walk-in"
			}
			bucket, ok := incomeByChannel[channel]
			if !ok {
				bucket = &ChannelSummary{Channel: channel}
				incomeByChannel[channel] = bucket
			}
			bucket.Amount = bucket.Amount.Add(entry.Amount)
			bucket.Count++
		case models.LedgerTypeExpense:
			summary.TotalExpense = summary.TotalExpense.Add(entry.Amount)
			period.Expense = period.Expense.Add(entry.Amount)

			bucket, ok := expenseByCategory[entry.Category]
			if !ok {
				bucket = &CategorySummary{Category: entry.Category}
				expenseByCategory[entry.Category] = bucket
			}
			bucket.Amount = bucket.Amount.Add(entry.Amount)
			bucket.Count++
		}
	}

	summary.NetProfit = summary.TotalIncome.Sub(summary.TotalExpense)
	// The tier check needs the exact quotient: a 9.996% margin must stay
	// below the 10% boundary even though it reports as 10.00.
	margin := decimal.Zero
	if summary.TotalIncome.IsPositive() {
		margin = summary.NetProfit.Div(summary.TotalIncome).Mul(decimal.NewFromInt(100))
		summary.NetMargin = margin.Round(2)
	}

	summary.Periods = make([]PeriodSummary, 0, len(periods))
	for _, p := range periods {
		p.Profit = p.Income.Sub(p.Expense)
		summary.Periods = append(summary.Periods, *p)
	}
	sort.Slice(summary.Periods, func(i, j int) bool {
		return summary.Periods[i].Key > summary.Periods[j].Key
	})

	summary.ExpenseByCategory = sortedCategorySummaries(expenseByCategory)
	summary.IncomeByChannel = make([]ChannelSummary, 0, len(incomeByChannel))
	for _, b := range incomeByChannel {
		summary.IncomeByChannel = append(summary.IncomeByChannel, *b)
	}
	sort.Slice(summary.IncomeByChannel, func(i, j int) bool {
		return summary.IncomeByChannel[i].Amount.GreaterThan(summary.IncomeByChannel[j].Amount)
	})

	summary.Advisory = adviseOn(summary.TotalIncome, summary.NetProfit, margin)
	summary.AdvisoryText = summary.Advisory.String()
	return summary, nil
}

func sortedCategorySummaries(m map[models.LedgerCategory]*CategorySummary) []CategorySummary {
	out := make([]CategorySummary, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// adviseOn picks the first matching tier, checked from worst to best.
func adviseOn(income, profit, margin decimal.Decimal) models.AdvisoryTier {
	switch {
	case income.IsZero():
		return models.AdvisoryTierNoSales
	case profit.IsNegative():
		return models.AdvisoryTierLoss
	case margin.LessThan(decimal.NewFromInt(10)):
		return models.AdvisoryTierThinMargin
	case margin.LessThan(decimal.NewFromInt(25)):
		return models.AdvisoryTierHealthy
	default:
		return models.AdvisoryTierExcellent
	}
}

// AggregateRange is the DB-backed wrapper around Aggregate.
func AggregateRange(ctx context.Context, startDate, endDate string) (*FinanceSummary, error) {
	entries, err := models.GetLedgerEntries(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}
	return Aggregate(entries, startDate, endDate)
}
