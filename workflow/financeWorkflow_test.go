package workflow

import (
	"testing"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/shopspring/decimal"
)

func entry(date string, typ models.LedgerType, category models.LedgerCategory, amount string) models.LedgerItem {
	return models.LedgerItem{
		Date:     date,
		Type:     typ,
		Category: category,
		Title:    "t",
		Amount:   d(amount),
	}
}

func TestAggregateFiltersRangeInclusive(t *testing.T) {
	ledger := []models.LedgerItem{
		entry("2026-07-31", models.LedgerTypeIncome, models.LedgerCategorySales, "999"),
		entry("2026-08-01", models.LedgerTypeIncome, models.LedgerCategorySales, "100"),
		entry("2026-08-10", models.LedgerTypeExpense, models.LedgerCategoryRawMaterial, "40"),
		entry("2026-08-15", models.LedgerTypeIncome, models.LedgerCategorySales, "50"),
		entry("2026-08-16", models.LedgerTypeExpense, models.LedgerCategoryRent, "888"),
	}

	summary, err := Aggregate(ledger, "2026-08-01", "2026-08-15")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.EntryCount != 3 {
		t.Fatalf("entry count = %d, want 3 (bounds inclusive, outside excluded)", summary.EntryCount)
	}
	if !summary.TotalIncome.Equal(d("150")) || !summary.TotalExpense.Equal(d("40")) {
		t.Fatalf("income=%s expense=%s", summary.TotalIncome, summary.TotalExpense)
	}
	if !summary.NetProfit.Equal(d("110")) {
		t.Fatalf("profit = %s, want 110", summary.NetProfit)
	}
}

func TestAggregateGranularityBoundary(t *testing.T) {
	// 35 days inclusive stays daily; one more day rolls up to months.
	summary, err := Aggregate(nil, "2026-08-01", "2026-09-04")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.Granularity != GranularityDay {
		t.Fatalf("35-day range granularity = %s, want day", summary.Granularity)
	}

	summary, err = Aggregate(nil, "2026-08-01", "2026-09-05")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if summary.Granularity != GranularityMonth {
		t.Fatalf("36-day range granularity = %s, want month", summary.Granularity)
	}
}

func TestAggregateMonthlyGroupKeys(t *testing.T) {
	ledger := []models.LedgerItem{
		entry("2026-07-05", models.LedgerTypeIncome, models.LedgerCategorySales, "10"),
		entry("2026-07-20", models.LedgerTypeIncome, models.LedgerCategorySales, "20"),
		entry("2026-08-02", models.LedgerTypeExpense, models.LedgerCategoryRent, "5"),
	}
	summary, err := Aggregate(ledger, "2026-07-01", "2026-08-31")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(summary.Periods) != 2 {
		t.Fatalf("periods = %d, want 2", len(summary.Periods))
	}
	// Sorted newest first.
	if summary.Periods[0].Key != "2026-08" || summary.Periods[1].Key != "2026-07" {
		t.Fatalf("period keys = %s, %s", summary.Periods[0].Key, summary.Periods[1].Key)
	}
	if !summary.Periods[1].Income.Equal(d("30")) {
		t.Fatalf("july income = %s, want 30", summary.Periods[1].Income)
	}
	if !summary.Periods[0].Profit.Equal(d("-5")) {
		t.Fatalf("august profit = %s, want -5", summary.Periods[0].Profit)
	}
}

func TestAggregateAdvisoryTiers(t *testing.T) {
	cases := []struct {
		name    string
		income  string
		expense string
		want    models.AdvisoryTier
	}{
		{"no sales", "0", "500", models.AdvisoryTierNoSales},
		{"loss", "1000", "1200", models.AdvisoryTierLoss},
		{"thin margin", "1000", "950", models.AdvisoryTierThinMargin},
		{"healthy", "1000", "800", models.AdvisoryTierHealthy},
		{"excellent", "1000", "600", models.AdvisoryTierExcellent},
		// 9.996% reports as 10.00 but is still below the boundary.
		{"thin margin under rounded boundary", "100000", "90004", models.AdvisoryTierThinMargin},
		{"healthy at exact boundary", "1000", "900", models.AdvisoryTierHealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ledger []models.LedgerItem
			if tc.income != "0" {
				ledger = append(ledger, entry("2026-08-01", models.LedgerTypeIncome, models.LedgerCategorySales, tc.income))
			}
			if tc.expense != "0" {
				ledger = append(ledger, entry("2026-08-01", models.LedgerTypeExpense, models.LedgerCategoryOther, tc.expense))
			}
			summary, err := Aggregate(ledger, "2026-08-01", "2026-08-01")
			if err != nil {
				t.Fatalf("Aggregate: %v", err)
			}
			if summary.Advisory != tc.want {
				t.Fatalf("advisory = %s, want %s (margin %s)", summary.Advisory, tc.want, summary.NetMargin)
			}
		})
	}
}

func TestAggregateExpenseCategoriesSortedByAmount(t *testing.T) {
	ledger := []models.LedgerItem{
		entry("2026-08-01", models.LedgerTypeExpense, models.LedgerCategoryRent, "300"),
		entry("2026-08-01", models.LedgerTypeExpense, models.LedgerCategoryRawMaterial, "100"),
		entry("2026-08-02", models.LedgerTypeExpense, models.LedgerCategoryRawMaterial, "450"),
	}
	summary, err := Aggregate(ledger, "2026-08-01", "2026-08-02")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if len(summary.ExpenseByCategory) != 2 {
		t.Fatalf("categories = %d, want 2", len(summary.ExpenseByCategory))
	}
	first := summary.ExpenseByCategory[0]
	if first.Category != models.LedgerCategoryRawMaterial || !first.Amount.Equal(d("550")) || first.Count != 2 {
		t.Fatalf("top category = %+v", first)
	}
}

func TestAggregateNetMarginGuardedAgainstZeroIncome(t *testing.T) {
	summary, err := Aggregate([]models.LedgerItem{
		entry("2026-08-01", models.LedgerTypeExpense, models.LedgerCategoryRent, "100"),
	}, "2026-08-01", "2026-08-01")
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if !summary.NetMargin.Equal(decimal.Zero) {
		t.Fatalf("margin = %s, want 0 when income is 0", summary.NetMargin)
	}
}

func TestAggregateRejectsInvalidRange(t *testing.T) {
	if _, err := Aggregate(nil, "2026-08-10", "2026-08-01"); err == nil {
		t.Fatal("want error when start is after end")
	}
	if _, err := Aggregate(nil, "bad", "2026-08-01"); err == nil {
		t.Fatal("want error for malformed start date")
	}
}
