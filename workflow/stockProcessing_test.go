package workflow

import (
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"github.com/shopspring/decimal"
)

// These tests are intentionally DB-free: ApplyDeductions is a pure transform
// over an in-memory snapshot, so the costing and resolution rules are
// verified without any infrastructure.

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func stockItem(id, name, qty, cost string) *models.InventoryItem {
	return &models.InventoryItem{
		ID:          id,
		AccountId:   "acct-1",
		Name:        name,
		Quantity:    d(qty),
		CostPerUnit: d(cost),
		Type:        models.InventoryTypeStock,
	}
}

func applyNow(t *testing.T, snapshot models.InventorySnapshot, menu []models.MenuItem, deductions []models.StockDeduction, intent models.LedgerType) (models.InventorySnapshot, StockApplyResult) {
	t.Helper()
	next, result, err := ApplyDeductions(snapshot, menu, deductions, intent, "acct-1", time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ApplyDeductions: %v", err)
	}
	return next, result
}

func TestStockInRecomputesWeightedAverage(t *testing.T) {
	item := stockItem("flour", "Flour", "10", "100")
	StockIn(item, d("10"), d("120"))

	if !item.Quantity.Equal(d("20")) {
		t.Fatalf("quantity = %s, want 20", item.Quantity)
	}
	if !item.CostPerUnit.Equal(d("110")) {
		t.Fatalf("cost = %s, want 110", item.CostPerUnit)
	}
}

func TestStockInFromEmptyAdoptsIncomingCost(t *testing.T) {
	item := stockItem("oil", "Oil", "0", "0")
	StockIn(item, d("5"), d("42.5"))

	if !item.CostPerUnit.Equal(d("42.5")) {
		t.Fatalf("cost = %s, want 42.5", item.CostPerUnit)
	}
}

func TestStockInZeroResultingQuantityZeroesCost(t *testing.T) {
	item := stockItem("sugar", "Sugar", "3", "80")
	StockIn(item, d("-3"), d("0"))

	if !item.Quantity.IsZero() {
		t.Fatalf("quantity = %s, want 0", item.Quantity)
	}
	if !item.CostPerUnit.IsZero() {
		t.Fatalf("cost = %s, want 0", item.CostPerUnit)
	}
}

func TestStockOutClampsAtZeroAndKeepsCost(t *testing.T) {
	item := stockItem("milk", "Milk", "2", "150")
	StockOut(item, d("5"))

	if !item.Quantity.IsZero() {
		t.Fatalf("quantity = %s, want 0 (clamped)", item.Quantity)
	}
	if !item.CostPerUnit.Equal(d("150")) {
		t.Fatalf("cost = %s, want 150 (untouched by stock-out)", item.CostPerUnit)
	}
}

func TestApplyDeductionsExpandsMenuRecipe(t *testing.T) {
	snapshot := models.InventorySnapshot{
		"flour": stockItem("flour", "Flour", "100", "10"),
		"oil":   stockItem("oil", "Cooking Oil", "50", "20"),
	}
	menu := []models.MenuItem{{
		ID:   "pancake",
		Name: "Pancake",
		Ingredients: []models.MenuIngredient{
			{InventoryItemId: "flour", Name: "Flour", QuantityPerUnit: d("0.2")},
			// no master id: resolves by case-insensitive name
			{Name: "cooking oil", QuantityPerUnit: d("0.05")},
		},
	}}
	deductions := []models.StockDeduction{{
		TargetType: models.DeductionTargetMenu,
		RefId:      "pancake",
		Quantity:   d("3"),
	}}

	next, result := applyNow(t, snapshot, menu, deductions, models.LedgerTypeIncome)

	if result.Applied != 1 || result.Partial() {
		t.Fatalf("result = %+v, want fully applied", result)
	}
	if !next["flour"].Quantity.Equal(d("99.4")) {
		t.Fatalf("flour = %s, want 99.4", next["flour"].Quantity)
	}
	if !next["oil"].Quantity.Equal(d("49.85")) {
		t.Fatalf("oil = %s, want 49.85", next["oil"].Quantity)
	}
}

func TestApplyDeductionsMissingMenuIsSkippedNotFatal(t *testing.T) {
	snapshot := models.InventorySnapshot{"flour": stockItem("flour", "Flour", "10", "10")}
	deductions := []models.StockDeduction{{
		TargetType: models.DeductionTargetMenu,
		RefId:      "deleted-menu-item",
		Quantity:   d("1"),
	}}

	next, result := applyNow(t, snapshot, nil, deductions, models.LedgerTypeIncome)

	if !result.Partial() {
		t.Fatalf("result = %+v, want partial", result)
	}
	if len(result.SkippedRefs) != 1 || result.SkippedRefs[0] != "deleted-menu-item" {
		t.Fatalf("skipped = %v", result.SkippedRefs)
	}
	if !next["flour"].Quantity.Equal(d("10")) {
		t.Fatalf("flour mutated on a skipped line: %s", next["flour"].Quantity)
	}
}

func TestApplyDeductionsUnresolvableIngredientReportsPartial(t *testing.T) {
	snapshot := models.InventorySnapshot{"flour": stockItem("flour", "Flour", "10", "10")}
	menu := []models.MenuItem{{
		ID: "tea",
		Ingredients: []models.MenuIngredient{
			{InventoryItemId: "flour", QuantityPerUnit: d("1")},
			{Name: "Condensed Milk", QuantityPerUnit: d("0.1")},
		},
	}}
	deductions := []models.StockDeduction{{
		TargetType: models.DeductionTargetMenu,
		RefId:      "tea",
		Quantity:   d("2"),
	}}

	next, result := applyNow(t, snapshot, menu, deductions, models.LedgerTypeIncome)

	// The ingredient that resolves is still deducted.
	if !next["flour"].Quantity.Equal(d("8")) {
		t.Fatalf("flour = %s, want 8", next["flour"].Quantity)
	}
	if result.Applied != 0 || !result.Partial() {
		t.Fatalf("applied = %d, partial = %v, want a partial outcome", result.Applied, result.Partial())
	}
	if len(result.SkippedRefs) != 1 || result.SkippedRefs[0] != "tea/Condensed Milk" {
		t.Fatalf("skipped = %v, want [tea/Condensed Milk]", result.SkippedRefs)
	}
}

func TestApplyDeductionsAllIngredientsGoneIsObservable(t *testing.T) {
	menu := []models.MenuItem{{
		ID: "tea",
		Ingredients: []models.MenuIngredient{
			{InventoryItemId: "gone", QuantityPerUnit: d("0.1")},
		},
	}}
	deductions := []models.StockDeduction{{
		TargetType: models.DeductionTargetMenu,
		RefId:      "tea",
		Quantity:   d("2"),
	}}

	_, result := applyNow(t, models.InventorySnapshot{}, menu, deductions, models.LedgerTypeIncome)

	if result.Applied != 0 || !result.Partial() {
		t.Fatalf("applied = %d, partial = %v, want unapplied partial outcome", result.Applied, result.Partial())
	}
	if len(result.SkippedRefs) != 1 || result.SkippedRefs[0] != "tea/gone" {
		t.Fatalf("skipped = %v, want [tea/gone]", result.SkippedRefs)
	}
}

func TestApplyDeductionsDirectionFallback(t *testing.T) {
	snapshot := models.InventorySnapshot{"rice": stockItem("rice", "Rice", "10", "50")}

	// Expense with no explicit direction implies stock-in.
	next, _ := applyNow(t, snapshot, nil, []models.StockDeduction{{
		TargetType: models.DeductionTargetInventory,
		RefId:      "rice",
		Quantity:   d("10"),
		UnitCost:   d("70"),
	}}, models.LedgerTypeExpense)
	if !next["rice"].Quantity.Equal(d("20")) {
		t.Fatalf("quantity = %s, want 20 (expense infers stock-in)", next["rice"].Quantity)
	}
	if !next["rice"].CostPerUnit.Equal(d("60")) {
		t.Fatalf("cost = %s, want 60", next["rice"].CostPerUnit)
	}

	// An explicit direction wins over the inference.
	next, _ = applyNow(t, snapshot, nil, []models.StockDeduction{{
		TargetType: models.DeductionTargetInventory,
		RefId:      "rice",
		Quantity:   d("4"),
		Direction:  models.StockDirectionOut,
	}}, models.LedgerTypeExpense)
	if !next["rice"].Quantity.Equal(d("6")) {
		t.Fatalf("quantity = %s, want 6 (explicit out wins)", next["rice"].Quantity)
	}
}

func TestApplyDeductionsCreatesStockItemWithDefaults(t *testing.T) {
	deductions := []models.StockDeduction{{
		TargetType: models.DeductionTargetInventory,
		RefId:      models.NewItemRefId,
		Quantity:   d("12"),
		UnitCost:   d("25"),
		NewItem:    &models.NewItemSpec{Name: "Napkins", Unit: "pack"},
	}}

	next, result := applyNow(t, models.InventorySnapshot{}, nil, deductions, models.LedgerTypeExpense)

	if len(result.CreatedItemIds) != 1 {
		t.Fatalf("created = %v, want 1 item", result.CreatedItemIds)
	}
	created := next[result.CreatedItemIds[0]]
	if created.Type != models.InventoryTypeStock {
		t.Fatalf("type = %s, want stock", created.Type)
	}
	if !created.MinLevel.Equal(d("5")) {
		t.Fatalf("min level = %s, want default 5", created.MinLevel)
	}
	if !created.Quantity.Equal(d("12")) || !created.CostPerUnit.Equal(d("25")) {
		t.Fatalf("created item = %+v", created)
	}
}

func TestApplyDeductionsCreatesAssetWithLifespanDefaults(t *testing.T) {
	deductions := []models.StockDeduction{{
		TargetType: models.DeductionTargetInventory,
		RefId:      models.NewItemRefId,
		Quantity:   d("1"),
		NewItem: &models.NewItemSpec{
			Name:     "Blender",
			UnitCost: d("90000"),
			Category: "Equipment",
		},
	}}

	next, result := applyNow(t, models.InventorySnapshot{}, nil, deductions, models.LedgerTypeExpense)

	created := next[result.CreatedItemIds[0]]
	if created.Type != models.InventoryTypeAsset {
		t.Fatalf("type = %s, want asset", created.Type)
	}
	if created.LifespanDays != 365 {
		t.Fatalf("lifespan = %d, want default 365", created.LifespanDays)
	}
	if created.PurchaseDate != "2026-09-01" {
		t.Fatalf("purchase date = %q", created.PurchaseDate)
	}
	if !created.CostPerUnit.Equal(d("90000")) {
		t.Fatalf("cost = %s, want spec unit cost", created.CostPerUnit)
	}
}

func TestApplyDeductionsValidatesBatchBeforeMutating(t *testing.T) {
	snapshot := models.InventorySnapshot{"rice": stockItem("rice", "Rice", "10", "50")}
	deductions := []models.StockDeduction{
		{TargetType: models.DeductionTargetInventory, RefId: "rice", Quantity: d("5"), Direction: models.StockDirectionOut},
		{TargetType: models.DeductionTargetInventory, RefId: "rice", Quantity: d("0")},
	}

	_, _, err := ApplyDeductions(snapshot, nil, deductions, models.LedgerTypeIncome, "acct-1", time.Now())
	if err == nil {
		t.Fatal("want validation error for zero quantity")
	}
	if !snapshot["rice"].Quantity.Equal(d("10")) {
		t.Fatalf("snapshot mutated despite validation failure: %s", snapshot["rice"].Quantity)
	}
}

func TestApplyDeductionsDoesNotMutateInputSnapshot(t *testing.T) {
	snapshot := models.InventorySnapshot{"rice": stockItem("rice", "Rice", "10", "50")}
	next, _ := applyNow(t, snapshot, nil, []models.StockDeduction{{
		TargetType: models.DeductionTargetInventory,
		RefId:      "rice",
		Quantity:   d("4"),
		Direction:  models.StockDirectionOut,
	}}, models.LedgerTypeIncome)

	if !snapshot["rice"].Quantity.Equal(d("10")) {
		t.Fatalf("input snapshot mutated: %s", snapshot["rice"].Quantity)
	}
	if !next["rice"].Quantity.Equal(d("6")) {
		t.Fatalf("next = %s, want 6", next["rice"].Quantity)
	}
}

func TestWeightedAverageIsOrderIndependentForSameBatches(t *testing.T) {
	a := stockItem("x", "X", "0", "0")
	StockIn(a, d("10"), d("100"))
	StockIn(a, d("10"), d("120"))

	b := stockItem("x", "X", "0", "0")
	StockIn(b, d("10"), d("120"))
	StockIn(b, d("10"), d("100"))

	if !a.CostPerUnit.Equal(b.CostPerUnit) {
		t.Fatalf("cost differs by order: %s vs %s", a.CostPerUnit, b.CostPerUnit)
	}
	if !a.CostPerUnit.Equal(d("110")) {
		t.Fatalf("cost = %s, want 110", a.CostPerUnit)
	}
}
