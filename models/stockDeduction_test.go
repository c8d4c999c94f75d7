package models

import "testing"

func TestDeductionValidate(t *testing.T) {
	valid := StockDeduction{TargetType: DeductionTargetInventory, RefId: "x", Quantity: dec("1")}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid deduction rejected: %v", err)
	}

	bad := valid
	bad.TargetType = "warehouse"
	if err := bad.Validate(); err == nil {
		t.Fatal("unknown target type accepted")
	}

	bad = valid
	bad.RefId = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("empty ref accepted")
	}

	bad = valid
	bad.Quantity = dec("-1")
	if err := bad.Validate(); err == nil {
		t.Fatal("negative quantity accepted")
	}

	newItem := StockDeduction{TargetType: DeductionTargetInventory, RefId: NewItemRefId, Quantity: dec("1")}
	if err := newItem.Validate(); err == nil {
		t.Fatal("new-item sentinel without a spec accepted")
	}
	newItem.NewItem = &NewItemSpec{Name: "Ice bags"}
	if err := newItem.Validate(); err != nil {
		t.Fatalf("new-item deduction rejected: %v", err)
	}

	menuNew := StockDeduction{TargetType: DeductionTargetMenu, RefId: NewItemRefId, Quantity: dec("1"), NewItem: &NewItemSpec{Name: "x"}}
	if err := menuNew.Validate(); err == nil {
		t.Fatal("new-item sentinel on a menu target accepted")
	}
}

func TestEffectiveDirectionInference(t *testing.T) {
	noDirection := StockDeduction{}
	if noDirection.EffectiveDirection(LedgerTypeExpense) != StockDirectionIn {
		t.Fatal("expense should infer stock-in")
	}
	if noDirection.EffectiveDirection(LedgerTypeIncome) != StockDirectionOut {
		t.Fatal("income should infer stock-out")
	}

	explicit := StockDeduction{Direction: StockDirectionOut}
	if explicit.EffectiveDirection(LedgerTypeExpense) != StockDirectionOut {
		t.Fatal("explicit direction must win over the inference")
	}
}

func TestMenuDeductionsSkipCustomLines(t *testing.T) {
	cart := []OrderItem{
		{MenuItemId: "tea", Name: "Tea", Quantity: 3},
		// A free-form line with no menu link produces no deduction.
		{Name: "Charity jar", Quantity: 1},
	}
	deductions := MenuDeductions(cart)

	if len(deductions) != 1 {
		t.Fatalf("deductions = %d, want 1", len(deductions))
	}
	got := deductions[0]
	if got.TargetType != DeductionTargetMenu || got.RefId != "tea" {
		t.Fatalf("deduction = %+v", got)
	}
	if !got.Quantity.Equal(dec("3")) || got.Direction != StockDirectionOut {
		t.Fatalf("deduction = %+v", got)
	}
}

func TestSnapshotResolvePrefersMasterId(t *testing.T) {
	snapshot := InventorySnapshot{
		"a": {ID: "a", Name: "Sugar"},
		"b": {ID: "b", Name: "Brown Sugar"},
	}
	if snapshot.Resolve("b", "Sugar").ID != "b" {
		t.Fatal("master id must win over name")
	}
	if snapshot.Resolve("", "bRoWn sUgAr").ID != "b" {
		t.Fatal("name fallback must be case-insensitive")
	}
	if snapshot.Resolve("missing", "") != nil {
		t.Fatal("miss should return nil")
	}
}
