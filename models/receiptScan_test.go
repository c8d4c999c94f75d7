package models

import "testing"

func TestFoldEquipmentGuessesProducesAssetAndExpensePairs(t *testing.T) {
	guesses := []EquipmentGuess{
		{Name: "Freezer", Price: dec("150000")},
		{Name: "Rice cooker", Price: dec("45000")},
	}

	deductions, entries, err := FoldEquipmentGuesses(guesses, "2026-09-01", "https://img/receipt.jpg")
	if err != nil {
		t.Fatalf("FoldEquipmentGuesses: %v", err)
	}
	if len(deductions) != 2 || len(entries) != 2 {
		t.Fatalf("deductions=%d entries=%d, want 2/2", len(deductions), len(entries))
	}

	first := deductions[0]
	if first.RefId != NewItemRefId || first.Direction != StockDirectionIn {
		t.Fatalf("deduction = %+v", first)
	}
	if first.NewItem.Category != string(LedgerCategoryEquipment) {
		t.Fatalf("category = %q, want equipment so the stock engine creates an asset", first.NewItem.Category)
	}
	if !first.Quantity.Equal(dec("1")) {
		t.Fatalf("quantity = %s, want 1", first.Quantity)
	}

	if entries[0].Category != LedgerCategoryEquipment || entries[0].Type != LedgerTypeExpense {
		t.Fatalf("entry = %+v", entries[0])
	}
	if !entries[0].Amount.Equal(dec("150000")) {
		t.Fatalf("amount = %s", entries[0].Amount)
	}
	if entries[0].ReceiptImageUrl != "https://img/receipt.jpg" {
		t.Fatalf("image url = %q", entries[0].ReceiptImageUrl)
	}
}

func TestFoldEquipmentGuessesRejectsBadLines(t *testing.T) {
	if _, _, err := FoldEquipmentGuesses(nil, "2026-09-01", ""); err == nil {
		t.Fatal("want error for empty guess list")
	}
	if _, _, err := FoldEquipmentGuesses([]EquipmentGuess{{Name: "", Price: dec("5")}}, "2026-09-01", ""); err == nil {
		t.Fatal("want error for unnamed line")
	}
	if _, _, err := FoldEquipmentGuesses([]EquipmentGuess{{Name: "Pot", Price: dec("0")}}, "2026-09-01", ""); err == nil {
		t.Fatal("want error for zero price")
	}
}

func TestFoldStockGuessesResolvesExistingByName(t *testing.T) {
	snapshot := InventorySnapshot{
		"flour-id": {ID: "flour-id", Name: "Flour", Type: InventoryTypeStock},
	}
	guesses := []StockGuess{
		// Existing item, matched case-insensitively.
		{Name: "fLoUr", Quantity: dec("10"), Unit: "kg", TotalPrice: dec("12000")},
		// Unknown: a fresh item spec.
		{Name: "Palm sugar", Quantity: dec("4"), Unit: "kg", TotalPrice: dec("6000")},
	}

	deductions, summary, err := FoldStockGuesses(snapshot, guesses, "2026-09-01", "")
	if err != nil {
		t.Fatalf("FoldStockGuesses: %v", err)
	}

	if deductions[0].RefId != "flour-id" {
		t.Fatalf("ref = %q, want the existing item id", deductions[0].RefId)
	}
	if !deductions[0].UnitCost.Equal(dec("1200")) {
		t.Fatalf("unit cost = %s, want total/quantity = 1200", deductions[0].UnitCost)
	}

	if deductions[1].RefId != NewItemRefId || deductions[1].NewItem == nil {
		t.Fatalf("deduction = %+v, want new-item sentinel", deductions[1])
	}
	if deductions[1].NewItem.Name != "Palm sugar" || deductions[1].NewItem.Unit != "kg" {
		t.Fatalf("new item spec = %+v", deductions[1].NewItem)
	}

	// One summary expense covers the whole receipt.
	if summary.Category != LedgerCategoryRawMaterial || !summary.Amount.Equal(dec("18000")) {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestFoldStockGuessesRejectsNonPositiveLines(t *testing.T) {
	snapshot := InventorySnapshot{}
	if _, _, err := FoldStockGuesses(snapshot, []StockGuess{
		{Name: "Flour", Quantity: dec("0"), TotalPrice: dec("100")},
	}, "2026-09-01", ""); err == nil {
		t.Fatal("want error for zero quantity")
	}
	if _, _, err := FoldStockGuesses(snapshot, []StockGuess{
		{Name: "Flour", Quantity: dec("2"), TotalPrice: dec("0")},
	}, "2026-09-01", ""); err == nil {
		t.Fatal("want error for zero price")
	}
}
