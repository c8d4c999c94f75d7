package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Receipt scanning is an external classifier returning best-effort guesses.
// Guesses are untrusted input: they pass the same validation as manual entry
// before folding into the stock-in and ledger paths.

// EquipmentGuess is one {name, price} line from an equipment-purchase photo.
type EquipmentGuess struct {
	Name  string          `json:"name" binding:"required"`
	Price decimal.Decimal `json:"price" binding:"required"`
}

// StockGuess is one {name, quantity, unit, totalPrice} line from a
// stock-purchase photo.
type StockGuess struct {
	Name       string          `json:"name" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	Unit       string          `json:"unit"`
	TotalPrice decimal.Decimal `json:"total_price" binding:"required"`
}

// FoldEquipmentGuesses converts accepted equipment guesses into new-asset
// deductions plus one expense entry per line.
func FoldEquipmentGuesses(guesses []EquipmentGuess, date string, receiptImageUrl string) ([]StockDeduction, []NewLedgerEntry, error) {
	if len(guesses) == 0 {
		return nil, nil, errors.New("no scanned items accepted")
	}

	deductions := make([]StockDeduction, 0, len(guesses))
	entries := make([]NewLedgerEntry, 0, len(guesses))
	for _, g := range guesses {
		if g.Name == "" {
			return nil, nil, errors.New("scanned item name is required")
		}
		if !g.Price.IsPositive() {
			return nil, nil, errors.New("scanned price must be greater than zero: " + g.Name)
		}

		deductions = append(deductions, StockDeduction{
			TargetType: DeductionTargetInventory,
			RefId:      NewItemRefId,
			Quantity:   decimal.NewFromInt(1),
			Direction:  StockDirectionIn,
			UnitCost:   g.Price,
			NewItem: &NewItemSpec{
				Name:     g.Name,
				Unit:     "unit",
				UnitCost: g.Price,
				Category: string(LedgerCategoryEquipment),
			},
		})
		entries = append(entries, NewLedgerEntry{
			Date:            date,
			Type:            LedgerTypeExpense,
			Title:           g.Name,
			Amount:          g.Price,
			Category:        LedgerCategoryEquipment,
			ReceiptImageUrl: receiptImageUrl,
		})
	}
	return deductions, entries, nil
}

// FoldStockGuesses converts accepted stock guesses into stock-in deductions.
// Names resolving to an existing inventory item (master id or case-insensitive
// name) top that item up; unknown names create a fresh stock item. The unit
// cost is derived from totalPrice/quantity, guarded against zero quantity.
func FoldStockGuesses(snapshot InventorySnapshot, guesses []StockGuess, date string, receiptImageUrl string) ([]StockDeduction, *NewLedgerEntry, error) {
	if len(guesses) == 0 {
		return nil, nil, errors.New("no scanned items accepted")
	}

	deductions := make([]StockDeduction, 0, len(guesses))
	receiptTotal := decimal.Zero
	for _, g := range guesses {
		if g.Name == "" {
			return nil, nil, errors.New("scanned item name is required")
		}
		if !g.Quantity.IsPositive() {
			return nil, nil, errors.New("scanned quantity must be greater than zero: " + g.Name)
		}
		if !g.TotalPrice.IsPositive() {
			return nil, nil, errors.New("scanned total price must be greater than zero: " + g.Name)
		}

		unitCost := decimal.Zero
		if g.Quantity.IsPositive() {
			unitCost = g.TotalPrice.Div(g.Quantity)
		}

		deduction := StockDeduction{
			TargetType: DeductionTargetInventory,
			Quantity:   g.Quantity,
			Direction:  StockDirectionIn,
			UnitCost:   unitCost,
		}
		if existing := snapshot.Resolve("", g.Name); existing != nil {
			deduction.RefId = existing.ID
		} else {
			deduction.RefId = NewItemRefId
			deduction.NewItem = &NewItemSpec{
				Name:     g.Name,
				Unit:     g.Unit,
				UnitCost: unitCost,
			}
		}

		deductions = append(deductions, deduction)
		receiptTotal = receiptTotal.Add(g.TotalPrice)
	}

	entry := &NewLedgerEntry{
		Date:            date,
		Type:            LedgerTypeExpense,
		Title:           "Stock purchase (scanned receipt)",
		Amount:          receiptTotal,
		Category:        LedgerCategoryRawMaterial,
		ReceiptImageUrl: receiptImageUrl,
	}
	return deductions, entry, nil
}
