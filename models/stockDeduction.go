package models

import (
	"errors"

	"github.com/shopspring/decimal"
)

// NewItemSpec carries the caller-supplied fields used only when a deduction's
// RefId is the NewItemRefId sentinel.
type NewItemSpec struct {
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Category     string          `json:"category"`
	LifespanDays int             `json:"lifespan_days"`
	SalvagePrice decimal.Decimal `json:"salvage_price"`
}

// StockDeduction is an ephemeral instruction describing how a transaction
// should affect inventory. It is never persisted.
type StockDeduction struct {
	TargetType DeductionTarget `json:"target_type" binding:"required"`
	RefId      string          `json:"ref_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`

	// Direction, when set, wins over any inference from the surrounding
	// transaction type. Empty means "infer" (expense => in, else out) for
	// payloads recorded before the field existed.
	Direction StockDirection `json:"direction"`

	// UnitCost feeds the weighted-average recompute on stock-in.
	UnitCost decimal.Decimal `json:"unit_cost"`

	NewItem *NewItemSpec `json:"new_item,omitempty"`
}

func (d *StockDeduction) Validate() error {
	if d.TargetType != DeductionTargetInventory && d.TargetType != DeductionTargetMenu {
		return errors.New("invalid deduction target type")
	}
	if d.RefId == "" {
		return errors.New("deduction ref id is required")
	}
	if !d.Quantity.IsPositive() {
		return errors.New("deduction quantity must be greater than zero")
	}
	if d.RefId == NewItemRefId {
		if d.TargetType != DeductionTargetInventory {
			return errors.New("new item creation is only valid for inventory deductions")
		}
		if d.NewItem == nil || d.NewItem.Name == "" {
			return errors.New("new item name is required")
		}
	}
	return nil
}

// EffectiveDirection resolves the applied direction: the explicit field when
// present, otherwise inferred from the surrounding transaction type.
func (d *StockDeduction) EffectiveDirection(intent LedgerType) StockDirection {
	if d.Direction == StockDirectionIn || d.Direction == StockDirectionOut {
		return d.Direction
	}
	if intent == LedgerTypeExpense {
		return StockDirectionIn
	}
	return StockDirectionOut
}

// MenuDeductions derives the per-menu-item deductions for an order's cart.
func MenuDeductions(cart []OrderItem) []StockDeduction {
	deductions := make([]StockDeduction, 0, len(cart))
	for _, item := range cart {
		if item.MenuItemId == "" {
			continue
		}
		deductions = append(deductions, StockDeduction{
			TargetType: DeductionTargetMenu,
			RefId:      item.MenuItemId,
			Quantity:   decimal.NewFromInt(int64(item.Quantity)),
			Direction:  StockDirectionOut,
		})
	}
	return deductions
}
