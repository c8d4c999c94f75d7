package workflow

import (
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultAssetLifespanDays = 365
	defaultStockMinLevel     = 5
)

// StockApplyResult reports how much of a deduction batch actually landed.
// Applied < Requested means some lines referenced since-deleted items: the
// money side of the transaction is recorded anyway and the caller is expected
// to warn, so books and physical stock do not diverge silently.
type StockApplyResult struct {
	Requested      int      `json:"requested"`
	Applied        int      `json:"applied"`
	CreatedItemIds []string `json:"created_item_ids,omitempty"`
	SkippedRefs    []string `json:"skipped_refs,omitempty"`
	// TouchedItemIds lists existing items whose quantity/cost changed,
	// for the persistence layer's batch write.
	TouchedItemIds []string `json:"touched_item_ids,omitempty"`
}

func (r StockApplyResult) Partial() bool {
	return r.Applied < r.Requested
}

// StockIn mutates the item with a weighted-average cost recompute. This is
// the only permitted way to change an item's unit cost.
func StockIn(item *models.InventoryItem, addQty, addCost decimal.Decimal) {
	oldQty := item.Quantity
	newQty := oldQty.Add(addQty)
	if newQty.IsPositive() {
		totalValue := oldQty.Mul(item.CostPerUnit).Add(addQty.Mul(addCost))
		item.CostPerUnit = totalValue.Div(newQty)
	} else {
		item.CostPerUnit = decimal.Zero
	}
	item.Quantity = newQty
}

// StockOut decrements quantity, clamped at zero. Cost per unit is untouched.
func StockOut(item *models.InventoryItem, qty decimal.Decimal) {
	newQty := item.Quantity.Sub(qty)
	if newQty.IsNegative() {
		newQty = decimal.Zero
	}
	item.Quantity = newQty
}

// ApplyDeductions is the stock engine's single entry point: a pure transform
// from one inventory snapshot to the next. All deductions are validated
// before any mutation; resolution misses are skipped and reported, never
// fatal. A menu line whose recipe references a since-deleted item still
// deducts the ingredients that do resolve, but the line is not counted as
// applied and each miss lands in SkippedRefs. intent drives the direction
// fallback for deductions that do not carry one (an expense transaction
// implies stock-in).
func ApplyDeductions(snapshot models.InventorySnapshot, menu []models.MenuItem, deductions []models.StockDeduction, intent models.LedgerType, accountId string, now time.Time) (models.InventorySnapshot, StockApplyResult, error) {
	result := StockApplyResult{Requested: len(deductions)}

	for i := range deductions {
		if err := deductions[i].Validate(); err != nil {
			return snapshot, result, err
		}
	}

	next := snapshot.Clone()
	touched := map[string]bool{}

	for _, d := range deductions {
		switch d.TargetType {
		case models.DeductionTargetMenu:
			menuItem := models.FindMenuItem(menu, d.RefId)
			if menuItem == nil {
				result.SkippedRefs = append(result.SkippedRefs, d.RefId)
				continue
			}
			missed := false
			for _, ing := range menuItem.Ingredients {
				item := next.Resolve(ing.InventoryItemId, ing.Name)
				if item == nil {
					ref := ing.InventoryItemId
					if ref == "" {
						ref = ing.Name
					}
					result.SkippedRefs = append(result.SkippedRefs, d.RefId+"/"+ref)
					missed = true
					continue
				}
				StockOut(item, ing.QuantityPerUnit.Mul(d.Quantity))
				touched[item.ID] = true
			}
			if !missed {
				result.Applied++
			}

		case models.DeductionTargetInventory:
			if d.RefId == models.NewItemRefId {
				created := synthesizeInventoryItem(&d, accountId, now)
				next[created.ID] = created
				result.CreatedItemIds = append(result.CreatedItemIds, created.ID)
				result.Applied++
				continue
			}

			item, ok := next[d.RefId]
			if !ok {
				result.SkippedRefs = append(result.SkippedRefs, d.RefId)
				continue
			}
			if d.EffectiveDirection(intent) == models.StockDirectionIn {
				StockIn(item, d.Quantity, d.UnitCost)
			} else {
				StockOut(item, d.Quantity)
			}
			touched[item.ID] = true
			result.Applied++
		}
	}

	for id := range touched {
		result.TouchedItemIds = append(result.TouchedItemIds, id)
	}
	return next, result, nil
}

// synthesizeInventoryItem builds a fresh item from a new-item deduction.
// Categories asset/equipment become depreciable assets; everything else is
// plain stock with a sane reorder floor.
func synthesizeInventoryItem(d *models.StockDeduction, accountId string, now time.Time) *models.InventoryItem {
	spec := d.NewItem
	unitCost := spec.UnitCost
	if unitCost.IsZero() {
		unitCost = d.UnitCost
	}

	item := &models.InventoryItem{
		ID:          uuid.NewString(),
		AccountId:   accountId,
		Name:        spec.Name,
		Quantity:    d.Quantity,
		Unit:        spec.Unit,
		CostPerUnit: unitCost,
		Category:    spec.Category,
	}

	category := strings.ToLower(spec.Category)
	if category == "asset" || category == "equipment" {
		item.Type = models.InventoryTypeAsset
		item.LifespanDays = spec.LifespanDays
		if item.LifespanDays <= 0 {
			item.LifespanDays = defaultAssetLifespanDays
		}
		item.SalvagePrice = spec.SalvagePrice
		item.PurchaseDate = utils.FormatBusinessDate(now)
	} else {
		item.Type = models.InventoryTypeStock
		item.MinLevel = decimal.NewFromInt(defaultStockMinLevel)
	}
	return item
}
