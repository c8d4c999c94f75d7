package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryItem is the single mutable shared resource in the system. Its
// quantity and cost fields may only be mutated through the stock engine's
// transforms (workflow.ApplyDeductions); everything else treats it as
// read-only.
//
// For type=asset the quantity is typically 1 and CostPerUnit is the fixed
// purchase cost; for type=stock CostPerUnit is a running weighted average.
type InventoryItem struct {
	ID          string          `gorm:"primary_key;size:36" json:"id"`
	AccountId   string          `gorm:"index;size:36;not null" json:"account_id"`
	Name        string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	Unit        string          `gorm:"size:50" json:"unit"`
	MinLevel    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"min_level"`
	CostPerUnit decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_per_unit"`
	Category    string          `gorm:"size:100" json:"category"`
	Type        InventoryType   `gorm:"type:enum('stock','asset');default:stock" json:"type"`

	// asset-only fields
	LifespanDays int             `gorm:"default:0" json:"lifespan_days"`
	SalvagePrice decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"salvage_price"`
	PurchaseDate string          `gorm:"size:10" json:"purchase_date"`

	// Version guards against concurrent lost updates: persist requires the
	// version the caller observed, and a mismatch is a retryable conflict.
	Version int `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (item *InventoryItem) IsLowStock() bool {
	return item.Type != InventoryTypeAsset && item.Quantity.LessThanOrEqual(item.MinLevel)
}

// DailyDepreciation is the straight-line daily write-down for an asset.
// Zero or negative lifespan contributes zero, never a division error.
func (item *InventoryItem) DailyDepreciation() decimal.Decimal {
	if item.Type != InventoryTypeAsset || item.LifespanDays <= 0 {
		return decimal.Zero
	}
	return item.CostPerUnit.Sub(item.SalvagePrice).Div(decimal.NewFromInt(int64(item.LifespanDays)))
}

// InventorySnapshot is the in-memory arena all stock transforms operate on.
// Callers pass the current snapshot in and receive a new one out; no ambient
// shared mutable state.
type InventorySnapshot map[string]*InventoryItem

func (s InventorySnapshot) Clone() InventorySnapshot {
	out := make(InventorySnapshot, len(s))
	for id, item := range s {
		copied := *item
		out[id] = &copied
	}
	return out
}

// Resolve finds an item by master id first, falling back to case-insensitive
// exact name match. Returns nil on a miss.
func (s InventorySnapshot) Resolve(id string, name string) *InventoryItem {
	if id != "" {
		if item, ok := s[id]; ok {
			return item
		}
	}
	if name == "" {
		return nil
	}
	for _, item := range s {
		if strings.EqualFold(item.Name, name) {
			return item
		}
	}
	return nil
}

func (s InventorySnapshot) Items() []InventoryItem {
	out := make([]InventoryItem, 0, len(s))
	for _, item := range s {
		out = append(out, *item)
	}
	return out
}

// FetchInventorySnapshot loads the account's full inventory into an arena.
func FetchInventorySnapshot(ctx context.Context) (InventorySnapshot, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	db := config.GetDB()
	var items []InventoryItem
	if err := db.WithContext(ctx).Where("account_id = ?", accountId).Find(&items).Error; err != nil {
		return nil, err
	}
	snapshot := make(InventorySnapshot, len(items))
	for i := range items {
		item := items[i]
		snapshot[item.ID] = &item
	}
	return snapshot, nil
}

// PersistInventoryItem writes one item back with an optimistic-concurrency
// check on Version. Returns ErrorVersionConflict when another session won.
func PersistInventoryItem(ctx context.Context, tx *gorm.DB, item *InventoryItem, observedVersion int) error {
	if item.ID == "" {
		return errors.New("inventory item id is required")
	}
	item.Version = observedVersion + 1
	result := tx.WithContext(ctx).Model(&InventoryItem{}).
		Where("id = ? AND account_id = ? AND version = ?", item.ID, item.AccountId, observedVersion).
		Updates(map[string]interface{}{
			"quantity":      item.Quantity,
			"cost_per_unit": item.CostPerUnit,
			"min_level":     item.MinLevel,
			"version":       item.Version,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorVersionConflict
	}
	return nil
}

func InsertInventoryItem(ctx context.Context, tx *gorm.DB, item *InventoryItem) error {
	return tx.WithContext(ctx).Create(item).Error
}
