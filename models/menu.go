package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
)

// MenuIngredient links a menu entry to the inventory item it consumes.
// InventoryItemId is the stable master reference; Name is the fallback for
// rows recorded before master ids existed (matched case-insensitively).
type MenuIngredient struct {
	ID              int             `gorm:"primary_key" json:"id"`
	MenuItemId      string          `gorm:"index;size:36;not null" json:"menu_item_id"`
	InventoryItemId string          `gorm:"size:36" json:"inventory_item_id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	QuantityPerUnit decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity_per_unit"`
}

type MenuItem struct {
	ID               string           `gorm:"primary_key;size:36" json:"id"`
	AccountId        string           `gorm:"index;size:36;not null" json:"account_id"`
	Name             string           `gorm:"size:255;not null" json:"name" binding:"required"`
	Price            decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"price"`
	WastePercent     decimal.Decimal  `gorm:"type:decimal(10,4);default:0" json:"waste_percent"`
	PromoLossPercent decimal.Decimal  `gorm:"type:decimal(10,4);default:0" json:"promo_loss_percent"`
	ImageUrl         string           `gorm:"size:512" json:"image_url"`
	Ingredients      []MenuIngredient `gorm:"foreignKey:MenuItemId" json:"ingredients"`
	CreatedAt        time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// IngredientCost sums the current cost of one unit's worth of ingredients
// against the inventory snapshot. Unresolvable ingredients contribute zero.
func (m *MenuItem) IngredientCost(snapshot InventorySnapshot) decimal.Decimal {
	cost := decimal.Zero
	for _, ing := range m.Ingredients {
		item := snapshot.Resolve(ing.InventoryItemId, ing.Name)
		if item == nil {
			continue
		}
		cost = cost.Add(item.CostPerUnit.Mul(ing.QuantityPerUnit))
	}
	return cost
}

func FindMenuItem(menu []MenuItem, id string) *MenuItem {
	for i := range menu {
		if menu[i].ID == id {
			return &menu[i]
		}
	}
	return nil
}

func GetMenuItems(ctx context.Context) ([]MenuItem, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	db := config.GetDB()
	var items []MenuItem
	if err := db.WithContext(ctx).Preload("Ingredients").Where("account_id = ?", accountId).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
