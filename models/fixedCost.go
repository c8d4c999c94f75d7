package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FixedCostMarker prefixes the titles of ledger entries produced by the cost
// allocation engine, so "already logged today" stays a derived check.
const FixedCostMarker = "[fixed]"

// LegacyEquipment predates inventory-as-asset records. Rows that were later
// migrated carry InventoryItemId so depreciation never double counts.
type LegacyEquipment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	ConfigId        int             `gorm:"index;not null" json:"config_id"`
	Name            string          `gorm:"size:255;not null" json:"name"`
	PurchasePrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"purchase_price"`
	SalvagePrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"salvage_price"`
	LifespanDays    int             `gorm:"default:0" json:"lifespan_days"`
	InventoryItemId string          `gorm:"size:36" json:"inventory_item_id"`
}

func (eq *LegacyEquipment) DailyDepreciation() decimal.Decimal {
	if eq.LifespanDays <= 0 {
		return decimal.Zero
	}
	return eq.PurchasePrice.Sub(eq.SalvagePrice).Div(decimal.NewFromInt(int64(eq.LifespanDays)))
}

type FixedCostConfig struct {
	ID        int    `gorm:"primary_key" json:"id"`
	AccountId string `gorm:"index;size:36;not null" json:"account_id"`

	BoothRent  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"booth_rent"`
	OwnerLabor decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"owner_labor"`
	Utilities  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"utilities"`

	Equipment []LegacyEquipment `gorm:"foreignKey:ConfigId" json:"equipment"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func GetFixedCostConfig(ctx context.Context) (*FixedCostConfig, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	db := config.GetDB()
	var cfg FixedCostConfig
	err := db.WithContext(ctx).Preload("Equipment").Where("account_id = ?", accountId).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// no configured fixed costs yet: an empty config is valid
			return &FixedCostConfig{AccountId: accountId}, nil
		}
		return nil, err
	}
	return &cfg, nil
}
