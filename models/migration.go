package models

import (
	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&User{},
		&Order{},
		&OrderItem{},
		&MenuItem{},
		&MenuIngredient{},
		&InventoryItem{},
		&LedgerItem{},
		&FixedCostConfig{},
		&LegacyEquipment{},
		&Supplier{},
	)
	utils.ErrorPanic(err)
}
