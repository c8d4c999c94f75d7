package workflow

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/shopspring/decimal"
)

// DailyFixedCosts expands a fixed-cost configuration into the ledger entries
// for one business date. Depreciation sums straight-line daily amounts over
// legacy equipment and inventory assets; legacy rows linked to an inventory
// item are skipped so a migrated machine is never counted twice. Zero-amount
// lines are omitted.
func DailyFixedCosts(cfg *models.FixedCostConfig, assets []models.InventoryItem, targetDate string) []models.NewLedgerEntry {
	var entries []models.NewLedgerEntry

	add := func(title string, amount decimal.Decimal, category models.LedgerCategory) {
		if !amount.IsPositive() {
			return
		}
		entries = append(entries, models.NewLedgerEntry{
			Date:     targetDate,
			Type:     models.LedgerTypeExpense,
			Title:    models.FixedCostMarker + " " + title,
			Amount:   amount.Round(2),
			Category: category,
		})
	}

	if cfg != nil {
		add("Booth rent", cfg.BoothRent, models.LedgerCategoryRent)
		add("Owner labor", cfg.OwnerLabor, models.LedgerCategoryLabor)
		add("Utilities", cfg.Utilities, models.LedgerCategoryUtilities)
	}

	depreciation := decimal.Zero
	if cfg != nil {
		for i := range cfg.Equipment {
			if cfg.Equipment[i].InventoryItemId != "" {
				continue
			}
			depreciation = depreciation.Add(cfg.Equipment[i].DailyDepreciation())
		}
	}
	for i := range assets {
		if assets[i].Type != models.InventoryTypeAsset {
			continue
		}
		depreciation = depreciation.Add(assets[i].DailyDepreciation())
	}
	add("Equipment depreciation", depreciation, models.LedgerCategoryEquipment)

	return entries
}

// FixedCostsAlreadyLogged reports whether targetDate already carries the
// allocation output. Derived from the ledger itself: any entry on that date
// bearing the marker title, or a rent/labor category, counts.
func FixedCostsAlreadyLogged(entries []models.LedgerItem, targetDate string) bool {
	for i := range entries {
		if entries[i].Date != targetDate {
			continue
		}
		if strings.HasPrefix(entries[i].Title, models.FixedCostMarker) {
			return true
		}
		if entries[i].Category == models.LedgerCategoryRent || entries[i].Category == models.LedgerCategoryLabor {
			return true
		}
	}
	return false
}

// LogDailyFixedCosts materializes the allocation for targetDate, refusing to
// run twice for the same date.
func LogDailyFixedCosts(ctx context.Context, caps *Capabilities, targetDate string) ([]models.LedgerItem, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	if err := caps.requireLedger(); err != nil {
		return nil, err
	}
	if _, err := utils.ParseBusinessDate(targetDate); err != nil {
		return nil, errors.New("date must be YYYY-MM-DD")
	}

	existing, err := models.GetLedgerEntries(ctx, targetDate, targetDate)
	if err != nil {
		return nil, err
	}
	if FixedCostsAlreadyLogged(existing, targetDate) {
		return nil, errors.New("fixed costs for " + targetDate + " are already logged")
	}

	cfg, err := models.GetFixedCostConfig(ctx)
	if err != nil {
		return nil, err
	}
	snapshot, err := models.FetchInventorySnapshot(ctx)
	if err != nil {
		return nil, err
	}

	inputs := DailyFixedCosts(cfg, snapshot.Items(), targetDate)
	if len(inputs) == 0 {
		return nil, errors.New("no fixed costs are configured")
	}

	lock, err := AcquireAccountPostingLock(ctx, accountId)
	if err != nil {
		return nil, errors.New("another checkout is in progress, please retry")
	}
	defer ReleaseAccountPostingLock(ctx, lock)

	db := config.GetDB()
	tx := db.Begin()
	posted := make([]models.LedgerItem, 0, len(inputs))
	for i := range inputs {
		entry := models.BuildLedgerItem(accountId, &inputs[i])
		if err := caps.AddLedgerEntry(ctx, tx, entry); err != nil {
			tx.Rollback()
			return nil, err
		}
		posted = append(posted, *entry)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return posted, nil
}
