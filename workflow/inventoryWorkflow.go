package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/models"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
)

// AdjustStock applies a deduction batch with no money movement: manual
// restocks, spillage, stocktake corrections.
func AdjustStock(ctx context.Context, caps *Capabilities, deductions []models.StockDeduction, intent models.LedgerType) (*StockApplyResult, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	if err := caps.requireStock(); err != nil {
		return nil, err
	}
	if len(deductions) == 0 {
		return nil, errors.New("nothing to apply")
	}
	if intent == "" {
		intent = models.LedgerTypeExpense
	}

	lock, err := AcquireAccountPostingLock(ctx, accountId)
	if err != nil {
		return nil, errors.New("another checkout is in progress, please retry")
	}
	defer ReleaseAccountPostingLock(ctx, lock)

	snapshot, err := models.FetchInventorySnapshot(ctx)
	if err != nil {
		return nil, err
	}
	menu, err := models.GetMenuItems(ctx)
	if err != nil {
		return nil, err
	}
	next, result, err := ApplyDeductions(snapshot, menu, deductions, intent, accountId, time.Now())
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := persistStockChanges(ctx, tx, caps, next, &result); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &result, nil
}

// RecordPurchase posts expense entries together with their stock effects, the
// shape produced by scanned receipts. Entries stay individually editable, so
// unlike a split bill they carry no group id.
func RecordPurchase(ctx context.Context, caps *Capabilities, entries []models.NewLedgerEntry, deductions []models.StockDeduction) ([]models.LedgerItem, *StockApplyResult, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, nil, errors.New("account id is required")
	}
	if err := caps.requireLedger(); err != nil {
		return nil, nil, err
	}
	if len(entries) == 0 && len(deductions) == 0 {
		return nil, nil, errors.New("nothing to record")
	}
	for i := range entries {
		if err := entries[i].Validate(ctx, accountId, ""); err != nil {
			return nil, nil, err
		}
	}

	// Snapshot read under the lock, same as AdjustStock and Checkout.
	lock, err := AcquireAccountPostingLock(ctx, accountId)
	if err != nil {
		return nil, nil, errors.New("another checkout is in progress, please retry")
	}
	defer ReleaseAccountPostingLock(ctx, lock)

	var (
		next   models.InventorySnapshot
		result StockApplyResult
	)
	if len(deductions) > 0 {
		if err := caps.requireStock(); err != nil {
			return nil, nil, err
		}
		snapshot, err := models.FetchInventorySnapshot(ctx)
		if err != nil {
			return nil, nil, err
		}
		menu, err := models.GetMenuItems(ctx)
		if err != nil {
			return nil, nil, err
		}
		next, result, err = ApplyDeductions(snapshot, menu, deductions, models.LedgerTypeExpense, accountId, time.Now())
		if err != nil {
			return nil, nil, err
		}
	}

	db := config.GetDB()
	tx := db.Begin()
	posted := make([]models.LedgerItem, 0, len(entries))
	for i := range entries {
		entry := models.BuildLedgerItem(accountId, &entries[i])
		if err := caps.AddLedgerEntry(ctx, tx, entry); err != nil {
			tx.Rollback()
			return nil, nil, err
		}
		posted = append(posted, *entry)
	}
	if next != nil {
		if err := persistStockChanges(ctx, tx, caps, next, &result); err != nil {
			tx.Rollback()
			return nil, nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, nil, err
	}
	return posted, &result, nil
}
