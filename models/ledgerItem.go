package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerItem is one income or expense record, attributed to a business date
// that may differ from its creation time. Append-only: an edit replaces a
// single entry's fields but never its identifier.
type LedgerItem struct {
	ID        string `gorm:"primary_key;size:36" json:"id"`
	AccountId string `gorm:"index;size:36;not null" json:"account_id"`
	// ClientTxnId is generated at creation time on the client side and used
	// as the end-to-end deduplication key for change-feed echoes.
	ClientTxnId string `gorm:"index;size:36" json:"client_txn_id"`

	Date     string          `gorm:"index;size:10;not null" json:"date"`
	Type     LedgerType      `gorm:"type:enum('income','expense');not null" json:"type"`
	Title    string          `gorm:"size:255;not null" json:"title"`
	Amount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Category LedgerCategory  `gorm:"size:50;not null" json:"category"`
	Channel  string          `gorm:"size:100" json:"channel"`

	ReceiptImageUrl string `gorm:"size:512" json:"receipt_image_url"`
	Note            string `gorm:"type:text" json:"note"`

	// SplitGroupId groups the entries born from one split-bill checkout.
	// Entries carrying one cannot be edited individually.
	SplitGroupId string `gorm:"index;size:36" json:"split_group_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLedgerEntry struct {
	Date            string          `json:"date" binding:"required"`
	Type            LedgerType      `json:"type" binding:"required"`
	Title           string          `json:"title" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Category        LedgerCategory  `json:"category" binding:"required"`
	Channel         string          `json:"channel"`
	ReceiptImageUrl string          `json:"receipt_image_url"`
	Note            string          `json:"note"`
}

// validate input for both create & update. (id = "" for create)
func (input *NewLedgerEntry) Validate(ctx context.Context, accountId string, _ string) error {
	if input.Title == "" {
		return errors.New("title is required")
	}
	if !input.Amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	if input.Type != LedgerTypeIncome && input.Type != LedgerTypeExpense {
		return errors.New("invalid ledger type")
	}
	if !input.Category.IsValidFor(input.Type) {
		return errors.New("invalid category for " + string(input.Type))
	}
	if _, err := utils.ParseBusinessDate(input.Date); err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	return nil
}

// BuildLedgerItem materializes a validated input into a record, minting the
// identity and idempotency key.
func BuildLedgerItem(accountId string, input *NewLedgerEntry) *LedgerItem {
	return &LedgerItem{
		ID:              uuid.NewString(),
		AccountId:       accountId,
		ClientTxnId:     uuid.NewString(),
		Date:            input.Date,
		Type:            input.Type,
		Title:           input.Title,
		Amount:          input.Amount,
		Category:        input.Category,
		Channel:         input.Channel,
		ReceiptImageUrl: input.ReceiptImageUrl,
		Note:            input.Note,
	}
}

func CreateLedgerEntry(ctx context.Context, input *NewLedgerEntry) (*LedgerItem, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	if err := input.Validate(ctx, accountId, ""); err != nil {
		return nil, err
	}
	entry := BuildLedgerItem(accountId, input)
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func InsertLedgerEntry(ctx context.Context, tx *gorm.DB, entry *LedgerItem) error {
	return tx.WithContext(ctx).Create(entry).Error
}

// UpdateLedgerEntry replaces a single entry's fields, never its identifier.
// Entries created by a split-bill checkout are rejected: editing one leg of a
// multi-entry submission is out of scope and surfaced as a user error.
func UpdateLedgerEntry(ctx context.Context, id string, input *NewLedgerEntry) (*LedgerItem, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	if err := input.Validate(ctx, accountId, id); err != nil {
		return nil, err
	}

	entry, err := utils.FetchModel[LedgerItem](ctx, accountId, id)
	if err != nil {
		return nil, err
	}
	if entry.SplitGroupId != "" {
		return nil, errors.New("this record was created by a split bill and cannot be edited individually")
	}

	entry.Date = input.Date
	entry.Type = input.Type
	entry.Title = input.Title
	entry.Amount = input.Amount
	entry.Category = input.Category
	entry.Channel = input.Channel
	entry.ReceiptImageUrl = input.ReceiptImageUrl
	entry.Note = input.Note

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func GetLedgerEntries(ctx context.Context, startDate, endDate string) ([]LedgerItem, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	db := config.GetDB()
	var entries []LedgerItem
	dbCtx := db.WithContext(ctx).Where("account_id = ?", accountId)
	if startDate != "" {
		dbCtx = dbCtx.Where("date >= ?", startDate)
	}
	if endDate != "" {
		dbCtx = dbCtx.Where("date <= ?", endDate)
	}
	if err := dbCtx.Order("date DESC, created_at DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
