package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/pos_backend/config"
	"bitbucket.org/mmdatafocus/pos_backend/utils"
	"github.com/google/uuid"
)

type Supplier struct {
	ID        string    `gorm:"primary_key;size:36" json:"id"`
	AccountId string    `gorm:"index;size:36;not null" json:"account_id"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Phone     string    `gorm:"size:50" json:"phone"`
	Note      string    `gorm:"type:text" json:"note"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Note  string `json:"note"`
}

func (input *NewSupplier) validate(ctx context.Context, accountId string, _ string) error {
	if input.Name == "" {
		return errors.New("supplier name is required")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
	}
	return utils.ValidateUnique[Supplier](ctx, accountId, "name", input.Name, nil)
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	accountId, ok := utils.GetAccountIdFromContext(ctx)
	if !ok || accountId == "" {
		return nil, errors.New("account id is required")
	}
	if err := input.validate(ctx, accountId, ""); err != nil {
		return nil, err
	}

	supplier := Supplier{
		ID:        uuid.NewString(),
		AccountId: accountId,
		Name:      input.Name,
		Phone:     input.Phone,
		Note:      input.Note,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}
