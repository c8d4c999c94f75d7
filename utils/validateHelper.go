package utils

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/pos_backend/config"
)

// ValidateResourceId checks that a record of type T with the given id exists
// for the account. May return ErrorRecordNotFound.
func ValidateResourceId[T any](ctx context.Context, accountId string, id interface{}) error {
	db := config.GetDB()
	var count int64
	var model T
	if err := db.WithContext(ctx).Model(&model).Where("account_id = ? AND id = ?", accountId, id).Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

func ValidateUnique[T any](ctx context.Context, accountId string, column string, value interface{}, exceptId interface{}) error {
	db := config.GetDB()
	var count int64
	var model T
	dbCtx := db.WithContext(ctx).Model(&model).Where("account_id = ? AND "+column+" = ?", accountId, value)
	if exceptId != nil {
		dbCtx = dbCtx.Where("id != ?", exceptId)
	}
	if err := dbCtx.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New(column + " already exists")
	}
	return nil
}

func ResourceCountWhere[T any](ctx context.Context, accountId string, condition string, value ...interface{}) (int64, error) {
	db := config.GetDB()
	var count int64
	var model T
	if err := db.WithContext(ctx).Model(&model).Where("account_id = ?", accountId).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FetchModel loads a record by account + id. May return ErrorRecordNotFound.
func FetchModel[T any](ctx context.Context, accountId string, id interface{}) (*T, error) {
	db := config.GetDB()
	var model T
	result := db.WithContext(ctx).Where("account_id = ? AND id = ?", accountId, id).First(&model)
	if result.Error != nil {
		if result.RowsAffected == 0 {
			return nil, ErrorRecordNotFound
		}
		return nil, result.Error
	}
	return &model, nil
}
