package repository

import (
	"context"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

var addressUpdatableColumns = []string{
	"full_name",
	"phone",
	"line1",
	"line2",
	"city",
	"state_province",
	"country",
	"postal_code",
	"updated_at",
}

type addressGormRepository struct {
	db *gorm.DB
}

func NewAddressGormRepository(db *gorm.DB) repo.AddressRepository {
	return &addressGormRepository{db: db}
}

func (r *addressGormRepository) Create(ctx context.Context, address model.Address) (model.Address, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&model.Address{}).Where("user_id = ?", address.UserID).Count(&n).Error; err != nil {
			return err
		}
		//最初の1件
		if n == 0 {
			address.IsDefault = true
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return model.Address{}, translate(err)
	}
	return address, nil
}

func (r *addressGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	list := []model.Address{}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, id ASC").
		Find(&list).Error; err != nil {
		return nil, translate(err)
	}
	return list, nil
}

func (r *addressGormRepository) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	var a model.Address
	if err := r.db.WithContext(ctx).First(&a, addressID).Error; err != nil {
		return model.Address{}, translate(err)
	}
	return a, nil
}

// is_defaultとuser_idはここでは変えない
func (r *addressGormRepository) Update(ctx context.Context, address model.Address) error {
	res := r.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("id = ?", address.ID).
		Select(addressUpdatableColumns).
		Updates(address)
	return mustAffect(res)
}

// 注文はaddress_idを持つだけなので削除しても注文は残る
func (r *addressGormRepository) Delete(ctx context.Context, addressID int64) error {
	return mustAffect(r.db.WithContext(ctx).Delete(&model.Address{}, addressID))
}

func (r *addressGormRepository) SetDefault(ctx context.Context, userID, addressID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Address{}).
			Where("user_id = ? AND is_default = TRUE AND id <> ?", userID, addressID).
			Update("is_default", false).Error; err != nil {
			return translate(err)
		}

		return mustAffect(tx.Model(&model.Address{}).
			Where("id = ? AND user_id = ?", addressID, userID).
			Update("is_default", true))
	})
}
