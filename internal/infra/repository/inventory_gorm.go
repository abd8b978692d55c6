package repository

import (
	"context"

	"storefront/internal/domain/model"

	"gorm.io/gorm"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

func (r *InventoryGormRepository) products(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Product{})
}

func (r *InventoryGormRepository) SetStock(ctx context.Context, productID int64, newStock int64) error {
	return mustAffect(r.products(ctx).Where("id = ?", productID).Update("stock", newStock))
}

// 判定と減算を1文で行うのでstockは負にならない
func (r *InventoryGormRepository) ReserveStock(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.products(ctx).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// 論理削除済みの商品にも戻す
func (r *InventoryGormRepository) RestoreStock(ctx context.Context, productID int64, qty int64) error {
	return mustAffect(r.products(ctx).
		Unscoped().
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty)))
}

func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	return translate(r.db.WithContext(ctx).Create(&adj).Error)
}
