package repository

import (
	"context"

	"storefront/internal/domain/model"

	"gorm.io/gorm"
)

type ReviewGormRepository struct {
	db *gorm.DB
}

func NewReviewGormRepository(db *gorm.DB) *ReviewGormRepository {
	return &ReviewGormRepository{db: db}
}

// uq_reviews_user_product に当たれば ErrDuplicate
func (r *ReviewGormRepository) Create(ctx context.Context, rv model.Review) (model.Review, error) {
	if err := r.db.WithContext(ctx).Create(&rv).Error; err != nil {
		return model.Review{}, translate(err)
	}
	return rv, nil
}

func (r *ReviewGormRepository) ListByProductID(ctx context.Context, productID int64, page, limit int) ([]model.Review, int64, error) {
	var list []model.Review
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Review{}).Where("product_id = ?", productID)
	if err := tx.Count(&total).Error; err != nil {
		return []model.Review{}, 0, translate(err)
	}

	if err := tx.Order("created_at desc").Order("id desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&list).Error; err != nil {
		return []model.Review{}, 0, translate(err)
	}
	return list, total, nil
}
