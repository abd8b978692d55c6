package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーのACTIVEカートを取得し、無ければ作成
// 同時に初回追加が来ても uq_carts_user_active でACTIVEは1つになる
func (r *CartGormRepository) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for attempt := 0; attempt < 3; attempt++ {
		cart := model.Cart{
			UserID: userID,
			Status: model.CartStatusActive,
		}

		res := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&cart)
		if res.Error != nil {
			return model.Cart{}, translate(res.Error)
		}
		if res.RowsAffected == 1 {
			return cart, nil
		}

		//既にある → 読み直す
		existing, err := r.FindActiveByUserID(ctx, userID)
		if err == nil {
			return existing, nil
		}
		// 直前にチェックアウトされた場合はもう一度作る
		if !errors.Is(err, repo.ErrNotFound) {
			return model.Cart{}, err
		}
	}
	return model.Cart{}, repo.ErrConflict
}

// ユーザーのACTIVEカートを取得
func (r *CartGormRepository) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.CartStatusActive).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

// ACTIVEカートを行ロック付きで取得
func (r *CartGormRepository) LockActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var cart model.Cart

	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND status = ?", userID, model.CartStatusActive).
		First(&cart).Error
	if err != nil {
		return model.Cart{}, translate(err)
	}
	return cart, nil
}

// 条件付きUPDATE。別のTxが先に確定していたら0行になる
func (r *CartGormRepository) MarkCheckedOut(ctx context.Context, cartID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ? AND status = ?", cartID, model.CartStatusActive).
		Updates(map[string]any{
			"status":         model.CartStatusCheckedOut,
			"checked_out_at": time.Now(),
		})

	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrConflict
	}
	return nil
}
