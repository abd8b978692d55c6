package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type ReviewRepository interface {
	// 同じユーザー・商品のレビューが既にあれば ErrDuplicate
	Create(ctx context.Context, r model.Review) (model.Review, error)
	// 新しい順
	ListByProductID(ctx context.Context, productID int64, page, limit int) ([]model.Review, int64, error)
}
