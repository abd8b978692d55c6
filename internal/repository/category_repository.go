package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CategoryRepository interface {
	// 名前順
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	// 同名があれば ErrDuplicate
	Create(ctx context.Context, c model.Category) (model.Category, error)
}
