package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 一覧（公開商品のみ）
type ProductListQuery struct {
	Page  int
	Limit int
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)

	// 行ロック付きで取得（SELECT ... FOR UPDATE）。Tx内でのみ使う
	GetForUpdate(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
}
