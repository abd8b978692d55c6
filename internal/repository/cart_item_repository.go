package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// cart_id + product_id はユニーク。数量は常に1以上
type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// INSERT ... ON CONFLICT で加算する。同時に追加されても1行にまとまる
	UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64) (model.CartItem, error)
	// 加算ではなく置き換え
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
}
