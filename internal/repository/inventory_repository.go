package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// products.stock を動かす操作はここに集める
type InventoryRepository interface {
	// 管理者による在庫設定
	SetStock(ctx context.Context, productID int64, newStock int64) error
	// stock >= qty のときだけ1文で減らす。足りなければ false
	ReserveStock(ctx context.Context, productID int64, qty int64) (bool, error)
	// キャンセル時の戻し。論理削除された商品にも戻す
	RestoreStock(ctx context.Context, productID int64, qty int64) error

	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
