package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 注文明細は作成後に書き換えない
type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 一覧画面用。注文IDごとにまとめて返す（明細の無い注文はキーなし）
	ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error)
}
