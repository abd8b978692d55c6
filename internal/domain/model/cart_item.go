package model

import "time"

// カートの明細
// 価格は持たない。合計は常に現在の商品価格で計算する。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"not null;uniqueIndex:uq_cart_items_cart_product" json:"cart_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:uq_cart_items_cart_product;index" json:"product_id"`
	Quantity  int64     `gorm:"not null;check:quantity > 0" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
