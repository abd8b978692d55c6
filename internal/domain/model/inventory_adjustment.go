package model

import "time"

// 管理者が在庫数を設定した記録。チェックアウトでの減算はここに残さない
type InventoryAdjustment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64     `gorm:"not null;index" json:"product_id"`
	AdminUserID int64     `gorm:"not null;index" json:"admin_user_id"`
	StockBefore int64     `gorm:"not null" json:"stock_before"`
	StockAfter  int64     `gorm:"not null;check:stock_after >= 0" json:"stock_after"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func NewStockAdjustment(productID, adminUserID, before, after int64, reason string) InventoryAdjustment {
	return InventoryAdjustment{
		ProductID:   productID,
		AdminUserID: adminUserID,
		StockBefore: before,
		StockAfter:  after,
		Delta:       after - before,
		Reason:      reason,
	}
}
