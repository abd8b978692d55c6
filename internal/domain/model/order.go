package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// 許可される遷移。Deliveredと Cancelledは終端
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, st := range orderTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// 作成後は明細・金額を書き換えない。変わるのはStatusだけ
type Order struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index;uniqueIndex:uq_orders_user_idem" json:"user_id"`
	//元のカート（弱参照）
	CartID *int64 `gorm:"index" json:"cart_id"`
	//配送先（任意）
	AddressID      *int64          `json:"address_id"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	IdempotencyKey string          `gorm:"type:varchar(255);not null;uniqueIndex:uq_orders_user_idem" json:"-"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
