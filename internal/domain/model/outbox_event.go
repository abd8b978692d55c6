package model

import "time"

const TopicOrderCreated = "order.created"

// チェックアウトと同じTxで書き込み、リレーがKafkaへ送る
type OutboxEvent struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID      string     `gorm:"type:uuid;not null;uniqueIndex" json:"event_id"`
	EventType    string     `gorm:"type:varchar(100);not null" json:"event_type"`
	AggregateKey string     `gorm:"type:varchar(100);not null" json:"aggregate_key"`
	Payload      []byte     `gorm:"type:jsonb;not null" json:"payload"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	SentAt       *time.Time `gorm:"index" json:"sent_at"`
}

// order.created のペイロード
type OrderCreatedPayload struct {
	OrderID     int64                 `json:"order_id"`
	UserID      int64                 `json:"user_id"`
	TotalAmount string                `json:"total_amount"`
	Items       []OrderCreatedPayItem `json:"items"`
	CreatedAt   time.Time             `json:"created_at"`
}

type OrderCreatedPayItem struct {
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}
