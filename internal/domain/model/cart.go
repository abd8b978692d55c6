package model

import "time"

type CartStatus string

const (
	CartStatusActive     CartStatus = "ACTIVE"
	CartStatusCheckedOut CartStatus = "CHECKED_OUT"
)

// 1ユーザーにつきACTIVEは1つ（部分ユニークインデックスで保証）
type Cart struct {
	ID     int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64      `gorm:"not null;index;uniqueIndex:uq_carts_user_active,where:status = 'ACTIVE'" json:"user_id"`
	Status CartStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	// チェックアウトで確定した時刻。ACTIVEの間はnil
	CheckedOutAt *time.Time `json:"checked_out_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (c Cart) IsActive() bool {
	return c.Status == CartStatusActive
}
