package model

import "time"

const (
	MinRating = 1
	MaxRating = 5
)

// 商品レビュー。1ユーザー1商品につき1件
type Review struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:uq_reviews_user_product,priority:1" json:"user_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:uq_reviews_user_product,priority:2;index" json:"product_id"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5" json:"rating"`
	Comment   string    `gorm:"type:text" json:"comment"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
