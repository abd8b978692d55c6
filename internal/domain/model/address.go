package model

import "time"

// 配送先住所
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//宛名
	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone    string `gorm:"type:varchar(30)" json:"phone"`

	Line1 string `gorm:"type:varchar(255);not null" json:"line1"`
	Line2 string `gorm:"type:varchar(255)" json:"line2"`
	City  string `gorm:"type:varchar(100);not null" json:"city"`

	//都道府県・州
	StateProvince string `gorm:"type:varchar(100)" json:"state_province"`
	Country       string `gorm:"type:varchar(100);not null" json:"country"`
	PostalCode    string `gorm:"type:varchar(20);not null" json:"postal_code"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
