package models

import "gorm.io/gorm"

// 每位使用者只有一台購物車
type Cart struct {
	gorm.Model
	UserID    uint       `gorm:"uniqueIndex;not null"`
	CartItems []CartItem `gorm:"foreignKey:CartID"`
}
