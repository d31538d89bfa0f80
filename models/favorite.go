package models

import "time"

type Favorite struct {
	UserID    uint `gorm:"primaryKey"`
	ProductID uint `gorm:"primaryKey"`
	Product   Product
	CreatedAt time.Time
}
