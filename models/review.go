package models

import (
	"github.com/shopspring/decimal"
	"time"
)

type Review struct {
	UserID    uint `gorm:"primaryKey"`
	User      User
	ProductID uint `gorm:"primaryKey"`
	Product   Product
	Content   string          `gorm:"type:text;not null"`
	Rating    decimal.Decimal `gorm:"type:decimal(2,1);not null"`
	CreatedAt time.Time
}
