package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	gorm.Model
	Name          string          `gorm:"size:100;not null" json:"name"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Type          string          `gorm:"size:50;index;not null" json:"type"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	StockQuantity int             `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stockQuantity"`
}
