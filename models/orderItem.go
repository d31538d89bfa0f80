package models

import (
	"github.com/shopspring/decimal"
	"time"
)

// Price 為下單當下凍結的單價，與商品目前售價無關
type OrderItem struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	OrderID   uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
}

func (item OrderItem) Subtotal() decimal.Decimal {
	return item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}
