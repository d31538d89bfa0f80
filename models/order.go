package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderStatuses 為管理員可設定的全部狀態
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

type Order struct {
	gorm.Model
	UserID          uint `gorm:"index;not null"`
	User            User
	OrderItems      []OrderItem
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Recipient       string          `gorm:"size:100;not null"`
	ShippingAddress string          `gorm:"type:text;not null"`
	Status          OrderStatus     `gorm:"size:20;index;not null;default:pending"`
}
