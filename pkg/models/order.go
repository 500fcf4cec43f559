package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusDelivered  OrderStatus = "Delivered"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusDelivered:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("invalid order status %q", s)
}

// CanTransitionTo reports whether an order may move from s to next.
// Orders only move forward: Pending -> Processing -> Delivered.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return next == OrderStatusProcessing
	case OrderStatusProcessing:
		return next == OrderStatusDelivered
	}
	return false
}

type Order struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Status     OrderStatus      `gorm:"type:varchar(100);not null;default:'Pending'" json:"status"`
	CustomerID uint             `gorm:"index;not null" json:"customer_id"`
	Customer   User             `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
	Lines      []ProductInOrder `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

func (o Order) String() string {
	return fmt.Sprintf("Order #%d: %s", o.ID, o.Status)
}

type ProductInOrder struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"index;not null" json:"order_id"`
	ProductID uint    `gorm:"index;not null" json:"product_id"`
	Product   Product `gorm:"constraint:OnDelete:CASCADE" json:"product"`
	Quantity  int     `gorm:"not null;default:1" json:"quantity"`
}

func (ProductInOrder) TableName() string {
	return "product_in_orders"
}

// Subtotal uses the product's current price; lines do not snapshot prices.
func (l ProductInOrder) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
