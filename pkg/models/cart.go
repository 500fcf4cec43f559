package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart belongs to exactly one user and lives as long as the user does.
type Cart struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CustomerID uint            `gorm:"uniqueIndex;not null" json:"customer_id"`
	Customer   User            `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"-"`
	Lines      []ProductInCart `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Cart) TableName() string {
	return "carts"
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// TotalProductsQuantity counts distinct lines, not units.
func (c *Cart) TotalProductsQuantity() int {
	return len(c.Lines)
}

type ProductInCart struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	CartID    uint    `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uint    `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Product   Product `gorm:"constraint:OnDelete:CASCADE" json:"product"`
	Quantity  int     `gorm:"not null;default:1" json:"quantity"`
}

func (ProductInCart) TableName() string {
	return "product_in_carts"
}

func (l ProductInCart) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
