package models

import (
	"time"

	"github.com/example/storefront/pkg/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"type:varchar(255);not null" json:"name"`
	Slug string `gorm:"type:varchar(255);uniqueIndex" json:"slug"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeSave(*gorm.DB) error {
	if c.Slug == "" {
		c.Slug = slug.Make(c.Name)
	}
	return nil
}

type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Quantity    int             `gorm:"not null;check:quantity >= 0" json:"quantity"`
	Description string          `gorm:"type:text" json:"description"`
	Image       string          `gorm:"type:varchar(255)" json:"image"`
	CategoryID  uint            `gorm:"index;not null" json:"category_id"`
	Category    Category        `gorm:"constraint:OnDelete:CASCADE" json:"category"`
	SellerID    uint            `gorm:"not null;uniqueIndex:idx_products_seller_slug" json:"seller_id"`
	Seller      User            `gorm:"foreignKey:SellerID;constraint:OnDelete:CASCADE" json:"seller"`
	CreatedAt   time.Time       `json:"created_at"`
	Sold        int             `gorm:"not null;default:0" json:"sold"`
	Slug        string          `gorm:"type:varchar(255);index;uniqueIndex:idx_products_seller_slug" json:"slug"`
}

func (Product) TableName() string {
	return "products"
}

// RefreshSlug derives the slug from the current name. It runs on every save.
func (p *Product) RefreshSlug() {
	p.Slug = slug.Make(p.Name)
}

func (p *Product) BeforeSave(*gorm.DB) error {
	p.RefreshSlug()
	return nil
}

func (p *Product) InStock(quantity int) bool {
	return quantity <= p.Quantity
}
