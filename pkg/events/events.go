// Package events fans storefront domain events out to background actors.
package events

import (
	"fmt"
	"strconv"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

const service = "storefront"

// Event is anything that can be recorded in the audit log.
type Event interface {
	AuditLog() *repository.AuditLog
}

// Publisher accepts events without blocking the caller.
type Publisher interface {
	Publish(event Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(Event) {}

func id(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

type UserRegistered struct {
	UserID   uint
	Username string
}

func (e *UserRegistered) AuditLog() *repository.AuditLog {
	return &repository.AuditLog{
		Service:  service,
		Action:   "user.registered",
		EntityID: "user:" + id(e.UserID),
		ActorID:  e.UserID,
		Data:     bson.M{"username": e.Username},
	}
}

type ProductAdded struct {
	ProductID uint
	SellerID  uint
	Name      string
	Price     decimal.Decimal
}

func (e *ProductAdded) AuditLog() *repository.AuditLog {
	return &repository.AuditLog{
		Service:  service,
		Action:   "product.added",
		EntityID: "product:" + id(e.ProductID),
		ActorID:  e.SellerID,
		Data:     bson.M{"name": e.Name, "price": e.Price.StringFixed(2)},
	}
}

type OrderPlaced struct {
	OrderID    uint
	CustomerID uint
	Lines      int
	Total      decimal.Decimal
}

func (e *OrderPlaced) AuditLog() *repository.AuditLog {
	return &repository.AuditLog{
		Service:  service,
		Action:   "order.placed",
		EntityID: "order:" + id(e.OrderID),
		ActorID:  e.CustomerID,
		Data:     bson.M{"lines": e.Lines, "total": e.Total.StringFixed(2)},
	}
}

type OrderStatusChanged struct {
	OrderID    uint
	CustomerID uint
	From       models.OrderStatus
	To         models.OrderStatus
}

func (e *OrderStatusChanged) AuditLog() *repository.AuditLog {
	return &repository.AuditLog{
		Service:  service,
		Action:   "order.status_changed",
		EntityID: "order:" + id(e.OrderID),
		ActorID:  e.CustomerID,
		Data:     bson.M{"from": string(e.From), "to": string(e.To)},
	}
}

type ReviewSaved struct {
	ReviewID   uint
	ProductID  uint
	CustomerID uint
	Rating     int
}

func (e *ReviewSaved) AuditLog() *repository.AuditLog {
	return &repository.AuditLog{
		Service:  service,
		Action:   "review.saved",
		EntityID: "product:" + id(e.ProductID),
		ActorID:  e.CustomerID,
		Data:     bson.M{"review_id": e.ReviewID, "rating": e.Rating},
	}
}

func describe(e Event) string {
	return fmt.Sprintf("%T", e)
}
