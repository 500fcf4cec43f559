package service

import (
	"context"
	"fmt"

	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

type Orders struct {
	store  repository.Store
	events events.Publisher
	logger *zap.Logger
}

// List returns the customer's orders, newest first.
func (s *Orders) List(ctx context.Context, customerID uint) ([]models.Order, error) {
	orders, err := s.store.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

func (s *Orders) Get(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, notFound(err, "order")
	}
	return order, nil
}

// UpdateStatus moves an order forward one step.
func (s *Orders) UpdateStatus(ctx context.Context, id uint, status string) (*models.Order, error) {
	next, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var order *models.Order
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		order, err = tx.GetOrder(ctx, id)
		if err != nil {
			return notFound(err, "order")
		}
		if !order.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidStatus, order.Status, next)
		}
		if err := tx.UpdateOrderStatus(ctx, id, next); err != nil {
			return notFound(err, "order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = next
	s.logger.Info("Order status updated",
		zap.Uint("order_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(next)))
	s.events.Publish(&events.OrderStatusChanged{OrderID: id, CustomerID: order.CustomerID, From: previous, To: next})
	return order, nil
}
