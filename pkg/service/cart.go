package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

type Carts struct {
	store   repository.Store
	catalog *Catalog
	events  events.Publisher
	logger  *zap.Logger
}

// cartFor returns the customer's cart, creating it for accounts made before
// registration set one up.
func cartFor(ctx context.Context, store repository.Store, customerID uint) (*models.Cart, error) {
	cart, err := store.GetCartByCustomer(ctx, customerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	cart = &models.Cart{CustomerID: customerID}
	if err := store.CreateCart(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

func (s *Carts) View(ctx context.Context, customerID uint) (*models.Cart, error) {
	var cart *models.Cart
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		cart, err = cartFor(ctx, tx, customerID)
		return err
	})
	return cart, err
}

// AddToCart adds quantity units of the product to the customer's cart,
// merging with an existing line.
func (s *Carts) AddToCart(ctx context.Context, customerID, productID uint, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	return s.store.Transaction(ctx, func(tx repository.Store) error {
		product, err := tx.GetProductForUpdate(ctx, productID)
		if err != nil {
			return notFound(err, "product")
		}
		if product.SellerID == customerID {
			return ErrOwnProduct
		}

		cart, err := cartFor(ctx, tx, customerID)
		if err != nil {
			return err
		}

		line, err := tx.GetCartLine(ctx, cart.ID, productID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			line = &models.ProductInCart{CartID: cart.ID, ProductID: productID}
		case err != nil:
			return fmt.Errorf("failed to load cart line: %w", err)
		}

		if !product.InStock(line.Quantity + quantity) {
			return fmt.Errorf("%w: %d of %q available", ErrInsufficientStock, product.Quantity, product.Name)
		}
		line.Quantity += quantity
		if err := tx.SaveCartLine(ctx, line); err != nil {
			return fmt.Errorf("failed to save cart line: %w", err)
		}
		return nil
	})
}

// RemoveFromCart drops the product's line. Missing lines are ignored.
func (s *Carts) RemoveFromCart(ctx context.Context, customerID, productID uint) error {
	cart, err := s.store.GetCartByCustomer(ctx, customerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	if _, err := s.store.DeleteCartLine(ctx, cart.ID, productID); err != nil {
		return fmt.Errorf("failed to remove cart line: %w", err)
	}
	return nil
}

// Checkout turns the cart into a pending order. Every line is placed or none
// is: stock is checked under a row lock, then decremented, and sold is
// incremented by the same amount.
func (s *Carts) Checkout(ctx context.Context, customerID uint) (*models.Order, error) {
	var order *models.Order
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		cart, err := tx.GetCartByCustomer(ctx, customerID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return fmt.Errorf("failed to load cart: %w", err)
		}
		if len(cart.Lines) == 0 {
			return ErrEmptyCart
		}

		order = &models.Order{CustomerID: customerID, Status: models.OrderStatusPending}
		products := make([]models.Product, 0, len(cart.Lines))
		for _, line := range cart.Lines {
			product, err := tx.GetProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return notFound(err, "product")
			}
			if !product.InStock(line.Quantity) {
				return fmt.Errorf("%w: %d of %q available", ErrInsufficientStock, product.Quantity, product.Name)
			}

			product.Quantity -= line.Quantity
			product.Sold += line.Quantity
			if err := tx.SaveProduct(ctx, product); err != nil {
				return fmt.Errorf("failed to update product %d: %w", product.ID, err)
			}
			order.Lines = append(order.Lines, models.ProductInOrder{ProductID: product.ID, Quantity: line.Quantity})
			products = append(products, *product)
		}

		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		for i := range order.Lines {
			order.Lines[i].Product = products[i]
		}

		for _, line := range cart.Lines {
			if _, err := tx.DeleteCartLine(ctx, cart.ID, line.ProductID); err != nil {
				return fmt.Errorf("failed to clear cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.catalog.invalidate(ctx, bestSellersKey)
	s.logger.Info("Order placed",
		zap.Uint("order_id", order.ID),
		zap.Uint("customer_id", customerID),
		zap.Int("lines", len(order.Lines)))
	s.events.Publish(&events.OrderPlaced{
		OrderID:    order.ID,
		CustomerID: customerID,
		Lines:      len(order.Lines),
		Total:      order.Total(),
	})
	return order, nil
}
