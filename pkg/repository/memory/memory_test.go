package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store) (models.User, models.Category) {
	t.Helper()
	ctx := context.Background()

	seller := models.User{Username: "seller"}
	require.NoError(t, s.CreateUser(ctx, &seller))
	category := models.Category{Name: "Kitchen"}
	require.NoError(t, s.CreateCategory(ctx, &category))
	return seller, category
}

func addProduct(t *testing.T, s *Store, seller models.User, category models.Category, name string, sold int) models.Product {
	t.Helper()
	p := models.Product{
		Name:        name,
		Description: "A " + name,
		Price:       decimal.NewFromInt(5),
		Quantity:    10,
		CategoryID:  category.ID,
		SellerID:    seller.ID,
		Sold:        sold,
	}
	require.NoError(t, s.SaveProduct(context.Background(), &p))
	return p
}

func TestUniqueUsername(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "bob"}))
	err := s.CreateUser(ctx, &models.User{Username: "bob"})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))
}

func TestSaveProductRegeneratesSlug(t *testing.T) {
	s := New()
	seller, category := seed(t, s)
	p := addProduct(t, s, seller, category, "Blue Mug", 0)
	assert.Equal(t, "blue-mug", p.Slug)

	p.Name = "Navy Mug"
	require.NoError(t, s.SaveProduct(context.Background(), &p))

	got, err := s.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "navy-mug", got.Slug)
	assert.Equal(t, "seller", got.Seller.Username)
	assert.Equal(t, "Kitchen", got.Category.Name)
}

func TestProductSlugUniquePerSeller(t *testing.T) {
	s := New()
	ctx := context.Background()
	seller, category := seed(t, s)
	addProduct(t, s, seller, category, "Mug", 0)

	dup := models.Product{Name: "mug", CategoryID: category.ID, SellerID: seller.ID}
	assert.True(t, errors.Is(s.SaveProduct(ctx, &dup), repository.ErrDuplicate))

	other := models.User{Username: "other"}
	require.NoError(t, s.CreateUser(ctx, &other))
	theirs := models.Product{Name: "Mug", CategoryID: category.ID, SellerID: other.ID}
	require.NoError(t, s.SaveProduct(ctx, &theirs))

	bySlug, err := s.GetProductBySlug(ctx, "mug")
	require.NoError(t, err)
	assert.Equal(t, seller.ID, bySlug.SellerID)
}

func TestListProducts(t *testing.T) {
	s := New()
	seller, category := seed(t, s)
	addProduct(t, s, seller, category, "Teapot", 3)
	addProduct(t, s, seller, category, "Mug", 9)
	addProduct(t, s, seller, category, "Spoon", 1)

	ctx := context.Background()

	best, err := s.ListProducts(ctx, repository.ProductFilter{BestSelling: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, best, 2)
	assert.Equal(t, "Mug", best[0].Name)
	assert.Equal(t, "Teapot", best[1].Name)

	found, err := s.ListProducts(ctx, repository.ProductFilter{Search: "TEA"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Teapot", found[0].Name)

	found, err = s.ListProducts(ctx, repository.ProductFilter{Search: "a spoon"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Spoon", found[0].Name)
}

func TestTransactionRollback(t *testing.T) {
	s := New()
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.CreateUser(ctx, &models.User{Username: "ghost"}))
		return tx.Transaction(ctx, func(inner repository.Store) error {
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransactionIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	boom := errors.New("boom")
	written := make(chan error, 1)
	err := s.Transaction(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.CreateUser(ctx, &models.User{Username: "ghost"}))

		_, err := s.GetUserByUsername(ctx, "ghost")
		assert.ErrorIs(t, err, repository.ErrNotFound, "uncommitted rows are invisible")

		go func() { written <- s.CreateUser(ctx, &models.User{Username: "carol"}) }()
		time.Sleep(10 * time.Millisecond)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, <-written)

	carol, err := s.GetUserByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.NotZero(t, carol.ID)
	_, err = s.GetUserByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransactionCommit(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Transaction(ctx, func(tx repository.Store) error {
		return tx.CreateUser(ctx, &models.User{Username: "dave"})
	}))
	require.NoError(t, s.CreateUser(ctx, &models.User{Username: "erin"}))

	dave, err := s.GetUserByUsername(ctx, "dave")
	require.NoError(t, err)
	erin, err := s.GetUserByUsername(ctx, "erin")
	require.NoError(t, err)
	assert.NotEqual(t, dave.ID, erin.ID)
}

func TestCartLines(t *testing.T) {
	s := New()
	ctx := context.Background()
	seller, category := seed(t, s)
	p := addProduct(t, s, seller, category, "Mug", 0)

	buyer := models.User{Username: "buyer"}
	require.NoError(t, s.CreateUser(ctx, &buyer))
	cart := models.Cart{CustomerID: buyer.ID}
	require.NoError(t, s.CreateCart(ctx, &cart))
	assert.True(t, errors.Is(s.CreateCart(ctx, &models.Cart{CustomerID: buyer.ID}), repository.ErrDuplicate))
	assert.Equal(t, 1, s.CountCarts(buyer.ID))

	require.NoError(t, s.SaveCartLine(ctx, &models.ProductInCart{CartID: cart.ID, ProductID: p.ID, Quantity: 2}))
	dup := &models.ProductInCart{CartID: cart.ID, ProductID: p.ID, Quantity: 1}
	assert.True(t, errors.Is(s.SaveCartLine(ctx, dup), repository.ErrDuplicate))

	got, err := s.GetCartByCustomer(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "Mug", got.Lines[0].Product.Name)
	assert.True(t, decimal.NewFromInt(10).Equal(got.Total()))

	removed, err := s.DeleteCartLine(ctx, cart.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.DeleteCartLine(ctx, cart.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestOrders(t *testing.T) {
	s := New()
	ctx := context.Background()
	seller, category := seed(t, s)
	p := addProduct(t, s, seller, category, "Mug", 0)

	order := models.Order{CustomerID: seller.ID, Lines: []models.ProductInOrder{{ProductID: p.ID, Quantity: 3}}}
	require.NoError(t, s.CreateOrder(ctx, &order))
	assert.Equal(t, models.OrderStatusPending, order.Status)

	require.NoError(t, s.UpdateOrderStatus(ctx, order.ID, models.OrderStatusProcessing))
	orders, err := s.ListOrdersByCustomer(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.OrderStatusProcessing, orders[0].Status)
	assert.True(t, decimal.NewFromInt(15).Equal(orders[0].Total()))

	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, 999, models.OrderStatusDelivered), repository.ErrNotFound)
}
