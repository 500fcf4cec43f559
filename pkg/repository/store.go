package repository

import (
	"context"
	"errors"

	"github.com/example/storefront/pkg/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// ProductFilter narrows ListProducts. Zero values mean "no constraint".
type ProductFilter struct {
	// Search matches name or description, case-insensitively.
	Search     string
	CategoryID uint
	SellerID   uint
	// BestSelling orders by sold counter, highest first.
	BestSelling bool
	Limit       int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateProfile(ctx context.Context, profile *models.Profile) error
	GetProfile(ctx context.Context, userID uint) (*models.Profile, error)
}

type CatalogRepository interface {
	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id uint) (*models.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)

	// SaveProduct inserts or updates a product. The slug is regenerated from
	// the name on every call.
	SaveProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	// GetProductForUpdate locks the product row until the surrounding
	// transaction ends.
	GetProductForUpdate(ctx context.Context, id uint) (*models.Product, error)
	// GetProductBySlug returns the oldest product with the slug; slugs are
	// only unique per seller.
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error)
}

type CartRepository interface {
	CreateCart(ctx context.Context, cart *models.Cart) error
	// GetCartByCustomer returns the cart with its lines and their products.
	GetCartByCustomer(ctx context.Context, customerID uint) (*models.Cart, error)
	GetCartLine(ctx context.Context, cartID, productID uint) (*models.ProductInCart, error)
	SaveCartLine(ctx context.Context, line *models.ProductInCart) error
	// DeleteCartLine reports whether a line was removed.
	DeleteCartLine(ctx context.Context, cartID, productID uint) (bool, error)
}

type OrderRepository interface {
	// CreateOrder inserts the order and its lines.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uint) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID uint) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, id uint, status models.OrderStatus) error
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *models.Review) error
	// ListReviewsByProduct returns reviews oldest first, with customers loaded.
	ListReviewsByProduct(ctx context.Context, productID uint) ([]models.Review, error)
}

// Store is the full persistence surface used by the service layer.
type Store interface {
	UserRepository
	CatalogRepository
	CartRepository
	OrderRepository
	ReviewRepository

	// Transaction runs fn against a store bound to a single transaction.
	// Returning an error from fn rolls every write back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
	Close() error
}
