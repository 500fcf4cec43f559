// Package service holds the storefront business rules. Handlers call into it
// with the acting user's id; it talks to the repository and publishes events.
package service

import (
	"errors"
	"fmt"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrOwnProduct         = errors.New("you cannot buy your own product")
	ErrInsufficientStock  = errors.New("not enough items in stock")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidRating      = errors.New("rating must be between 1 and 10")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidAccount     = errors.New("username and password are required")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidStatus      = errors.New("invalid order status")
)

// notFound maps repository misses onto ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

type Deps struct {
	Store  repository.Store
	Cache  repository.Cache
	Events events.Publisher
	Tokens *auth.TokenManager
	Media  MediaStore
	Logger *zap.Logger
}

// Services groups the storefront use cases.
type Services struct {
	Accounts *Accounts
	Catalog  *Catalog
	Cart     *Carts
	Orders   *Orders
	Reviews  *Reviews
}

func New(deps Deps) *Services {
	if deps.Cache == nil {
		deps.Cache = repository.NopCache{}
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	catalog := &Catalog{store: deps.Store, cache: deps.Cache, events: deps.Events, media: deps.Media, logger: deps.Logger.Named("catalog")}
	return &Services{
		Accounts: &Accounts{store: deps.Store, tokens: deps.Tokens, events: deps.Events, logger: deps.Logger.Named("accounts")},
		Catalog:  catalog,
		Cart:     &Carts{store: deps.Store, catalog: catalog, events: deps.Events, logger: deps.Logger.Named("cart")},
		Orders:   &Orders{store: deps.Store, events: deps.Events, logger: deps.Logger.Named("orders")},
		Reviews:  &Reviews{store: deps.Store, events: deps.Events, logger: deps.Logger.Named("reviews")},
	}
}
