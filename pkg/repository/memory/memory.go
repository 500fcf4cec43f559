// Package memory is an in-process implementation of repository.Store. It is
// safe for concurrent use and backs the tests and the "memory" database driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

type tables struct {
	nextID     uint
	users      map[uint]models.User
	profiles   map[uint]models.Profile
	categories map[uint]models.Category
	products   map[uint]models.Product
	carts      map[uint]models.Cart
	cartLines  map[uint]models.ProductInCart
	orders     map[uint]models.Order
	orderLines map[uint]models.ProductInOrder
	reviews    map[uint]models.Review
}

func newTables() tables {
	return tables{
		nextID:     1,
		users:      make(map[uint]models.User),
		profiles:   make(map[uint]models.Profile),
		categories: make(map[uint]models.Category),
		products:   make(map[uint]models.Product),
		carts:      make(map[uint]models.Cart),
		cartLines:  make(map[uint]models.ProductInCart),
		orders:     make(map[uint]models.Order),
		orderLines: make(map[uint]models.ProductInOrder),
		reviews:    make(map[uint]models.Review),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t tables) clone() tables {
	return tables{
		nextID:     t.nextID,
		users:      cloneMap(t.users),
		profiles:   cloneMap(t.profiles),
		categories: cloneMap(t.categories),
		products:   cloneMap(t.products),
		carts:      cloneMap(t.carts),
		cartLines:  cloneMap(t.cartLines),
		orders:     cloneMap(t.orders),
		orderLines: cloneMap(t.orderLines),
		reviews:    cloneMap(t.reviews),
	}
}

// Store keeps rows as values; callers always receive copies.
type Store struct {
	// txMu is nil on the private copy handed to a transaction callback.
	txMu *sync.Mutex
	mu   sync.RWMutex
	data tables
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{txMu: new(sync.Mutex), data: newTables(), now: time.Now}
}

func (s *Store) id() uint {
	id := s.data.nextID
	s.data.nextID++
	return id
}

// lock takes the write lock. Writes outside a transaction also wait for the
// open transaction, so a commit never overwrites them.
func (s *Store) lock() func() {
	if s.txMu != nil {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if s.txMu != nil {
			s.txMu.Unlock()
		}
	}
}

// Transaction serialises transactions. fn works on a private copy of the
// tables that replaces the committed state only when fn succeeds; readers
// never see uncommitted rows. Nested transactions join the outer one.
func (s *Store) Transaction(_ context.Context, fn func(tx repository.Store) error) error {
	if s.txMu == nil {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	tx := &Store{data: s.data.clone(), now: s.now}
	s.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Users

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	defer s.lock()()

	for _, u := range s.data.users {
		if u.Username == user.Username {
			return fmt.Errorf("%w: username %q", repository.ErrDuplicate, user.Username)
		}
	}
	user.ID = s.id()
	user.CreatedAt = s.now()
	user.UpdatedAt = user.CreatedAt
	s.data.users[user.ID] = *user
	return nil
}

func (s *Store) GetUser(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.data.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.data.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) CreateProfile(_ context.Context, profile *models.Profile) error {
	defer s.lock()()

	if _, ok := s.data.users[profile.UserID]; !ok {
		return fmt.Errorf("profile user %d: %w", profile.UserID, repository.ErrNotFound)
	}
	if _, ok := s.data.profiles[profile.UserID]; ok {
		return fmt.Errorf("%w: profile for user %d", repository.ErrDuplicate, profile.UserID)
	}
	if profile.Image == "" {
		profile.Image = models.DefaultProfileImage
	}
	stored := *profile
	stored.User = models.User{}
	s.data.profiles[profile.UserID] = stored
	return nil
}

func (s *Store) GetProfile(_ context.Context, userID uint) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.data.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	profile.User = s.data.users[userID]
	return &profile, nil
}

// Catalog

func (s *Store) CreateCategory(_ context.Context, category *models.Category) error {
	defer s.lock()()

	if err := category.BeforeSave(nil); err != nil {
		return err
	}
	for _, c := range s.data.categories {
		if c.Slug == category.Slug {
			return fmt.Errorf("%w: category slug %q", repository.ErrDuplicate, category.Slug)
		}
	}
	category.ID = s.id()
	s.data.categories[category.ID] = *category
	return nil
}

func (s *Store) GetCategory(_ context.Context, id uint) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.data.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &category, nil
}

func (s *Store) GetCategoryBySlug(_ context.Context, slug string) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.data.categories {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) ListCategories(context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]models.Category, 0, len(s.data.categories))
	for _, c := range s.data.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Name == categories[j].Name {
			return categories[i].ID < categories[j].ID
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (s *Store) SaveProduct(_ context.Context, product *models.Product) error {
	defer s.lock()()

	product.RefreshSlug()

	if _, ok := s.data.categories[product.CategoryID]; !ok {
		return fmt.Errorf("product category %d: %w", product.CategoryID, repository.ErrNotFound)
	}
	if _, ok := s.data.users[product.SellerID]; !ok {
		return fmt.Errorf("product seller %d: %w", product.SellerID, repository.ErrNotFound)
	}
	for _, p := range s.data.products {
		if p.ID != product.ID && p.SellerID == product.SellerID && p.Slug == product.Slug {
			return fmt.Errorf("%w: product slug %q for seller %d", repository.ErrDuplicate, product.Slug, product.SellerID)
		}
	}

	if product.ID == 0 {
		product.ID = s.id()
	} else if _, ok := s.data.products[product.ID]; !ok {
		return repository.ErrNotFound
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = s.now()
	}

	stored := *product
	stored.Category = models.Category{}
	stored.Seller = models.User{}
	s.data.products[product.ID] = stored
	return nil
}

// hydrateProduct fills relations; callers hold s.mu.
func (s *Store) hydrateProduct(p models.Product) models.Product {
	p.Category = s.data.categories[p.CategoryID]
	p.Seller = s.data.users[p.SellerID]
	return p
}

func (s *Store) GetProduct(_ context.Context, id uint) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.data.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = s.hydrateProduct(p)
	return &p, nil
}

// GetProductForUpdate needs no row lock: transactions are already serialised.
func (s *Store) GetProductForUpdate(ctx context.Context, id uint) (*models.Product, error) {
	return s.GetProduct(ctx, id)
}

func (s *Store) GetProductBySlug(_ context.Context, slug string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.Product
	for _, p := range s.data.products {
		if p.Slug == slug && (found == nil || p.ID < found.ID) {
			p := p
			found = &p
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	hydrated := s.hydrateProduct(*found)
	return &hydrated, nil
}

func (s *Store) ListProducts(_ context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term := strings.ToLower(filter.Search)
	products := make([]models.Product, 0)
	for _, p := range s.data.products {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Name), term) &&
			!strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if filter.CategoryID != 0 && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.SellerID != 0 && p.SellerID != filter.SellerID {
			continue
		}
		products = append(products, s.hydrateProduct(p))
	}

	sort.Slice(products, func(i, j int) bool {
		if filter.BestSelling && products[i].Sold != products[j].Sold {
			return products[i].Sold > products[j].Sold
		}
		return products[i].ID < products[j].ID
	})
	if filter.Limit > 0 && len(products) > filter.Limit {
		products = products[:filter.Limit]
	}
	return products, nil
}

// Carts

func (s *Store) CreateCart(_ context.Context, cart *models.Cart) error {
	defer s.lock()()

	if _, ok := s.data.users[cart.CustomerID]; !ok {
		return fmt.Errorf("cart customer %d: %w", cart.CustomerID, repository.ErrNotFound)
	}
	for _, c := range s.data.carts {
		if c.CustomerID == cart.CustomerID {
			return fmt.Errorf("%w: cart for customer %d", repository.ErrDuplicate, cart.CustomerID)
		}
	}
	cart.ID = s.id()
	cart.CreatedAt = s.now()
	cart.UpdatedAt = cart.CreatedAt
	stored := *cart
	stored.Lines = nil
	stored.Customer = models.User{}
	s.data.carts[cart.ID] = stored
	return nil
}

func (s *Store) GetCartByCustomer(_ context.Context, customerID uint) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.data.carts {
		if c.CustomerID != customerID {
			continue
		}
		for _, line := range s.data.cartLines {
			if line.CartID == c.ID {
				line.Product = s.data.products[line.ProductID]
				c.Lines = append(c.Lines, line)
			}
		}
		sort.Slice(c.Lines, func(i, j int) bool { return c.Lines[i].ID < c.Lines[j].ID })
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

// CountCarts reports how many carts a customer owns.
func (s *Store) CountCarts(customerID uint) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, c := range s.data.carts {
		if c.CustomerID == customerID {
			n++
		}
	}
	return n
}

func (s *Store) GetCartLine(_ context.Context, cartID, productID uint) (*models.ProductInCart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, line := range s.data.cartLines {
		if line.CartID == cartID && line.ProductID == productID {
			return &line, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) SaveCartLine(_ context.Context, line *models.ProductInCart) error {
	defer s.lock()()

	if _, ok := s.data.carts[line.CartID]; !ok {
		return fmt.Errorf("cart %d: %w", line.CartID, repository.ErrNotFound)
	}
	if _, ok := s.data.products[line.ProductID]; !ok {
		return fmt.Errorf("product %d: %w", line.ProductID, repository.ErrNotFound)
	}
	for _, l := range s.data.cartLines {
		if l.ID != line.ID && l.CartID == line.CartID && l.ProductID == line.ProductID {
			return fmt.Errorf("%w: cart %d already holds product %d", repository.ErrDuplicate, line.CartID, line.ProductID)
		}
	}
	if line.ID == 0 {
		line.ID = s.id()
	}
	stored := *line
	stored.Product = models.Product{}
	s.data.cartLines[line.ID] = stored
	return nil
}

func (s *Store) DeleteCartLine(_ context.Context, cartID, productID uint) (bool, error) {
	defer s.lock()()

	for id, line := range s.data.cartLines {
		if line.CartID == cartID && line.ProductID == productID {
			delete(s.data.cartLines, id)
			return true, nil
		}
	}
	return false, nil
}

// Orders

func (s *Store) CreateOrder(_ context.Context, order *models.Order) error {
	defer s.lock()()

	if _, ok := s.data.users[order.CustomerID]; !ok {
		return fmt.Errorf("order customer %d: %w", order.CustomerID, repository.ErrNotFound)
	}
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	order.ID = s.id()
	order.CreatedAt = s.now()
	order.UpdatedAt = order.CreatedAt

	for i := range order.Lines {
		line := &order.Lines[i]
		if _, ok := s.data.products[line.ProductID]; !ok {
			return fmt.Errorf("order product %d: %w", line.ProductID, repository.ErrNotFound)
		}
		line.ID = s.id()
		line.OrderID = order.ID
		stored := *line
		stored.Product = models.Product{}
		s.data.orderLines[line.ID] = stored
	}

	stored := *order
	stored.Lines = nil
	stored.Customer = models.User{}
	s.data.orders[order.ID] = stored
	return nil
}

func (s *Store) hydrateOrder(o models.Order) models.Order {
	o.Lines = nil
	for _, line := range s.data.orderLines {
		if line.OrderID == o.ID {
			line.Product = s.data.products[line.ProductID]
			o.Lines = append(o.Lines, line)
		}
	}
	sort.Slice(o.Lines, func(i, j int) bool { return o.Lines[i].ID < o.Lines[j].ID })
	return o
}

func (s *Store) GetOrder(_ context.Context, id uint) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.data.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o = s.hydrateOrder(o)
	return &o, nil
}

func (s *Store) ListOrdersByCustomer(_ context.Context, customerID uint) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]models.Order, 0)
	for _, o := range s.data.orders {
		if o.CustomerID == customerID {
			orders = append(orders, s.hydrateOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return orders, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id uint, status models.OrderStatus) error {
	defer s.lock()()

	o, ok := s.data.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = s.now()
	s.data.orders[id] = o
	return nil
}

// Reviews

func (s *Store) CreateReview(_ context.Context, review *models.Review) error {
	defer s.lock()()

	if _, ok := s.data.users[review.CustomerID]; !ok {
		return fmt.Errorf("review customer %d: %w", review.CustomerID, repository.ErrNotFound)
	}
	if _, ok := s.data.products[review.ProductID]; !ok {
		return fmt.Errorf("review product %d: %w", review.ProductID, repository.ErrNotFound)
	}
	if !models.ValidRating(review.Rating) {
		return fmt.Errorf("rating %d violates check constraint", review.Rating)
	}
	review.ID = s.id()
	review.CreatedAt = s.now()
	review.UpdatedAt = review.CreatedAt
	stored := *review
	stored.Customer = models.User{}
	stored.Product = models.Product{}
	s.data.reviews[review.ID] = stored
	return nil
}

func (s *Store) ListReviewsByProduct(_ context.Context, productID uint) ([]models.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reviews := make([]models.Review, 0)
	for _, r := range s.data.reviews {
		if r.ProductID == productID {
			r.Customer = s.data.users[r.CustomerID]
			reviews = append(reviews, r)
		}
	}
	sort.Slice(reviews, func(i, j int) bool {
		if !reviews[i].CreatedAt.Equal(reviews[j].CreatedAt) {
			return reviews[i].CreatedAt.Before(reviews[j].CreatedAt)
		}
		return reviews[i].ID < reviews[j].ID
	})
	return reviews, nil
}
