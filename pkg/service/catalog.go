package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	BestSellersLimit = 5

	bestSellersKey = "products:bestsellers"
	categoriesKey  = "categories"

	// A reader that missed the cache before a checkout can write the old
	// list back after the checkout's invalidation; the short TTL bounds how
	// long that list survives.
	bestSellersTTL = 30 * time.Second
)

type Catalog struct {
	store  repository.Store
	cache  repository.Cache
	events events.Publisher
	media  MediaStore
	logger *zap.Logger
}

// cached fills dest from the cache, or from load on a miss. Cache failures
// are logged and never fail the request. A zero ttl uses the cache default.
func (c *Catalog) cached(ctx context.Context, key string, ttl time.Duration, dest interface{}, load func() error) error {
	err := c.cache.GetJSON(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}

	if err := load(); err != nil {
		return err
	}
	if err := c.cache.SetJSON(ctx, key, dest, ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (c *Catalog) invalidate(ctx context.Context, keys ...string) {
	if err := c.cache.Del(ctx, keys...); err != nil {
		c.logger.Warn("Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// BestSellers returns the top products by units sold.
func (c *Catalog) BestSellers(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := c.cached(ctx, bestSellersKey, bestSellersTTL, &products, func() error {
		var err error
		products, err = c.store.ListProducts(ctx, repository.ProductFilter{BestSelling: true, Limit: BestSellersLimit})
		if err != nil {
			return fmt.Errorf("failed to list best sellers: %w", err)
		}
		return nil
	})
	return products, err
}

// Products lists every product, or those whose name or description contains
// search.
func (c *Catalog) Products(ctx context.Context, search string) ([]models.Product, error) {
	products, err := c.store.ListProducts(ctx, repository.ProductFilter{Search: strings.TrimSpace(search)})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (c *Catalog) Product(ctx context.Context, id uint) (*models.Product, error) {
	product, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return product, nil
}

func (c *Catalog) ProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := c.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return product, nil
}

type ProductDetail struct {
	Product *models.Product
	Rating  models.AverageRating
}

func (c *Catalog) ProductDetail(ctx context.Context, slug string) (*ProductDetail, error) {
	product, err := c.ProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	reviews, err := c.store.ListReviewsByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return &ProductDetail{Product: product, Rating: models.NewAverageRating(reviews)}, nil
}

func (c *Catalog) Categories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := c.cached(ctx, categoriesKey, 0, &categories, func() error {
		var err error
		categories, err = c.store.ListCategories(ctx)
		if err != nil {
			return fmt.Errorf("failed to list categories: %w", err)
		}
		return nil
	})
	return categories, err
}

func (c *Catalog) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrInvalidProduct)
	}
	category := &models.Category{Name: name}
	if err := c.store.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	c.invalidate(ctx, categoriesKey)
	return category, nil
}

type CategoryPage struct {
	Category *models.Category
	Products []models.Product
}

func (c *Catalog) CategoryProducts(ctx context.Context, slug string) (*CategoryPage, error) {
	category, err := c.store.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "category")
	}
	products, err := c.store.ListProducts(ctx, repository.ProductFilter{CategoryID: category.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return &CategoryPage{Category: category, Products: products}, nil
}

type SellerPage struct {
	Seller   *models.User
	Profile  *models.Profile
	Products []models.Product
}

func (c *Catalog) SellerProfile(ctx context.Context, username string) (*SellerPage, error) {
	seller, err := c.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "seller")
	}

	page := &SellerPage{Seller: seller}
	profile, err := c.store.GetProfile(ctx, seller.ID)
	switch {
	case err == nil:
		page.Profile = profile
	case errors.Is(err, repository.ErrNotFound):
		page.Profile = &models.Profile{UserID: seller.ID, User: *seller, Image: models.DefaultProfileImage}
	default:
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	page.Products, err = c.store.ListProducts(ctx, repository.ProductFilter{SellerID: seller.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return page, nil
}

type ImageUpload struct {
	Filename string
	Body     io.Reader
}

type ProductInput struct {
	Name        string
	Price       string
	Quantity    int
	Description string
	CategoryID  uint
	Image       *ImageUpload
}

func (in ProductInput) validate() (decimal.Decimal, error) {
	if strings.TrimSpace(in.Name) == "" {
		return decimal.Zero, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || price.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: price must be a non-negative number", ErrInvalidProduct)
	}
	if in.Quantity < 0 {
		return decimal.Zero, fmt.Errorf("%w: quantity must not be negative", ErrInvalidProduct)
	}
	if in.CategoryID == 0 {
		return decimal.Zero, fmt.Errorf("%w: category is required", ErrInvalidProduct)
	}
	return price.Round(2), nil
}

// AddProduct lists a new product for sale by sellerID.
func (c *Catalog) AddProduct(ctx context.Context, sellerID uint, in ProductInput) (*models.Product, error) {
	price, err := in.validate()
	if err != nil {
		return nil, err
	}
	if _, err := c.store.GetCategory(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown category", ErrInvalidProduct)
		}
		return nil, fmt.Errorf("failed to load category: %w", err)
	}

	product := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Price:       price,
		Quantity:    in.Quantity,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		SellerID:    sellerID,
	}

	if in.Image != nil && c.media != nil {
		name, err := c.media.Save(in.Image.Filename, in.Image.Body)
		if err != nil {
			return nil, err
		}
		product.Image = name
	}

	if err := c.store.SaveProduct(ctx, product); err != nil {
		if product.Image != "" {
			if rerr := c.media.Remove(product.Image); rerr != nil {
				c.logger.Warn("Failed to remove orphaned image", zap.String("image", product.Image), zap.Error(rerr))
			}
		}
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: you already sell a product named %q", ErrInvalidProduct, product.Name)
		}
		return nil, fmt.Errorf("failed to save product: %w", err)
	}

	c.invalidate(ctx, bestSellersKey)
	c.logger.Info("Product added", zap.Uint("product_id", product.ID), zap.Uint("seller_id", sellerID))
	c.events.Publish(&events.ProductAdded{ProductID: product.ID, SellerID: sellerID, Name: product.Name, Price: product.Price})
	return product, nil
}
