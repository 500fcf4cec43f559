package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/storefront/pkg/events"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
	"go.uber.org/zap"
)

type Reviews struct {
	store  repository.Store
	events events.Publisher
	logger *zap.Logger
}

type ReviewInput struct {
	ProductID uint
	Rating    int
	Comment   string
}

// Save attaches a review by customerID to the product and returns the
// product it was saved against.
func (s *Reviews) Save(ctx context.Context, customerID uint, in ReviewInput) (*models.Product, error) {
	if !models.ValidRating(in.Rating) {
		return nil, ErrInvalidRating
	}

	product, err := s.store.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, notFound(err, "product")
	}

	review := &models.Review{Rating: in.Rating, CustomerID: customerID, ProductID: product.ID}
	if comment := strings.TrimSpace(in.Comment); comment != "" {
		review.Comment = &comment
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}

	s.logger.Info("Review saved", zap.Uint("review_id", review.ID), zap.Uint("product_id", product.ID))
	s.events.Publish(&events.ReviewSaved{ReviewID: review.ID, ProductID: product.ID, CustomerID: customerID, Rating: review.Rating})
	return product, nil
}

type ReviewPage struct {
	Product *models.Product
	Reviews []models.Review
	Rating  models.AverageRating
}

// ForProduct lists the reviews of the product with the slug, oldest first.
func (s *Reviews) ForProduct(ctx context.Context, slug string) (*ReviewPage, error) {
	product, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "product")
	}
	reviews, err := s.store.ListReviewsByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return &ReviewPage{Product: product, Reviews: reviews, Rating: models.NewAverageRating(reviews)}, nil
}

// AverageRating is the mean rating of the product, or a zero value when it
// has no reviews.
func (s *Reviews) AverageRating(ctx context.Context, productID uint) (models.AverageRating, error) {
	reviews, err := s.store.ListReviewsByProduct(ctx, productID)
	if err != nil {
		return models.AverageRating{}, fmt.Errorf("failed to list reviews: %w", err)
	}
	return models.NewAverageRating(reviews), nil
}
