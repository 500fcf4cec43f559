package models

import (
	"fmt"
	"time"
)

const (
	MinRating = 1
	MaxRating = 10

	// NoReviews is shown in place of an average when a product has no reviews.
	NoReviews = "No reviews yet"
)

type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Rating     int       `gorm:"not null;check:rating >= 1 AND rating <= 10" json:"rating"`
	Comment    *string   `gorm:"type:text" json:"comment,omitempty"`
	CustomerID uint      `gorm:"index;not null" json:"customer_id"`
	Customer   User      `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer"`
	ProductID  uint      `gorm:"index;not null" json:"product_id"`
	Product    Product   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (Review) TableName() string {
	return "reviews"
}

func ValidRating(rating int) bool {
	return rating >= MinRating && rating <= MaxRating
}

// AverageRating is the mean rating of a set of reviews.
type AverageRating struct {
	Value float64
	Count int
}

func NewAverageRating(reviews []Review) AverageRating {
	if len(reviews) == 0 {
		return AverageRating{}
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return AverageRating{Value: float64(total) / float64(len(reviews)), Count: len(reviews)}
}

func (a AverageRating) HasReviews() bool {
	return a.Count > 0
}

func (a AverageRating) String() string {
	if !a.HasReviews() {
		return NoReviews
	}
	return fmt.Sprintf("%.1f", a.Value)
}
