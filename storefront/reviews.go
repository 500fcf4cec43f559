package storefront

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
)

func (s *Server) productReviews(c *gin.Context) {
	page, err := s.services.Reviews.ForProduct(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "reviews.html", gin.H{
		"Title":   "Reviews of " + page.Product.Name,
		"Product": page.Product,
		"Reviews": page.Reviews,
		"Rating":  page.Rating.String(),
	})
}

func (s *Server) reviewForm(c *gin.Context) {
	id, err := strconv.ParseUint(c.Query("product_id"), 10, 64)
	if err != nil {
		s.fail(c, service.ErrNotFound)
		return
	}
	product, err := s.services.Catalog.Product(c.Request.Context(), uint(id))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "add_review.html", gin.H{"Title": "Review " + product.Name, "Product": product})
}

func (s *Server) saveReview(c *gin.Context) {
	id, err := strconv.ParseUint(c.PostForm("product_id"), 10, 64)
	if err != nil {
		s.fail(c, service.ErrNotFound)
		return
	}
	rating, err := strconv.Atoi(c.PostForm("rating"))
	if err != nil {
		rating = 0
	}

	product, err := s.services.Reviews.Save(c.Request.Context(), principal(c).UserID, service.ReviewInput{
		ProductID: uint(id),
		Rating:    rating,
		Comment:   c.PostForm("comment"),
	})
	if errors.Is(err, service.ErrInvalidRating) {
		redirectBack(c, "/add_review_to_product?product_id="+strconv.FormatUint(id, 10))
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}

	s.metrics.ReviewsSaved.Inc()
	c.Redirect(http.StatusFound, "/reviews/"+product.Slug)
}
