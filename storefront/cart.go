package storefront

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (s *Server) viewCart(c *gin.Context) {
	s.renderCart(c, http.StatusOK, "")
}

func (s *Server) renderCart(c *gin.Context, status int, message string) {
	cart, err := s.services.Cart.View(c.Request.Context(), principal(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, status, "cart.html", gin.H{
		"Title":    "Cart",
		"Cart":     cart,
		"Total":    cart.Total(),
		"Quantity": cart.TotalProductsQuantity(),
		"Error":    message,
	})
}

func (s *Server) addToCart(c *gin.Context) {
	productID, err := strconv.ParseUint(c.PostForm("product_id"), 10, 64)
	if err != nil {
		s.fail(c, service.ErrNotFound)
		return
	}
	quantity := 1
	if raw := c.PostForm("quantity"); raw != "" {
		if quantity, err = strconv.Atoi(raw); err != nil {
			quantity = 0
		}
	}

	p := principal(c)
	err = s.services.Cart.AddToCart(c.Request.Context(), p.UserID, uint(productID), quantity)
	switch {
	case err == nil:
		s.metrics.CartAdds.Inc()
	case errors.Is(err, service.ErrOwnProduct),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidQuantity):
		s.logger.Info("Add to cart rejected",
			zap.Uint("user_id", p.UserID),
			zap.Uint64("product_id", productID),
			zap.Error(err))
	default:
		s.fail(c, err)
		return
	}
	redirectBack(c, "/cart/")
}

func (s *Server) removeFromCart(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil {
		s.fail(c, service.ErrNotFound)
		return
	}
	if err := s.services.Cart.RemoveFromCart(c.Request.Context(), principal(c).UserID, uint(productID)); err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/cart/")
}

func (s *Server) checkout(c *gin.Context) {
	_, err := s.services.Cart.Checkout(c.Request.Context(), principal(c).UserID)
	switch {
	case err == nil:
		s.metrics.OrdersPlaced.Inc()
	case errors.Is(err, service.ErrEmptyCart):
	case errors.Is(err, service.ErrInsufficientStock):
		s.renderCart(c, http.StatusConflict, err.Error())
		return
	default:
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (s *Server) listOrders(c *gin.Context) {
	orders, err := s.services.Orders.List(c.Request.Context(), principal(c).UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "orders.html", gin.H{"Title": "Orders", "Orders": orders})
}
