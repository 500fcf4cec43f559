package storefront

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (s *Server) SetupRoutes() {
	r := s.router

	r.GET("/", s.home)
	r.GET("/products/", s.listProducts)
	r.GET("/products/:slug", s.productDetail)
	r.GET("/categories/", s.listCategories)
	r.GET("/categories/:slug", s.categoryDetail)
	r.GET("/seller/:username", s.sellerProfile)
	r.GET("/reviews/:slug", s.productReviews)

	r.GET("/login/", s.loginForm)
	r.POST("/login/", s.login)
	r.GET("/logout/", s.logout)
	r.POST("/logout/", s.logout)
	r.GET("/register/", s.registerForm)
	r.POST("/register/", s.register)

	member := r.Group("/", requireLogin())
	{
		member.GET("/cart/", s.viewCart)
		member.GET("/orders/", s.listOrders)
		member.GET("/add_product/", s.addProductForm)
		member.POST("/add_product/", s.addProduct)
		member.POST("/checkout/", s.checkout)
		member.POST("/add_to_cart", s.addToCart)
		member.GET("/add_review_to_product", s.reviewForm)
		member.POST("/save_review", s.saveReview)
		member.GET("/remove_from_cart/:product_id", s.removeFromCart)
		member.POST("/remove_from_cart/:product_id", s.removeFromCart)
	}

	r.Static(s.config.Media.URL, s.config.Media.Dir)
	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthz godoc
// @Summary  Health check
// @Produce  json
// @Success  200 {object} map[string]interface{}
// @Failure  503 {object} map[string]interface{}
// @Router   /healthz [get]
func (s *Server) healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, dep := range s.health {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
