package storefront

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
)

func (s *Server) home(c *gin.Context) {
	products, err := s.services.Catalog.BestSellers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "home.html", gin.H{"Title": "Best sellers", "Products": products})
}

func (s *Server) listProducts(c *gin.Context) {
	search := c.Query("search_term")
	products, err := s.services.Catalog.Products(c.Request.Context(), search)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "products.html", gin.H{"Title": "Products", "Products": products, "Search": search})
}

func (s *Server) productDetail(c *gin.Context) {
	detail, err := s.services.Catalog.ProductDetail(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "product.html", gin.H{
		"Title":   detail.Product.Name,
		"Product": detail.Product,
		"Rating":  detail.Rating.String(),
	})
}

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.services.Catalog.Categories(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "categories.html", gin.H{"Title": "Categories", "Categories": categories})
}

func (s *Server) categoryDetail(c *gin.Context) {
	page, err := s.services.Catalog.CategoryProducts(c.Request.Context(), c.Param("slug"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "category.html", gin.H{
		"Title":    page.Category.Name,
		"Category": page.Category,
		"Products": page.Products,
	})
}

func (s *Server) sellerProfile(c *gin.Context) {
	page, err := s.services.Catalog.SellerProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, http.StatusOK, "seller.html", gin.H{
		"Title":    page.Seller.Username,
		"Seller":   page.Seller,
		"Profile":  page.Profile,
		"Products": page.Products,
	})
}

func (s *Server) addProductForm(c *gin.Context) {
	s.renderProductForm(c, http.StatusOK, "")
}

func (s *Server) renderProductForm(c *gin.Context, status int, message string) {
	categories, err := s.services.Catalog.Categories(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	s.render(c, status, "add_product.html", gin.H{
		"Title":      "Add product",
		"Categories": categories,
		"Error":      message,
		"Form":       c.Request.PostForm,
	})
}

func (s *Server) addProduct(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.Media.MaxBytes)

	quantity, err := strconv.Atoi(c.DefaultPostForm("quantity", "0"))
	if err != nil {
		s.renderProductForm(c, http.StatusBadRequest, "Quantity must be a whole number.")
		return
	}
	categoryID, err := strconv.ParseUint(c.PostForm("category"), 10, 64)
	if err != nil {
		s.renderProductForm(c, http.StatusBadRequest, "Choose a category.")
		return
	}

	in := service.ProductInput{
		Name:        c.PostForm("name"),
		Price:       c.PostForm("price"),
		Quantity:    quantity,
		Description: c.PostForm("description"),
		CategoryID:  uint(categoryID),
	}

	if header, err := c.FormFile("image"); err == nil {
		f, err := header.Open()
		if err != nil {
			s.fail(c, err)
			return
		}
		defer f.Close()
		in.Image = &service.ImageUpload{Filename: header.Filename, Body: f}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		s.renderProductForm(c, http.StatusBadRequest, "The image could not be read.")
		return
	}

	p := principal(c)
	if _, err := s.services.Catalog.AddProduct(c.Request.Context(), p.UserID, in); err != nil {
		if errors.Is(err, service.ErrInvalidProduct) {
			s.renderProductForm(c, http.StatusBadRequest, err.Error())
			return
		}
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/seller/"+p.Username)
}
