package storefront

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository/memory"
	"github.com/example/storefront/pkg/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	server   *Server
	store    *memory.Store
	services *service.Services
	tokens   *auth.TokenManager
	seller   *models.User
	buyer    *models.User
	mug      *models.Product
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("down") }

func newTestEnv(t *testing.T, health map[string]Pinger) *testEnv {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret",
			TokenTTL:   time.Hour,
			CookieName: "session",
			LoginRate:  0.001,
			LoginBurst: 3,
		},
		Media: config.MediaConfig{Dir: t.TempDir(), URL: "/media", MaxBytes: 1 << 20},
	}

	store := memory.New()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	services := service.New(service.Deps{
		Store:  store,
		Tokens: tokens,
		Media:  service.LocalMedia{Dir: cfg.Media.Dir},
	})

	srv, err := NewServer(Options{
		Config:   cfg,
		Services: services,
		Tokens:   tokens,
		Metrics:  metrics.New(),
		Health:   health,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	srv.SetupRoutes()

	ctx := context.Background()
	seller, err := services.Accounts.Register(ctx, service.RegisterInput{Username: "seller", Password: "pw"})
	require.NoError(t, err)
	buyer, err := services.Accounts.Register(ctx, service.RegisterInput{Username: "buyer", Password: "pw"})
	require.NoError(t, err)
	category, err := services.Catalog.CreateCategory(ctx, "Kitchen")
	require.NoError(t, err)
	mug, err := services.Catalog.AddProduct(ctx, seller.ID, service.ProductInput{
		Name: "Blue Mug", Price: "4.50", Quantity: 5, Description: "A sturdy mug", CategoryID: category.ID,
	})
	require.NoError(t, err)

	return &testEnv{server: srv, store: store, services: services, tokens: tokens, seller: seller, buyer: buyer, mug: mug}
}

func (e *testEnv) do(t *testing.T, req *http.Request, as *models.User) *httptest.ResponseRecorder {
	t.Helper()
	if as != nil {
		token, err := e.tokens.Issue(auth.Principal{UserID: as.ID, Username: as.Username})
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func get(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPublicPages(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, tc := range []struct {
		path string
		want string
	}{
		{"/", "Blue Mug"},
		{"/products/", "Blue Mug"},
		{"/products/?search_term=STURDY", "Blue Mug"},
		{"/products/blue-mug", "No reviews yet"},
		{"/categories/", "Kitchen"},
		{"/categories/kitchen", "Blue Mug"},
		{"/seller/seller", "Blue Mug"},
		{"/reviews/blue-mug", "No reviews yet"},
		{"/login/", "Log in"},
		{"/register/", "Sign up"},
	} {
		w := env.do(t, get(tc.path), nil)
		assert.Equal(t, http.StatusOK, w.Code, tc.path)
		assert.Contains(t, w.Body.String(), tc.want, tc.path)
	}

	w := env.do(t, get("/products/?search_term=teapot"), nil)
	assert.NotContains(t, w.Body.String(), "Blue Mug")
}

func TestNotFoundPages(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, path := range []string{"/products/nope", "/categories/nope", "/seller/nobody", "/reviews/nope", "/no/such/page"} {
		w := env.do(t, get(path), nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
}

func TestLoginRequired(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, get("/cart/"), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login/?next=%2Fcart%2F", w.Header().Get("Location"))

	w = env.do(t, postForm("/checkout/", nil), nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login/"))

	req := get("/cart/")
	req.AddCookie(&http.Cookie{Name: "session", Value: "garbage"})
	w = env.do(t, req, nil)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, postForm("/login/", url.Values{"username": {"buyer"}, "password": {"wrong"}}), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "correct username and password")

	w = env.do(t, postForm("/login/", url.Values{"username": {"buyer"}, "password": {"pw"}, "next": {"/orders/"}}), nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/orders/", w.Header().Get("Location"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	p, err := env.tokens.Parse(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, env.buyer.ID, p.UserID)

	w = env.do(t, get("/logout/"), env.buyer)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, -1, w.Result().Cookies()[0].MaxAge)
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, postForm("/login/", url.Values{"username": {"buyer"}, "password": {"pw"}, "next": {"//evil.example"}}), nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, nil)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		w := env.do(t, postForm("/login/", url.Values{"username": {"buyer"}, "password": {"wrong"}}), nil)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{400, 400, 400, 429}, codes)
}

func TestRegisterCreatesAccountAndSession(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, postForm("/register/", url.Values{
		"username": {"newbie"}, "password": {"pw"}, "password_confirm": {"pw"},
	}), nil)
	require.Equal(t, http.StatusFound, w.Code)
	require.Len(t, w.Result().Cookies(), 1)

	user, err := env.store.GetUserByUsername(context.Background(), "newbie")
	require.NoError(t, err)
	assert.Equal(t, 1, env.store.CountCarts(user.ID))

	w = env.do(t, postForm("/register/", url.Values{
		"username": {"newbie"}, "password": {"pw"}, "password_confirm": {"pw"},
	}), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, postForm("/register/", url.Values{
		"username": {"other"}, "password": {"pw"}, "password_confirm": {"nope"},
	}), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartAndCheckout(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.mug.ID

	req := postForm("/add_to_cart", url.Values{"product_id": {uintStr(id)}})
	req.Header.Set("Referer", "http://example.com/products/blue-mug")
	w := env.do(t, req, env.buyer)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/products/blue-mug", w.Header().Get("Location"))

	w = env.do(t, postForm("/add_to_cart", url.Values{"product_id": {uintStr(id)}, "quantity": {"2"}}), env.buyer)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/cart/", w.Header().Get("Location"))

	w = env.do(t, get("/cart/"), env.buyer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1 products, total 13.50")

	w = env.do(t, postForm("/checkout/", nil), env.buyer)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	mug, err := env.store.GetProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, mug.Quantity)
	assert.Equal(t, 3, mug.Sold)

	w = env.do(t, get("/orders/"), env.buyer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pending")
	assert.Contains(t, w.Body.String(), "Total 13.50")

	w = env.do(t, postForm("/checkout/", nil), env.buyer)
	assert.Equal(t, http.StatusFound, w.Code)
	orders, err := env.services.Orders.List(context.Background(), env.buyer.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestAddToCartRulesRedirectBack(t *testing.T) {
	env := newTestEnv(t, nil)
	id := uintStr(env.mug.ID)

	w := env.do(t, postForm("/add_to_cart", url.Values{"product_id": {id}}), env.seller)
	assert.Equal(t, http.StatusFound, w.Code)
	w = env.do(t, postForm("/add_to_cart", url.Values{"product_id": {id}, "quantity": {"99"}}), env.buyer)
	assert.Equal(t, http.StatusFound, w.Code)

	cart, err := env.services.Cart.View(context.Background(), env.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	cart, err = env.services.Cart.View(context.Background(), env.seller.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	w = env.do(t, postForm("/add_to_cart", url.Values{"product_id": {"999"}}), env.buyer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveFromCart(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.services.Cart.AddToCart(context.Background(), env.buyer.ID, env.mug.ID, 1))

	w := env.do(t, get("/remove_from_cart/"+uintStr(env.mug.ID)), env.buyer)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/cart/", w.Header().Get("Location"))

	cart, err := env.services.Cart.View(context.Background(), env.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	w = env.do(t, postForm("/remove_from_cart/"+uintStr(env.mug.ID), nil), env.buyer)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestReviews(t *testing.T) {
	env := newTestEnv(t, nil)
	id := uintStr(env.mug.ID)

	w := env.do(t, get("/add_review_to_product?product_id="+id), env.buyer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Review Blue Mug")

	req := postForm("/save_review", url.Values{"product_id": {id}, "rating": {"11"}})
	req.Header.Set("Referer", "/add_review_to_product?product_id="+id)
	w = env.do(t, req, env.buyer)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/add_review_to_product?product_id="+id, w.Header().Get("Location"))

	for _, rating := range []string{"8", "6", "10"} {
		w = env.do(t, postForm("/save_review", url.Values{"product_id": {id}, "rating": {rating}, "comment": {"nice"}}), env.buyer)
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/reviews/blue-mug", w.Header().Get("Location"))
	}

	w = env.do(t, get("/products/blue-mug"), nil)
	assert.Contains(t, w.Body.String(), "Rating: 8.0")
	w = env.do(t, get("/reviews/blue-mug"), nil)
	assert.Contains(t, w.Body.String(), "Average: 8.0")
	assert.Contains(t, w.Body.String(), "nice")

	w = env.do(t, get("/add_review_to_product?product_id=999"), env.buyer)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddProduct(t *testing.T) {
	env := newTestEnv(t, nil)
	category, err := env.services.Catalog.CategoryProducts(context.Background(), "kitchen")
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Teapot"))
	require.NoError(t, mw.WriteField("price", "19.99"))
	require.NoError(t, mw.WriteField("quantity", "4"))
	require.NoError(t, mw.WriteField("description", "Porcelain"))
	require.NoError(t, mw.WriteField("category", uintStr(category.Category.ID)))
	fw, err := mw.CreateFormFile("image", "teapot.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/add_product/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := env.do(t, req, env.seller)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/seller/seller", w.Header().Get("Location"))

	product, err := env.services.Catalog.ProductBySlug(context.Background(), "teapot")
	require.NoError(t, err)
	assert.Equal(t, "19.99", product.Price.StringFixed(2))
	assert.NotEmpty(t, product.Image)

	w = env.do(t, get("/media/"+product.Image), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())

	w = env.do(t, postForm("/add_product/", url.Values{
		"name": {"Bad"}, "price": {"-1"}, "quantity": {"1"}, "category": {uintStr(category.Category.ID)},
	}), env.seller)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "price must be a non-negative number")

	w = env.do(t, get("/add_product/"), env.seller)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Kitchen")
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, map[string]Pinger{"database": memory.New()})
	w := env.do(t, get("/healthz"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok"}}`, w.Body.String())

	w = env.do(t, get("/metrics"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "storefront_http_requests_total")

	down := newTestEnv(t, map[string]Pinger{"redis": downPinger{}})
	w = down.do(t, get("/healthz"), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func uintStr(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
