// Package storefront serves the storefront's HTML pages over HTTP.
package storefront

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pinger is a backing service checked by /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	config   *config.Config
	services *service.Services
	tokens   *auth.TokenManager
	metrics  *metrics.Metrics
	health   map[string]Pinger
	logger   *zap.Logger
	router   *gin.Engine
	limiter  *loginLimiter
	http     *http.Server
}

type Options struct {
	Config   *config.Config
	Services *service.Services
	Tokens   *auth.TokenManager
	Metrics  *metrics.Metrics
	Health   map[string]Pinger
	Logger   *zap.Logger
}

func NewServer(opts Options) (*Server, error) {
	if opts.Config.Server.Mode != "" {
		gin.SetMode(opts.Config.Server.Mode)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	tmpl, err := template.New("").Funcs(templateFuncs(opts.Config.Media.URL)).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(opts.Logger))
	router.Use(opts.Metrics.Middleware())
	router.SetHTMLTemplate(tmpl)

	s := &Server{
		config:   opts.Config,
		services: opts.Services,
		tokens:   opts.Tokens,
		metrics:  opts.Metrics,
		health:   opts.Health,
		logger:   opts.Logger,
		router:   router,
		limiter:  newLoginLimiter(opts.Config.Auth.LoginRate, opts.Config.Auth.LoginBurst),
	}
	router.Use(s.authenticate())
	router.NoRoute(func(c *gin.Context) {
		s.render(c, http.StatusNotFound, "error.html", gin.H{"Title": "Not found", "Message": "Page not found."})
	})
	return s, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Storefront starting", zap.String("address", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if p, ok := auth.FromContext(c.Request.Context()); ok {
			fields = append(fields, zap.Uint("user_id", p.UserID))
		}
		logger.Info("HTTP request", fields...)
	}
}
