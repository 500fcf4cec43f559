package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/pkg/auth"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/discovery"
	"github.com/example/storefront/pkg/events"
	admingrpc "github.com/example/storefront/pkg/grpc"
	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/repository"
	"github.com/example/storefront/pkg/service"
	"github.com/example/storefront/storefront"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the storefront web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting storefront",
		zap.Int("port", cfg.Server.Port),
		zap.String("host", cfg.Server.Host),
		zap.String("database", cfg.Database.Driver))

	store, err := openStore(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	health := map[string]storefront.Pinger{"database": store}
	adminDeps := map[string]admingrpc.Pinger{"database": store}

	var cache repository.Cache = repository.NopCache{}
	if cfg.Redis.Enabled {
		redisRepo := repository.NewRedisRepository(&cfg.Redis)
		defer redisRepo.Close()
		if err := redisRepo.Ping(ctx); err != nil {
			logger.Warn("Redis unreachable, pages will be served uncached until it recovers", zap.Error(err))
		}
		cache = redisRepo
		health["redis"] = redisRepo
		adminDeps["redis"] = redisRepo
	}

	var sink events.AuditSink
	if cfg.MongoDB.Enabled {
		mongoRepo, err := repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			logger.Warn("Failed to connect to MongoDB, continuing without audit log", zap.Error(err))
		} else {
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				mongoRepo.Close(closeCtx)
			}()
			sink = mongoRepo
			health["mongodb"] = mongoRepo
		}
	}

	dispatcher, err := events.NewDispatcher(sink, logger.Named("events"))
	if err != nil {
		return err
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logger.Warn("Failed to stop event actors", zap.Error(err))
		}
	}()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	services := service.New(service.Deps{
		Store:  store,
		Cache:  cache,
		Events: dispatcher,
		Tokens: tokens,
		Media:  service.LocalMedia{Dir: cfg.Media.Dir},
		Logger: logger,
	})

	srv, err := storefront.NewServer(storefront.Options{
		Config:   cfg,
		Services: services,
		Tokens:   tokens,
		Metrics:  metrics.New(),
		Health:   health,
		Logger:   logger.Named("http"),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	srv.SetupRoutes()

	errCh := make(chan error, 2)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var admin *admingrpc.AdminServer
	if cfg.GRPC.Enabled {
		admin = admingrpc.NewAdminServer(adminDeps, 15*time.Second, logger.Named("grpc"))
		go func() {
			if err := admin.Start(cfg.GRPC.Addr()); err != nil {
				errCh <- fmt.Errorf("grpc admin server: %w", err)
			}
		}()
	}

	var sd *discovery.ServiceDiscovery
	instance := &discovery.ServiceInstance{Name: cfg.Server.Name, Host: advertisedHost(cfg.Server.Host), Port: cfg.Server.Port}
	regCtx, stopKeepAlive := context.WithCancel(context.Background())
	defer stopKeepAlive()
	if cfg.Etcd.Enabled {
		sd, err = discovery.NewServiceDiscovery(&cfg.Etcd, logger.Named("discovery"))
		if err != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(err))
		} else if err := sd.Register(regCtx, instance); err != nil {
			logger.Warn("Failed to register instance", zap.Error(err))
		}
	}

	logger.Info("Storefront started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case runErr = <-errCh:
		logger.Error("Server error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if sd != nil {
		if err := sd.Deregister(shutdownCtx, instance); err != nil {
			logger.Warn("Failed to deregister instance", zap.Error(err))
		}
		sd.Close()
	}
	if admin != nil {
		admin.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}

	logger.Info("Storefront stopped")
	return runErr
}

func advertisedHost(host string) string {
	if host != "" && host != "0.0.0.0" && host != "::" {
		return host
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "127.0.0.1"
}
