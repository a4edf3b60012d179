package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/funnerlife"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/client/salla"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/config"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/db"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/oauth"
	xredis "github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/redis"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/server"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/server/handler"
	servermw "github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/server/middleware"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/catalog"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/fulfillment"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/order"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/service/webhook"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/storage"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/version"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xhttp/middleware"
	"github.com/Bassanthossamxx/Salla-Funnerlife-Integration/internal/xslog"
)

const (
	keyDriver       = "driver"
	keyRateLimit    = "rate_limit"
	keyBurst        = "burst"
	keyCallbackURL  = "callback_url"
	keyRequireSig   = "require_signature"
	keyMigrations   = "migrations"
	keyCatalogCache = "catalog_cache"

	memoryCacheCleanup = time.Minute
)

func main() {
	_ = godotenv.Load()

	logger := xslog.NewLoggerFromEnv(os.Stdout)
	slog.SetDefault(logger)

	ctx := xslog.WithLogger(context.Background(), logger)
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", xslog.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Read()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	store, err := initStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close store", xslog.Error(err))
		}
	}()

	backend, cache, err := initBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close backend", xslog.Error(err))
		}
	}()

	// Clients
	tokenSource := oauth.NewStoreTokenSource(oauth.NewConfig(cfg.Salla), store)
	sallaClient := salla.New(tokenSource,
		salla.WithBaseURL(cfg.Salla.APIBaseURL),
		salla.WithLogger(logger),
		salla.WithTimeout(cfg.Salla.Timeout),
	)
	funnerlifeClient := funnerlife.New(cfg.FunnerLife.APIBaseURL, cfg.FunnerLife.APIKey,
		funnerlife.WithLogger(logger),
		funnerlife.WithTimeout(cfg.FunnerLife.Timeout),
	)

	// Services
	catalogService := catalog.NewManager(store, funnerlifeClient, catalog.Config{
		AllowedCategories: cfg.Catalog.AllowedCategories,
		TTL:               cfg.Catalog.TTL,
		CacheTTL:          cfg.Catalog.CacheTTL,
	}, catalog.WithCache(cache))
	dispatcher := fulfillment.NewDispatcher(store, catalogService, funnerlifeClient, fulfillment.Config{
		PayableStatuses: cfg.Fulfillment.PayableStatuses,
		ZoneCategories:  cfg.Fulfillment.ZoneCategories,
		Concurrency:     cfg.Fulfillment.Concurrency,
		CallbackURL:     cfg.CallbackURL(),
	})
	router := webhook.NewRouter(webhook.Config{
		Verifier:         webhook.NewVerifier(cfg.Salla.WebhookSecret),
		RequireSignature: cfg.Salla.RequireSignature,
		Events:           store,
		Orders:           store,
		Tokens:           tokenSource,
		Fetcher:          sallaClient,
		Dispatcher:       dispatcher,
	})
	dashboard := order.NewDashboard(store, store, sallaClient)

	logger.InfoContext(ctx, "fulfillment configured",
		slog.String(keyCallbackURL, cfg.CallbackURL()),
		slog.Bool(keyRequireSig, cfg.Salla.RequireSignature))

	if cfg.Env.IsProduction() && version.IsDevelopment(version.Get()) {
		logger.WarnContext(ctx, "running a development build in production", xslog.Version())
	}
	if cfg.Admin.JWTSecret == "" {
		logger.WarnContext(ctx, "ADMIN_JWT_SECRET not set, dashboard routes will answer 503")
	}

	// Handlers
	routes := server.Routes(server.Handlers{
		Webhook:    handler.NewWebhook(router, store, cfg.MaxBodyBytes),
		Orders:     handler.NewOrders(dashboard),
		FunnerLife: handler.NewFunnerLife(catalogService, store),
		Health:     handler.NewHealth(store, backend, tokenSource),
	}, backend, servermw.NewAdminVerifier(cfg.Admin.JWTSecret, cfg.Admin.Issuer))

	wrapped := middleware.Chain(routes,
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Logging,
		middleware.Recovery,
		middleware.SecurityHeaders,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, server.New(":"+cfg.Port, wrapped), server.DefaultShutdownTimeout)
}

func initStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Store, error) {
	logger.InfoContext(ctx, "initializing database", slog.String(keyDriver, cfg.Database.Driver))

	store, applied, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "database ready", slog.Int(keyMigrations, len(applied)))
	return store, nil
}

// initBackend uses redis when REDIS_URL is set and in-process state
// otherwise. The in-process variant does not share limits across instances.
func initBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Backend, storage.CatalogCache, error) {
	if cfg.Redis.URL == "" {
		logger.InfoContext(ctx, "initializing in-memory backend",
			slog.Float64(keyRateLimit, cfg.RateLimit.Limit),
			slog.Int(keyBurst, cfg.RateLimit.Burst),
			slog.String(keyCatalogCache, "memory"))
		return storage.NewMemoryBackend(cfg.RateLimit.Limit, cfg.RateLimit.Burst),
			storage.NewMemoryCatalogCache(memoryCacheCleanup), nil
	}

	client, err := xredis.Open(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}

	logger.InfoContext(ctx, "initializing Redis backend",
		slog.Float64(keyRateLimit, cfg.RateLimit.Limit),
		slog.String(keyCatalogCache, "redis"))
	backend := storage.NewRedisBackend(storage.RedisConfig{
		Client: client,
		Limit:  int(cfg.RateLimit.Limit),
		Window: time.Second,
	})
	return backend, storage.NewRedisCatalogCache(client), nil
}
