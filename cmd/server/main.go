package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/assistant"
	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/database"
	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/llm"
	"github.com/iliyamo/restaurant-reservation/internal/logging"
	"github.com/iliyamo/restaurant-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/router"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := database.Migrate(ctx, db, database.MySQL); err != nil {
		return err
	}

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	// repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	restaurants := repository.NewRestaurantRepo(db, database.MySQL)
	reservations := repository.NewReservationRepo(db)
	reviews := repository.NewReviewRepo(db)

	// events
	publisher := queue.NewPublisher(cfg.RabbitMQURL, logger)
	consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.ReservationLogPath, logger)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("reservation consumer stopped", zap.Error(err))
		}
	}()

	// services
	catalog := service.NewCatalogService(restaurants, cfg.SearchMaxRetries, logger)
	booking := service.NewReservationService(restaurants, reservations, publisher, logger)
	recommender := service.NewRecommendationService(catalog, reservations, logger)
	reviewSvc := service.NewReviewService(restaurants, reviews, logger)

	// catalog writes (admin CRUD, reviews, auto-populate) drop cached reads
	cacheCfg := config.LoadCacheConfig()
	var purge func(context.Context) error
	if rdb != nil && cacheCfg.Enabled {
		purge = func(ctx context.Context) error { return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix) }
	}

	chat, breakerState := buildAssistant(cfg, rdb, catalog, booking, recommender, purge, logger)

	rlCfg := config.LoadRateLimitConfig()
	guards := router.Guards{
		JWTSecret:        cfg.JWTSecret,
		Cache:            middleware.NewRedisCache(cacheCfg, rdb, logger),
		RateLimit:        middleware.NewTokenBucket(rlCfg, rdb, logger),
		AssistantLimiter: middleware.NewTokenBucket(rlCfg.ForAssistant(), rdb, logger),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.Validator{}
	e.Use(metrics.Middleware())
	e.Use(middleware.RequestLogger(logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	router.RegisterRoutes(e, handler.NewHealthHandler(db, rdb, breakerState))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, logger), guards)
	router.RegisterCatalog(e,
		handler.NewRestaurantHandler(catalog, reviewSvc, logger),
		handler.NewRecommendationHandler(recommender, logger),
		guards)
	router.RegisterDiner(e,
		handler.NewReservationHandler(booking, logger),
		handler.NewReviewHandler(reviewSvc, purge, logger),
		guards)
	router.RegisterAssistant(e, handler.NewAssistantHandler(chat, logger), guards)
	router.RegisterAdmin(e, handler.NewAdminHandler(catalog, booking, purge, logger), guards)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		ExposedHeaders:   []string{"X-Conversation-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: false,
	}).Handler(e)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildAssistant wires the dispatcher when a model key is configured. Without
// one the chat endpoint answers 503 and health reports it disabled.
func buildAssistant(
	cfg *config.Config,
	rdb *redis.Client,
	catalog *service.CatalogService,
	booking *service.ReservationService,
	recommender *service.RecommendationService,
	invalidate func(context.Context) error,
	logger *zap.Logger,
) (handler.Assistant, func() string) {
	if cfg.OpenAI.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, assistant disabled")
		return nil, nil
	}
	client, err := llm.NewClient(&llm.Config{
		Endpoint:         cfg.OpenAI.BaseURL,
		Model:            cfg.OpenAI.Model,
		APIKey:           cfg.OpenAI.APIKey,
		BreakerThreshold: cfg.OpenAI.BreakerThreshold,
		BreakerTimeout:   cfg.OpenAI.BreakerTimeout,
	}, logger)
	if err != nil {
		logger.Error("assistant disabled", zap.Error(err))
		return nil, nil
	}

	var history assistant.HistoryStore
	if rdb != nil {
		history = assistant.NewRedisHistory(rdb, cfg.Assistant.HistoryLimit, cfg.Assistant.HistoryTTL)
	} else {
		history = assistant.NewMemoryHistory(cfg.Assistant.HistoryLimit, cfg.Assistant.HistoryTTL)
	}

	d := assistant.NewDispatcher(client, assistant.Services{
		Catalog:      catalog,
		Reservations: booking,
		Recommender:  recommender,
	}, history, assistant.Options{
		Timeout:      cfg.Assistant.Timeout,
		AutoPopulate: cfg.Assistant.AutoPopulate,
		HistoryLimit: cfg.Assistant.HistoryLimit,
		Invalidate:   invalidate,
	}, logger)

	logger.Info("assistant enabled", zap.String("model", client.Model()))
	return d, client.BreakerState
}
