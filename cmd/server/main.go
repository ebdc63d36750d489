package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/basket/internal"
	"github.com/dukerupert/basket/internal/auth"
	"github.com/dukerupert/basket/internal/billing"
	"github.com/dukerupert/basket/internal/events"
	"github.com/dukerupert/basket/internal/handler/api"
	"github.com/dukerupert/basket/internal/lock"
	"github.com/dukerupert/basket/internal/middleware"
	"github.com/dukerupert/basket/internal/repository"
	"github.com/dukerupert/basket/internal/router"
	"github.com/dukerupert/basket/internal/routes"
	"github.com/dukerupert/basket/internal/service"
	"github.com/dukerupert/basket/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	zerolog.DefaultContextLogger = &logger

	// Prices are written as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// Run migrations over database/sql
	logger.Info().Msg("Running database migrations...")
	if err := migrate(ctx, cfg.DatabaseUrl); err != nil {
		return err
	}
	logger.Info().Msg("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info().Msg("Database connection established")

	store := repository.NewStore(pool)

	// Cart locks: Redis when configured, in-process otherwise
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, 0)
		logger.Info().Msg("Using Redis cart locks")
	}

	// Lifecycle events: NATS when configured
	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		nats, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		publisher = nats
		logger.Info().Str("prefix", cfg.NATS.SubjectPrefix).Msg("Publishing lifecycle events to NATS")
	}
	defer publisher.Close()

	gateway, err := billing.NewGateway(billing.GatewayConfig{
		Name:        cfg.Payment.Gateway,
		MerchantID:  cfg.Payment.MerchantID,
		SuccessRate: cfg.Payment.SuccessRate,
		Stripe:      billing.StripeConfig{APIKey: cfg.Payment.StripeSecretKey},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}
	logger.Info().Str("gateway", cfg.Payment.Gateway).Msg("Payment gateway ready")

	tokens, err := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize tokens: %w", err)
	}

	passwords, err := auth.NewPasswords(cfg.Auth.BcryptCost, cfg.Auth.MinPasswordLength)
	if err != nil {
		return fmt.Errorf("failed to initialize password hashing: %w", err)
	}

	// Initialize services
	cartService := service.NewCartService(store, locker)
	orderService := service.NewOrderService(store, publisher)
	paymentService := service.NewPaymentService(store, gateway, publisher, cfg.Payment.Currency)
	productService := service.NewProductService(store)
	userService := service.NewUserService(store, tokens, passwords)

	// Initialize metrics
	metrics := middleware.NewMetrics("basket", nil)
	telemetry.InitBusinessMetrics("basket")

	// Configure security headers
	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.IsDev() {
		securityConfig.HSTSMaxAge = 0 // Disable HSTS in development
	}

	// Configure rate limiting
	rateLimit := middleware.DefaultRateLimiterConfig()
	rateLimit.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
	rateLimit.BurstSize = int(cfg.RateLimit.RequestsPerSecond * 2)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	e := router.New(
		router.Options{Logger: logger, ExposeErrors: cfg.IsDev()},
		middleware.RequestID(),
		middleware.WithRequestLogger(logger),
		metrics.Middleware(),
		middleware.Recover(),
		middleware.SecurityHeaders(securityConfig),
		middleware.CORS(cfg.ClientURL),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.Timeout(middleware.DefaultTimeout),
	)

	routes.RegisterOpsRoutes(e, routes.OpsDeps{
		Metrics: metrics,
		Ready:   pool.Ping,
	})
	routes.RegisterAPIRoutes(e, routes.APIDeps{
		CartHandler:    api.NewCartHandler(cartService),
		OrderHandler:   api.NewOrderHandler(orderService),
		PaymentHandler: api.NewPaymentHandler(paymentService),
		ProductHandler: api.NewProductHandler(productService),
		UserHandler:    api.NewUserHandler(userService),
		Tokens:         tokens,
		RateLimit:      rateLimit,
		AuthRateLimit:  middleware.StrictRateLimiterConfig(),
	})

	// ==========================================================================
	// Start server
	// ==========================================================================

	addr := fmt.Sprintf(":%d", cfg.Port)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("address", addr).Str("env", cfg.Env).Msg("Starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func migrate(ctx context.Context, databaseURL string) error {
	db, err := internal.OpenMigrationDB(databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
