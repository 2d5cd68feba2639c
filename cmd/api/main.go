package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/scalable-order-system/internal/auth"
	"github.com/fairyhunter13/scalable-order-system/internal/config"
	"github.com/fairyhunter13/scalable-order-system/internal/gateway"
	"github.com/fairyhunter13/scalable-order-system/internal/handler"
	"github.com/fairyhunter13/scalable-order-system/internal/middleware"
	"github.com/fairyhunter13/scalable-order-system/internal/model"
	"github.com/fairyhunter13/scalable-order-system/internal/pricing"
	"github.com/fairyhunter13/scalable-order-system/internal/repository"
	"github.com/fairyhunter13/scalable-order-system/internal/service"
	appvalidator "github.com/fairyhunter13/scalable-order-system/internal/validator"
	"github.com/fairyhunter13/scalable-order-system/internal/worker"
	"github.com/fairyhunter13/scalable-order-system/pkg/database"
)

func main() {
	// Local development convenience; missing .env is fine
	_ = godotenv.Load()

	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Rate cache is optional; pricing degrades to fallback without it
	var cache *redis.Client
	if cfg.Redis.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Scalable Order System",
		ReadTimeout:  30 * time.Second,  // Max time to read request
		WriteTimeout: 30 * time.Second,  // Max time to write response
		IdleTimeout:  120 * time.Second, // Max time for keep-alive connections
		BodyLimit:    1 * 1024 * 1024,   // 1MB body limit (explicit, prevents large payloads)
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator with custom validations
	validate := appvalidator.New()

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	couponRepo := repository.NewCouponRepository(pool)
	usageRepo := repository.NewUsageRepository(pool)
	depositRepo := repository.NewDepositRepository(pool)

	// Payment gateways
	zarinpal := gateway.NewZarinPalClient(
		cfg.ZarinPal.BaseURL, cfg.ZarinPal.PayURL, cfg.ZarinPal.MerchantID,
		cfg.ZarinPal.CallbackURL, time.Duration(cfg.ZarinPal.Timeout)*time.Second,
	)
	crypto := gateway.NewCryptoClient(
		cfg.Crypto.BaseURL, cfg.Crypto.APIKey, cfg.Crypto.Currency,
		time.Duration(cfg.Crypto.Timeout)*time.Second,
	)
	gateways := map[string]service.PaymentGatewayInterface{
		model.DepositGatewayFiat:   zarinpal,
		model.DepositGatewayCrypto: crypto,
	}

	// Detached notification executor
	executor := worker.NewExecutor(
		cfg.Notify.Workers, cfg.Notify.QueueSize,
		time.Duration(cfg.Notify.TaskTimeout)*time.Second,
	)
	notifier := worker.NewWebhookNotifier(cfg.Notify.WebhookURL, 10*time.Second)

	// Services
	tokens := auth.NewJWTService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Hour)
	authService := service.NewAuthService(userRepo, tokens)
	couponService := service.NewCouponService(couponRepo, usageRepo)
	orderService := service.NewOrderService(
		pool, userRepo, orderRepo, productRepo, couponRepo, usageRepo,
		couponService, notifier, executor,
		service.OrderLimits{MinPrice: cfg.Order.MinPrice, MaxPrice: cfg.Order.MaxPrice},
	)
	walletService := service.NewWalletService(pool, userRepo, userRepo, depositRepo, gateways)
	normalizer := pricing.NewNormalizer(crypto, cache, pricing.Policy{
		FloorRate:    cfg.Pricing.FloorRate,
		FallbackRate: cfg.Pricing.FallbackRate,
		CacheTTL:     time.Duration(cfg.Pricing.CacheTTL) * time.Second,
	})

	// Handlers
	authHandler := handler.NewAuthHandler(authService, validate)
	orderHandler := handler.NewOrderHandler(orderService, validate)
	couponHandler := handler.NewCouponHandler(couponService, validate)
	walletHandler := handler.NewWalletHandler(walletService, validate)
	adminHandler := handler.NewAdminHandler(couponService, orderService, validate)
	ratesHandler := handler.NewRatesHandler(normalizer)
	var cachePinger handler.CachePinger
	if cache != nil {
		cachePinger = cache
	}
	healthHandler := handler.NewHealthHandler(pool, cachePinger)

	// Routes
	app.Get("/health", healthHandler.Check)
	app.Post("/api/auth/register", authHandler.Register)
	app.Post("/api/auth/login", authHandler.Login)
	app.Get("/api/rates/:pair", ratesHandler.GetRate)
	app.Get("/api/wallet/deposits/verify", walletHandler.VerifyDeposit) // gateway callback, unauthenticated

	authed := app.Group("/api", middleware.RequireAuth(tokens))
	authed.Get("/wallet", walletHandler.GetWallet)
	authed.Post("/wallet/deposits", walletHandler.CreateDeposit)
	authed.Post("/orders", orderHandler.CreateOrder)
	authed.Get("/orders", orderHandler.ListOrders)
	authed.Get("/orders/:id", orderHandler.GetOrder)
	authed.Put("/orders/:id/cancel", orderHandler.CancelOrder)
	authed.Delete("/orders/:id", orderHandler.DeleteOrder)
	authed.Post("/coupons/validate", couponHandler.ValidateCoupon)

	admin := authed.Group("/admin", middleware.RequireAdmin())
	admin.Post("/coupons", adminHandler.CreateCoupon)
	admin.Get("/coupons/:code", adminHandler.GetCoupon)
	admin.Post("/orders/:id/refund", adminHandler.RefundOrder)
	admin.Put("/orders/:id/status", adminHandler.UpdateOrderStatus)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Drain pending notifications before closing the pool
	log.Info().Msg("draining notification queue...")
	executor.Close()

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	if cache != nil {
		_ = cache.Close()
	}
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
