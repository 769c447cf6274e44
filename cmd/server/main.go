// Package main is the entry point for the wallet service. It wires the
// ledger store, cache, payment gateway and HTTP surface together and
// starts the server.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"lumapay/internal/config"
	"lumapay/internal/gateway"
	"lumapay/internal/handlers"
	"lumapay/internal/middleware"
	"lumapay/internal/repositories"
	"lumapay/internal/repositories/cache"
	"lumapay/internal/services/reconciler"
	"lumapay/internal/services/wallet"
)

func main() {
	config.LoadEnv()

	logger := newLogger()
	defer logger.Sync() //nolint:errcheck

	// Database
	db, err := repositories.InitDB(repositories.DBConfigFromEnv())
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	ledgerRepo := repositories.NewLedgerRepository(db)

	// Redis cache
	redisClient := cache.NewRedisClient(&cache.RedisConfig{
		Host:     config.GetEnv("REDIS_HOST", "localhost"),
		Port:     config.GetEnv("REDIS_PORT", "6379"),
		Password: config.GetEnv("REDIS_PASSWORD", ""),
		DB:       config.GetIntEnv("REDIS_DB", 0),
	})
	walletCache := cache.NewCache(redisClient, config.GetDurationEnv("CACHE_TTL", 5*time.Minute))
	defer walletCache.Close() //nolint:errcheck

	if err := walletCache.HealthCheck(context.Background()); err != nil {
		logger.Warn("redis unavailable, continuing without warm cache", zap.Error(err))
	}

	// Payment gateway
	paymentGateway := newGateway(logger)

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := wallet.NewPrometheusMetrics(registry)
	go serveMetrics(registry, logger)

	// Services
	walletService := wallet.NewService(ledgerRepo, walletCache, paymentGateway, wallet.Config{
		CallbackURL: config.GetEnv("PAYMENT_CALLBACK_URL", ""),
	}, metrics, logger)

	reconcilerService := reconciler.NewService(
		ledgerRepo,
		paymentGateway,
		walletCache,
		config.GetEnv("WEBHOOK_SECRET", ""),
		logger,
	)

	// HTTP surface
	walletHandler := handlers.NewWalletHandler(walletService)
	webhookHandler := handlers.NewWebhookHandler(reconcilerService, logger)
	authMiddleware := middleware.NewAuthMiddleware(config.GetEnv("JWT_SECRET", "lumapay"))

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use("/api/wallet/transfer", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("TRANSFER_RATE_LIMIT", 30),
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	}))

	handlers.SetupRoutes(app, walletHandler, webhookHandler, authMiddleware)

	addr := ":" + config.GetEnv("PORT", "3000")
	logger.Info("starting server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger() *zap.Logger {
	if config.IsProduction() {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}

// newGateway selects the payment gateway implementation. Paystack is
// the default; Stripe Checkout is available behind GATEWAY_PROVIDER.
func newGateway(logger *zap.Logger) gateway.Gateway {
	switch config.GetEnv("GATEWAY_PROVIDER", "paystack") {
	case "stripe":
		return gateway.NewStripeGateway(config.GetEnv("STRIPE_SECRET_KEY", ""), logger)
	default:
		return gateway.NewPaystackClient(config.GetEnv("PAYSTACK_SECRET_KEY", ""), logger)
	}
}

func serveMetrics(registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	addr := ":" + config.GetEnv("METRICS_PORT", "9091")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics listener stopped", zap.Error(err))
	}
}
