// Package app wires configuration, storage, and the HTTP surface into a
// runnable application.
package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/creditlab/payment-service/internal/module/auth"
	"github.com/creditlab/payment-service/internal/module/credit"
	"github.com/creditlab/payment-service/internal/module/payment"
	"github.com/creditlab/payment-service/internal/module/payment/provider"
	"github.com/creditlab/payment-service/internal/shared/cache"
	"github.com/creditlab/payment-service/internal/shared/config"
	"github.com/creditlab/payment-service/internal/shared/database"
	"github.com/creditlab/payment-service/internal/shared/logger"
	"github.com/creditlab/payment-service/internal/utils/metrics"
	"github.com/creditlab/payment-service/internal/utils/middleware"
)

// App holds the application dependencies and HTTP router.
type App struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *gorm.DB
	redis  *redis.Client
	router *gin.Engine
}

// New builds the application from configuration.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrate(&payment.Payment{}, &payment.WebhookEvent{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	// Redis only backs the rate limiter; without it the service runs
	// unlimited.
	var redisClient *redis.Client
	var limiter middleware.RateLimiter
	if cfg.Redis.Address != "" {
		redisClient, err = cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		limiter = cache.NewRateLimiter(redisClient)
	} else {
		log.Warn("redis not configured, rate limiting disabled")
	}

	m := metrics.New("")

	jwtManager := auth.NewJWTManager(&auth.JWTConfig{
		Secret:             cfg.Auth.JWTSecret,
		Issuer:             cfg.Auth.Issuer,
		ServiceTokenExpiry: cfg.Auth.ServiceTokenExpiry,
	})

	stripeProvider := provider.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, log)

	creditClient := credit.NewClient(&credit.Config{
		BaseURL: cfg.Credit.BaseURL,
		Timeout: cfg.Credit.Timeout,
	}, jwtManager, log)

	paymentRepo := payment.NewRepository(db)
	paymentSvc := payment.NewService(
		paymentRepo,
		stripeProvider,
		creditClient,
		payment.AccessPolicy{AllowOwnerTransitions: cfg.Features.AllowOwnerTransitions},
		m,
		cfg.Stripe.SuccessURL,
		cfg.Stripe.CancelURL,
		log,
	)
	paymentHandler := payment.NewHandler(paymentSvc, log)
	webhookHandler := payment.NewWebhookHandler(paymentSvc, stripeProvider, paymentRepo, m, log)

	router := buildRouter(cfg, log, m, limiter, jwtManager, paymentHandler, webhookHandler)

	return &App{
		cfg:    cfg,
		log:    log,
		db:     db,
		redis:  redisClient,
		router: router,
	}, nil
}

// buildRouter assembles the middleware chain and routes.
func buildRouter(
	cfg *config.Config,
	log *zap.Logger,
	m *metrics.Metrics,
	limiter middleware.RateLimiter,
	jwtManager *auth.JWTManager,
	paymentHandler *payment.Handler,
	webhookHandler *payment.WebhookHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging(log))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.RateLimit(limiter, middleware.RateLimitConfig{
		Limit:  cfg.Server.RateLimit,
		Window: cfg.Server.RateLimitWindow,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "payment-service",
			"status":  "ok",
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Webhooks authenticate by signature, not by JWT, and need the raw
	// body, so they sit outside the authenticated group.
	router.POST("/webhooks/stripe", webhookHandler.Handle)

	payments := router.Group("/payments",
		middleware.RequireAuth(jwtManager),
		middleware.RateLimitByUser(limiter, cfg.Server.RateLimit, cfg.Server.RateLimitWindow),
	)

	adminOnly := middleware.RequireRoles(auth.RoleAdmin)
	transitionRoles := []string{auth.RoleAdmin, auth.RoleService}
	if cfg.Features.AllowOwnerTransitions {
		transitionRoles = append(transitionRoles, auth.RoleUser)
	}
	paymentHandler.RegisterRoutes(payments, adminOnly, middleware.RequireRoles(transitionRoles...))

	return router
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler {
	return a.router
}

// Close releases held resources.
func (a *App) Close() {
	if a.redis != nil {
		if err := cache.Close(a.redis); err != nil {
			a.log.Warn("failed to close redis", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.log.Warn("failed to close database", zap.Error(err))
	}
	_ = a.log.Sync()
}

// Logger exposes the application logger for the process entrypoint.
func (a *App) Logger() *zap.Logger {
	return a.log
}
