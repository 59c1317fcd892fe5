package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/clients"
	"storefront-service/config"
	"storefront-service/controllers"
	"storefront-service/database"
	apperrors "storefront-service/errors"
	"storefront-service/events"
	"storefront-service/identity"
	"storefront-service/logger"
	"storefront-service/metrics"
	"storefront-service/middleware"
	awspkg "storefront-service/pkg/aws"
	"storefront-service/routes"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "storefront-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── CloudWatch Logs + Metrics ──
	var (
		cwWriter  io.Writer
		cwMetrics *awspkg.MetricsClient
	)
	awsCfg, awsErr := awspkg.LoadAWSConfig(ctx)
	if awsErr != nil {
		log.Printf("AWS config unavailable, AWS integrations disabled: %v", awsErr)
	}
	if cfg.CloudWatchEnabled && awsErr == nil {
		cwLogs, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			log.Printf("CloudWatch Logs init failed: %v", err)
		} else {
			cwWriter = cwLogs
		}
		cwMetrics = awspkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace, true)
	}

	zapLogger := logger.InitializeWithWriter(cfg.AppEnv, cwWriter)
	defer func() { _ = zapLogger.Sync() }()

	// Prices go over the wire as JSON numbers, as the backend sends them.
	decimal.MarshalJSONWithoutQuotes = true

	// ── Backend gateways ──
	gateway := clients.NewGatewayClient(cfg.RequestTimeout)
	catalog := clients.NewCatalogClient(gateway, cfg.ProductsURL, cfg.CategoryURL)
	orders := clients.NewOrderClient(gateway, cfg.OrdersURL)

	// ── Redis (optional) ──
	var (
		redisClient *redis.Client
		carts       *database.CartRepository
		idempotency *database.IdempotencyRepository
		refCache    *database.ReferenceCache
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		carts = database.NewCartRepository(redisClient, cfg.CartSnapshotTTL)
		idempotency = database.NewIdempotencyRepository(redisClient, cfg.IdempotencyTTL)
		refCache = database.NewReferenceCache(redisClient, cfg.ReferenceCacheTTL)
		zapLogger.Info("Connected to Redis")
	}
	reference := services.NewReferenceData(
		clients.NewReferenceClient(gateway, cfg.CountriesURL, cfg.StatesURL), refCache, zapLogger)

	// ── Order events ──
	var publishers events.Fanout
	if cfg.OrderEventsTopicARN != "" && awsErr == nil {
		sns, err := events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.OrderEventsTopicARN)
		if err != nil {
			zapLogger.Fatal("Failed to create SNS publisher", zap.Error(err))
		}
		publishers = append(publishers, sns)
	}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		defer kafka.Close()
		publishers = append(publishers, kafka)
	}
	var orderEvents events.OrderEventPublisher
	if len(publishers) > 0 {
		orderEvents = publishers
	}

	// ── Identity ──
	var provider *identity.Provider
	if cfg.OIDCEnabled() {
		provider, err = identity.NewProvider(identity.Config{
			Issuer:        cfg.OIDCIssuer,
			ClientID:      cfg.OIDCClientID,
			RedirectURI:   cfg.OIDCRedirectURI,
			Scopes:        cfg.OIDCScopes,
			SigningSecret: cfg.OIDCSigningSecret,
			PublicKeyPEM:  cfg.OIDCPublicKeyPEM,
		})
		if err != nil {
			zapLogger.Fatal("Failed to configure identity provider", zap.Error(err))
		}
	} else {
		zapLogger.Warn("OIDC not configured, login disabled")
	}

	// ── Sessions ──
	sessions := services.NewSessionStore(services.SessionDeps{
		Catalog:         catalog,
		DefaultCategory: cfg.DefaultCategoryID,
		DefaultPageSize: cfg.DefaultPageSize,
		Checkout: services.CheckoutDeps{
			Reference: reference,
			Orders:    orders,
			Events:    orderEvents,
			Validator: services.NewDraftValidator(),
		},
		Carts:  carts,
		TTL:    cfg.SessionTTL,
		Logger: zapLogger,
	})
	go sessions.RunSweeper(ctx, time.Minute)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	serverMetrics := metrics.NewServerMetrics(registry)

	limiter := middleware.NewRateLimiter(rate.Every(time.Minute/300), 100, 5*time.Minute)
	go limiter.RunCleanup(ctx)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zapLogger))
	r.Use(middleware.MetricsMiddleware(serverMetrics, cwMetrics, serviceName))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(limiter.Middleware())
	r.Use(apperrors.ErrorMiddleware())

	cookie := middleware.SessionOptions{MaxAge: cfg.SessionTTL, Secure: cfg.IsProduction()}
	routes.RegisterRoutes(r, routes.Controllers{
		Catalog:  controllers.NewCatalogController(catalog),
		Cart:     controllers.NewCartController(sessions, catalog, serverMetrics),
		Checkout: controllers.NewCheckoutController(sessions, idempotency, serverMetrics, cwMetrics),
		Auth:     controllers.NewAuthController(provider, sessions, cookie, nil),
	}, routes.Options{
		Sessions: sessions,
		Cookie:   cookie,
		Metrics:  serverMetrics,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		zapLogger.Info("Starting storefront service", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting")
}
