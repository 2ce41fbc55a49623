package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cartapp "github.com/storefront/backend/internal/application/cart"
	checkoutapp "github.com/storefront/backend/internal/application/checkout"
	returnsapp "github.com/storefront/backend/internal/application/returns"
	"github.com/storefront/backend/internal/application/sessions"
	shippingapp "github.com/storefront/backend/internal/application/shipping"
	"github.com/storefront/backend/internal/domain/session"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/gateway"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/payment"
	"github.com/storefront/backend/internal/infrastructure/snapshot"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Snapshot store
	store, closeStore, err := newSnapshotStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize snapshot store", zap.Error(err))
	}
	defer closeStore()

	// Upstream service clients
	timeout := cfg.Gateway.Timeout
	stockClient, err := gateway.NewStockClient(&gateway.Config{BaseURL: cfg.Gateway.StockURL, Timeout: timeout})
	if err != nil {
		log.Fatal("Failed to initialize stock client", zap.Error(err))
	}
	promotionClient, err := gateway.NewPromotionClient(&gateway.Config{BaseURL: cfg.Gateway.PromotionURL, Timeout: timeout})
	if err != nil {
		log.Fatal("Failed to initialize promotion client", zap.Error(err))
	}
	addressClient, err := gateway.NewAddressClient(&gateway.Config{BaseURL: cfg.Gateway.AddressURL, Timeout: timeout})
	if err != nil {
		log.Fatal("Failed to initialize address client", zap.Error(err))
	}
	rateClient, err := gateway.NewRateClient(&gateway.Config{BaseURL: cfg.Gateway.RatesURL, Timeout: timeout})
	if err != nil {
		log.Fatal("Failed to initialize rate client", zap.Error(err))
	}
	orderClient, err := gateway.NewOrderClient(&gateway.Config{BaseURL: cfg.Gateway.OrdersURL, Timeout: timeout})
	if err != nil {
		log.Fatal("Failed to initialize order client", zap.Error(err))
	}

	// Payment gateway
	stripeGateway, err := payment.NewStripeGateway(&payment.StripeConfig{
		SecretKey:  cfg.Stripe.SecretKey,
		IsTestMode: !cfg.IsProduction(),
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	// Session manager and application services
	manager := sessions.NewManager(store, valueobject.Currency(cfg.App.Currency), log)
	cartService := cartapp.NewService(manager, stockClient, promotionClient, log)
	shippingService := shippingapp.NewService(manager, addressClient, rateClient, log)
	checkoutService := checkoutapp.NewService(manager, stripeGateway, orderClient, log)
	returnsService := returnsapp.NewService(manager, orderClient, rateClient, rateClient, stripeGateway, orderClient, log)

	// HTTP engine
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	middleware.SetupValidator()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(corsConfig),
		middleware.Session(),
	)

	router.Mount(engine, "v1",
		handler.NewCartHandler(cartService),
		handler.NewShippingHandler(shippingService),
		handler.NewCheckoutHandler(checkoutService),
		handler.NewReturnsHandler(returnsService),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newSnapshotStore builds the configured snapshot store and returns a
// close function for shutdown.
func newSnapshotStore(cfg *config.Config, log *zap.Logger) (session.Store, func(), error) {
	switch cfg.Snapshot.Backend {
	case "redis":
		store, err := snapshot.NewRedisStore(snapshot.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Snapshot.TTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using Redis snapshot store", zap.String("addr", cfg.RedisAddr()))
		return store, func() { _ = store.Close() }, nil
	case "sqlite":
		store, err := snapshot.NewSQLiteStore(cfg.Snapshot.Path, cfg.Snapshot.TTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using SQLite snapshot store", zap.String("path", cfg.Snapshot.Path))
		return store, func() { _ = store.Close() }, nil
	default:
		store := snapshot.NewInMemoryStore(cfg.Snapshot.TTL)
		log.Info("Using in-memory snapshot store")
		return store, func() { _ = store.Close() }, nil
	}
}
