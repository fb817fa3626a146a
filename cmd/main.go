package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ecomarket/order-cart-service/internal/cache"
	"github.com/ecomarket/order-cart-service/internal/client"
	h "github.com/ecomarket/order-cart-service/internal/http"
	"github.com/ecomarket/order-cart-service/internal/publisher"
	"github.com/ecomarket/order-cart-service/internal/repository"
	"github.com/ecomarket/order-cart-service/internal/service"
)

type Config struct {
	HTTPPort        string
	RedisAddr       string
	KafkaBrokers    string
	CatalogURL      string
	UserURL         string
	PaymentURL      string
	NotificationURL string
	RequestTimeout  time.Duration
	GatewayTimeout  time.Duration
	ShutdownTimeout time.Duration
	DB              repository.Credentials
}

func loadConfig() (*Config, error) {
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, err
	}
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8083"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", "localhost:9092"),
		CatalogURL:      getEnv("PRODUCT_CATALOG_SERVICE_URL", "http://localhost:8081"),
		UserURL:         getEnv("USER_SERVICE_URL", "http://localhost:8082"),
		PaymentURL:      getEnv("PAYMENT_SERVICE_URL", "http://localhost:8084"),
		NotificationURL: getEnv("NOTIFICATION_SERVICE_URL", "http://localhost:8085"),
		RequestTimeout:  30 * time.Second,
		GatewayTimeout:  5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DB: repository.Credentials{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              dbPort,
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", "postgres"),
			DBName:            getEnv("DB_NAME", "ecomarket"),
			MigrationsDirPath: getEnv("MIGRATIONS_PATH", "./internal/repository/migrations"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("order-cart-service starting", zap.String("http_port", cfg.HTTPPort))

	repo, err := repository.NewRepository(&cfg.DB)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer repo.Close()

	if err := repo.RunMigrations(&cfg.DB); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations completed")

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	cartCache := cache.NewRedisCache(redisClient)

	httpClient := &http.Client{Timeout: cfg.GatewayTimeout}
	catalogClient := client.NewCatalogClient(cfg.CatalogURL, httpClient, cfg.GatewayTimeout)
	userClient := client.NewUserClient(cfg.UserURL, httpClient, cfg.GatewayTimeout)
	paymentClient := client.NewPaymentClient(cfg.PaymentURL, httpClient, cfg.GatewayTimeout)
	notificationClient := client.NewNotificationClient(cfg.NotificationURL, httpClient, cfg.GatewayTimeout)

	cartService := service.NewCartService(repo, cartCache, logger)
	orderService := service.NewOrderService(
		repo, cartService, catalogClient, userClient, paymentClient, notificationClient, logger)

	// Outbox poller publishes ORDER_CREATED events committed with orders.
	var wg sync.WaitGroup
	poller := publisher.NewOutboxPoller(repo, logger, cfg.KafkaBrokers)
	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Run(pollerCtx)
	}()

	cartHandler := h.NewCartHandler(cartService, cfg.RequestTimeout)
	orderHandler := h.NewOrderHandler(orderService, cfg.RequestTimeout)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.RequestIDMiddleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/carts/{userID}", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{productID}", cartHandler.UpdateQuantity)
			r.Delete("/items/{productID}", cartHandler.RemoveItem)
			r.Delete("/clear", cartHandler.ClearCart)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.CreateOrder)
			r.Get("/user/{userID}", orderHandler.ListOrders)
			r.Get("/{orderID}", orderHandler.GetOrder)
			r.Put("/{orderID}/status", orderHandler.UpdateStatus)
			r.Delete("/{orderID}", orderHandler.DeleteOrder)
			r.Get("/{orderID}/payment", orderHandler.GetPaymentStatus)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	pollerCancel()
	doneChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneChan)
	}()

	select {
	case <-doneChan:
		logger.Info("outbox poller stopped cleanly")
	case <-ctx.Done():
		logger.Warn("outbox poller didn't stop in time")
	}

	logger.Info("order-cart-service stopped")
}
