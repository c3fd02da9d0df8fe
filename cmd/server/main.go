package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shipment-sync/config"
	"shipment-sync/internal/api"
	"shipment-sync/internal/broker"
	"shipment-sync/internal/clients"
	"shipment-sync/internal/redisclient"
	"shipment-sync/internal/retry"
	"shipment-sync/internal/service"
	"shipment-sync/internal/shipment"
	"shipment-sync/internal/store"
	"shipment-sync/internal/util"
	"shipment-sync/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting shipment sync service")

	warnings, err := cfg.Validate()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	for _, w := range warnings {
		logger.Warn(w)
	}

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database schema up to date")
	}

	// the status cache is optional, the store stays authoritative
	var cache service.StatusCache
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.StatusTTL)
	if err != nil {
		logger.Warn("Redis unavailable, running without status cache", zap.Error(err))
	} else {
		defer redisClient.Close()
		cache = redisClient
		logger.Info("Redis connected")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicShipments)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicShipments))

	eventPublisher := broker.NewEventPublisher(producer)

	policy := retry.NewPolicy(cfg.Sync.MaxRetries, cfg.Sync.RetryDelay, logger)
	carrier := clients.NewCarrierClient(cfg, policy, logger)
	storefront := clients.NewStorefrontClient(cfg, policy, logger)

	orchestrator := service.NewSyncOrchestrator(
		shipment.NewBuilder(cfg),
		carrier,
		storefront,
		db,
		cache,
		eventPublisher,
		logger,
	)
	reconciler := service.NewReconciler(
		db,
		carrier,
		storefront,
		cache,
		eventPublisher,
		cfg.Sync.MaxRetryCount(),
		cfg.Sync.ScanPause,
		logger,
	)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	trackingWorker := worker.NewTrackingWorker(reconciler, cfg.Sync.TrackerInterval)
	go func() {
		if err := trackingWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Tracking worker error", zap.Error(err))
		}
	}()

	var orderWorker *worker.OrderWorker
	if cfg.Kafka.ConsumeOrders {
		orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders, cfg.Kafka.ConsumerGroup)
		orderWorker = worker.NewOrderWorker(orderConsumer, orchestrator)
		go func() {
			if err := orderWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Order worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	handler := api.NewHandler(orchestrator, db, cfg)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if orderWorker != nil {
		if err := orderWorker.Stop(); err != nil {
			logger.Error("Failed to stop order worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}
