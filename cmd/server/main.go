package main

import (
	"context"
	"os"
	"time"

	"sales_sync/internal/breaker"
	"sales_sync/internal/config"
	"sales_sync/internal/database"
	"sales_sync/internal/handlers"
	"sales_sync/internal/normalize"
	"sales_sync/internal/pubsub"
	"sales_sync/internal/remote"
	"sales_sync/internal/repository"
	"sales_sync/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Initialize the durable local store
	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open local database", zap.Error(err))
	}

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	events := pubsub.NewEvents()
	brk := breaker.New(settingsRepo, events, logger)

	// Remote store: shared Redis when configured, in-memory otherwise
	// (pure offline / development mode).
	var store remote.Store
	if cfg.RedisURL != "" {
		store, err = remote.NewRedisStore(cfg.RedisURL, cfg.BatchChunkSize,
			time.Duration(cfg.BatchChunkDelayMs)*time.Millisecond)
		if err != nil {
			logger.Fatal("failed to connect to remote store", zap.Error(err))
		}
	} else {
		logger.Info("no REDIS_URL configured, running with in-memory remote")
		store = remote.NewMemoryStore()
	}
	defer store.Close()

	// Initialize services
	syncService := services.NewSyncService(customerRepo, productRepo, orderRepo,
		store, brk, events, time.Duration(cfg.SyncDebounceMs)*time.Millisecond, logger)
	identityService := services.NewIdentityService(customerRepo, normalize.TokenOverlap{}, events, logger)
	orderService := services.NewOrderService(orderRepo, customerRepo, productRepo,
		identityService, syncService, store, brk, logger)
	stockService := services.NewStockService(productRepo, syncService.Products, store, brk, logger)
	priorityService := services.NewPriorityService(customerRepo, identityService,
		syncService.Customers, store, brk, logger)
	dedupService := services.NewDedupService(customerRepo, productRepo, orderRepo,
		syncService, store, brk, logger)
	settingsService := services.NewSettingsService(settingsRepo)
	if cfg.CurrentUser != "" {
		if err := settingsService.SetCurrentUser(cfg.CurrentUser); err != nil {
			logger.Warn("failed to store current user", zap.Error(err))
		}
	}

	if err := syncService.Start(context.Background()); err != nil {
		logger.Fatal("failed to start sync", zap.Error(err))
	}
	defer syncService.Stop()

	// Initialize handler
	apiHandler := handlers.NewAPIHandler(syncService, identityService, orderService,
		stockService, priorityService, dedupService, settingsService, brk, events)

	// Setup routes
	router := gin.Default()

	api := router.Group("/api")
	{
		api.GET("/customers", apiHandler.GetCustomers)
		api.POST("/customers/resolve", apiHandler.ResolveCustomer)
		api.GET("/customers/:id/orders", apiHandler.GetCustomerOrders)

		api.GET("/products", apiHandler.GetProducts)
		api.POST("/products/:id/adjust-stock", apiHandler.AdjustStock)

		api.GET("/orders", apiHandler.GetOrders)
		api.GET("/orders/batch/:batch", apiHandler.GetBatchOrders)
		api.POST("/orders", apiHandler.SaveOrder)
		api.PUT("/orders/:id/status", apiHandler.UpdateOrderStatus)
		api.PUT("/orders/:id/payment", apiHandler.SetOrderPayment)
		api.POST("/orders/:id/remind", apiHandler.RemindOrder)
		api.DELETE("/orders/:id", apiHandler.DeleteOrder)

		api.POST("/routes/learn", apiHandler.LearnRoute)

		api.POST("/maintenance/merge-customers", apiHandler.MergeCustomers)
		api.POST("/maintenance/split-customers", apiHandler.SplitCustomers)
		api.POST("/maintenance/recalculate-stock", apiHandler.RecalculateStock)

		api.GET("/mode", apiHandler.GetMode)
		api.GET("/settings/current-user", apiHandler.GetCurrentUser)
		api.PUT("/settings/current-user", apiHandler.SetCurrentUser)

		api.POST("/notifications/read", apiHandler.MarkNotificationRead)
	}

	// Start server
	logger.Info("server starting", zap.String("port", cfg.ServerPort))
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("ENV") == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
