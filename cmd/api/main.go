package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-resto-inventory/internal/config"
	"go-resto-inventory/internal/handler"
	"go-resto-inventory/internal/logger"
	"go-resto-inventory/internal/middleware"
	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/repository"
	"go-resto-inventory/internal/service"
	"go-resto-inventory/internal/ws"
	"go-resto-inventory/pkg/cache"
	"go-resto-inventory/pkg/database"
	"go-resto-inventory/pkg/jwt"
	"go-resto-inventory/pkg/lock"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()
	loc, _ := cfg.Location()

	// 2. Setup Database
	db, err := database.Connect(cfg.DSN(), cfg.DBLogLevel)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}

	// 3. Optional redis: sync lock and statistics cache
	var locker lock.Locker = lock.Noop{}
	var statsCache *cache.JSONCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zl.Warn("redis unreachable, running without lock and cache", zap.Error(err))
		} else {
			locker = lock.NewRedisLocker(rdb)
			statsCache = cache.NewJSONCache(rdb, "stats", cfg.StatsCacheTTL)
		}
	}

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub(zl)
	go wsHub.Run()

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	entryRepo := repository.NewInventoryEntryRepo(db)
	aggregateRepo := repository.NewAggregateRepo(db)
	procurementRepo := repository.NewProcurementRepo(db)
	movementRepo := repository.NewStockMovementRepo(db)
	orderRepo := repository.NewOrderRepo(db)

	aggService := service.NewAggregationService(aggregateRepo, nil, loc, zl)
	productService := service.NewProductService(productRepo, zl)
	invService := service.NewInventoryService(productRepo, entryRepo, aggService, db, wsHub, nil, zl)
	procService := service.NewProcurementService(procurementRepo, productRepo, movementRepo, db, wsHub, nil, zl)
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:     orderRepo,
		Products:   productRepo,
		Entries:    entryRepo,
		Aggregator: aggService,
		Locker:     locker,
		LockTTL:    cfg.SyncLockTTL,
		DB:         db,
		Hub:        wsHub,
		Log:        zl,
	})
	statsService := service.NewStatsService(productRepo, entryRepo, aggregateRepo, statsCache, nil, loc, zl)
	reportService := service.NewReportService(aggService)

	productHandler := handler.NewProductHandler(productService)
	invHandler := handler.NewInventoryHandler(invService, statsService, loc)
	procHandler := handler.NewProcurementHandler(procService, statsService)
	orderHandler := handler.NewOrderHandler(orderService, statsService, loc)
	statsHandler := handler.NewStatsHandler(statsService, aggService, reportService, loc)

	tokens := jwt.NewManager(cfg.JWTSecret, cfg.JWTTTL)

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Resto Inventory v1.0",
	})

	app.Use(requestid.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(middleware.RequestLogger(zl))

	// 7. Routes
	api := app.Group("/api/v1", middleware.RequireAuth(tokens))
	managers := middleware.RequireRole(model.RoleAdmin, model.RoleManager)

	// Products
	api.Get("/products", productHandler.GetProducts)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Get("/products/:id/stock", productHandler.GetStock)
	api.Post("/products", managers, productHandler.CreateProduct)
	api.Put("/products/:id", managers, productHandler.UpdateProduct)

	// Inventory entries
	inv := api.Group("/inventory")
	inv.Get("/entries", invHandler.ListEntries)
	inv.Get("/entries/:id", invHandler.GetEntry)
	inv.Post("/entries", invHandler.CreateEntry)
	inv.Put("/entries/:id", invHandler.UpdateEntry)
	inv.Delete("/entries/:id", invHandler.DeleteEntry)

	// Aggregates, statistics and reports
	inv.Get("/aggregates", statsHandler.GetInventoryAggregates)
	inv.Get("/profits", statsHandler.GetProfitAggregates)
	inv.Get("/statistics", statsHandler.GetStatistics)
	inv.Get("/losses", statsHandler.GetLosses)
	inv.Get("/export", statsHandler.ExportInventory)
	inv.Post("/sync/sales", managers, orderHandler.SyncSales)

	// Procurement
	api.Get("/procurements", procHandler.GetProcurements)
	api.Get("/procurements/:id", procHandler.GetProcurement)
	api.Post("/procurements", managers, procHandler.CreateProcurement)
	api.Put("/procurements/:id", managers, procHandler.UpdateProcurement)
	api.Patch("/procurements/:id/status", managers, procHandler.UpdateStatus)
	api.Delete("/procurements/:id", managers, procHandler.DeleteProcurement)
	api.Get("/stock-movements", procHandler.GetMovements)

	// Orders
	api.Post("/orders", orderHandler.CreateOrder)
	api.Get("/orders/:id", orderHandler.GetOrder)
	api.Patch("/orders/:id/status", orderHandler.UpdateStatus)

	// WebSocket Route: authenticated, bound to the actor's establishment
	app.Use("/ws", middleware.RequireStreamAuth(tokens))
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		est, ok := c.Locals(middleware.SubscriptionKey).(uuid.UUID)
		if !ok || !wsHub.Join(&ws.Client{Conn: c, EstablishmentID: est}) {
			return
		}
		defer wsHub.Leave(c)

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(cfg.Address()); err != nil {
			zl.Panic("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		zl.Fatal("server forced to shutdown", zap.Error(err))
	}
	wsHub.Stop()
	zl.Info("server exited")
}
