// Command sync-sales writes the "sortie" entries of completed orders in a
// date range for one establishment. Entries already written are skipped.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go-resto-inventory/internal/config"
	"go-resto-inventory/internal/logger"
	"go-resto-inventory/internal/model"
	"go-resto-inventory/internal/repository"
	"go-resto-inventory/internal/service"
	"go-resto-inventory/pkg/database"
	"go-resto-inventory/pkg/lock"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	estFlag := flag.String("establishment", "", "establishment UUID")
	fromFlag := flag.String("from", "", "start date (YYYY-MM-DD)")
	toFlag := flag.String("to", "", "end date (YYYY-MM-DD, inclusive)")
	flag.Parse()

	est, err := uuid.Parse(*estFlag)
	if err != nil {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	loc, _ := cfg.Location()
	from, err := time.ParseInLocation(time.DateOnly, *fromFlag, loc)
	if err != nil {
		log.Fatalf("invalid -from: %v", err)
	}
	to, err := time.ParseInLocation(time.DateOnly, *toFlag, loc)
	if err != nil {
		log.Fatalf("invalid -to: %v", err)
	}
	to = to.Add(24*time.Hour - time.Nanosecond)

	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.Connect(cfg.DSN(), cfg.DBLogLevel)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}

	var locker lock.Locker = lock.Noop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb)
	}

	svc := service.NewOrderService(service.OrderServiceDeps{
		Orders:   repository.NewOrderRepo(db),
		Products: repository.NewProductRepo(db),
		Entries:  repository.NewInventoryEntryRepo(db),
		Locker:   locker,
		LockTTL:  cfg.SyncLockTTL,
		DB:       db,
		Log:      zl,
	})

	system := model.Actor{ID: uuid.Nil, EstablishmentID: est, Role: model.RoleAdmin}
	ctx := logger.WithContext(context.Background(), zl.With(zap.String("command", "sync-sales")))
	res, err := svc.SyncSalesWithInventory(ctx, system, est, from, to)
	if err != nil {
		zl.Fatal("sync failed", zap.Error(err))
	}
	zl.Info("sync finished",
		zap.Int("synced", res.SyncedCount),
		zap.Int("orders", res.TotalOrders),
		zap.Strings("errors", res.Errors))
	if len(res.Errors) > 0 {
		os.Exit(1)
	}
}
