// cmd/historian/main.go drains the move journal from Redis into PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/ludo/internal/cache"
	"github.com/jason-s-yu/ludo/internal/config"
	"github.com/jason-s-yu/ludo/internal/database"
	"github.com/jason-s-yu/ludo/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	store := database.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	rc, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.MoveJournalQueue)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rc.Close()

	svc := historian.New(rc.Rdb, rc.QueueName, store, logger)
	svc.BatchSize = cfg.HistorianBatchSize
	svc.FlushDelay = cfg.HistorianFlushDelay()

	if err := svc.Run(ctx); err != nil {
		logger.Errorf("historian exited: %v", err)
	}
}
