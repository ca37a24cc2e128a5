// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/ludo/internal/auth"
	"github.com/jason-s-yu/ludo/internal/cache"
	"github.com/jason-s-yu/ludo/internal/config"
	"github.com/jason-s-yu/ludo/internal/database"
	"github.com/jason-s-yu/ludo/internal/handlers"
	"github.com/jason-s-yu/ludo/internal/match"
	"github.com/jason-s-yu/ludo/internal/middleware"
	"github.com/jason-s-yu/ludo/internal/registry"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
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

	reg := registry.New(logger, cfg.SendTimeout)
	engine := match.NewEngine(store, rc, reg, logger)
	engine.Journal = rc

	ms := handlers.NewMatchServer(engine, reg, auth.NewVerifier(cfg.JWTSecret))
	ms.SendTimeout = cfg.SendTimeout
	ms.OriginPatterns = cfg.WebSocketOrigins()

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: newRouter(cfg, logger, ms),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Errorf("server exited: %v", err)
	}
}

func newRouter(cfg *config.Config, logger *logrus.Logger, ms *handlers.MatchServer) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))
	r.Use(middleware.LogMiddleware(logger))

	r.Get("/ws", handlers.MatchWSHandler(logger, ms))
	return r
}
