package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/mixzter/duel/internal/config"
	"github.com/mixzter/duel/internal/database"
	"github.com/mixzter/duel/internal/handler/health"
	"github.com/mixzter/duel/internal/match"
	"github.com/mixzter/duel/internal/migrations"
	"github.com/mixzter/duel/internal/provider"
	"github.com/mixzter/duel/internal/server"
	"github.com/mixzter/duel/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Store ---
	checks := map[string]health.Checker{}
	var st server.Store

	switch cfg.Store {
	case "redis":
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		st = store.NewRedis(rdb, "mixzter:")
		checks["redis"] = redisChecker{rdb}
	default:
		db, err := openSQLite(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("connecting to sqlite: %w", err)
		}
		defer db.Close()
		logger.Info("connected to sqlite", "path", cfg.DBPath)

		st = store.NewSQLite(db)
		checks["sqlite"] = health.CheckFunc(db.PingContext)
	}

	// --- Fact source ---
	source, err := newFactSource(cfg, logger)
	if err != nil {
		return err
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Options{
		Store: st,
		Engine: match.Options{
			Provider: source,
			Logger:   logger,
			HintSize: cfg.HintSize,
			Strict:   cfg.Strict,
		},
		FactTimeout: cfg.FactTimeout,
		StartTokens: cfg.StartTokens,
		PublicURL:   cfg.PublicURL,
		SPADir:      cfg.SPADir,
		Mount: func(r chi.Router) {
			r.Mount("/healthz", health.NewHandler(logger, checks).Routes())
		},
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr, "store", cfg.Store, "facts", cfg.FactSource)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := database.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}

func newFactSource(cfg *config.Config, logger *slog.Logger) (match.FactProvider, error) {
	switch cfg.FactSource {
	case "gemini":
		g := provider.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel)
		logger.Info("using gemini fact source", "model", cfg.GeminiModel)
		return provider.NewRetrying(g, cfg.FactRetries+1, 500*time.Millisecond, logger), nil
	default:
		c, err := provider.NewCatalog(uint64(time.Now().UnixNano()))
		if err != nil {
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		logger.Info("using built-in song catalog")
		return c, nil
	}
}

// redisChecker adapts *redis.Client to health.Checker.
type redisChecker struct{ client *redis.Client }

func (r redisChecker) Check(ctx context.Context) error { return r.client.Ping(ctx).Err() }
