package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/sumire/homestead/internal/bus"
	"github.com/sumire/homestead/internal/catalog"
	"github.com/sumire/homestead/internal/config"
	"github.com/sumire/homestead/internal/handler"
	"github.com/sumire/homestead/internal/metrics"
	"github.com/sumire/homestead/internal/repository"
	"github.com/sumire/homestead/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg)

	ctx := context.Background()

	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	slog.Info("database connected", "driver", cfg.DatabaseDriver)

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	m := metrics.New()
	jobCfg := service.JobConfig{
		HomeRadius:         cfg.HomeRadius,
		InteractionRadius:  cfg.InteractionRadius,
		BuildRefundPercent: cfg.BuildCancelRefundPercent,
		Metrics:            m,
	}

	if cfg.NATSURL != "" {
		pub, err := bus.Connect(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer pub.Close()
		jobCfg.Events = pub
		slog.Info("event bus connected", "url", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
	}

	jobSvc := service.NewJobService(repository.NewStore(db), cat, jobCfg)
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL)

	e := handler.NewRouter(handler.RouterConfig{
		Jobs:        jobSvc,
		Tokens:      tokens,
		Metrics:     m.Handler(),
		FrontendURL: cfg.FrontendURL,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func setupLogger(cfg config.Config) {
	var h slog.Handler
	if cfg.LogFormat == "text" {
		h = tint.NewHandler(os.Stderr, &tint.Options{Level: cfg.LogLevel, TimeFormat: time.Kitchen})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	slog.SetDefault(slog.New(h))
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}
	return catalog.Load(path)
}
