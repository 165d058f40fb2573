package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymsim/internal/api"
	"gymsim/internal/config"
	"gymsim/internal/gym"
	"gymsim/internal/planner"
	"gymsim/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	catalog := gym.DefaultCatalog()
	if cfg.CatalogPath != "" {
		if catalog, err = gym.LoadCatalogYAML(cfg.CatalogPath); err != nil {
			logger.Error("catalog load failed", "path", cfg.CatalogPath, "err", err)
			os.Exit(1)
		}
	}

	st, backend, err := store.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		logger.Error("store open failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	if backend == "memory" {
		logger.Warn("no DATABASE_URL or GYMSIM_SQLITE_PATH, saved plans will not survive a restart")
	}

	svc := planner.NewService(st, catalog, logger, cfg.CompareMax)
	server := api.New(cfg, logger, svc)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("gymsim api listening", "addr", cfg.Addr, "store", backend, "gyms", catalog.TotalGyms())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
