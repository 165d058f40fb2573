package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymsim/internal/config"
	"gymsim/internal/gym"
	"gymsim/internal/planner"
	"gymsim/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
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

	svc := planner.NewService(st, catalog, logger, 0)

	if cfg.RunOnce {
		n, err := svc.RerunAll(ctx)
		if err != nil {
			logger.Error("rerun failed", "plans_ok", n, "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed", "plans", n)
		return
	}

	ticker := time.NewTicker(cfg.Every)
	defer ticker.Stop()

	logger.Info("worker started", "every", cfg.Every.String(), "store", backend)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			start := time.Now()
			n, err := svc.RerunAll(ctx)
			if err != nil {
				logger.Error("rerun finished with errors", "plans_ok", n, "err", err)
				continue
			}
			logger.Info("rerun complete", "plans", n, "elapsed_ms", time.Since(start).Milliseconds())
		}
	}
}
