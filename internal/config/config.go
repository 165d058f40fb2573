package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr        string
	DatabaseURL string
	SQLitePath  string
	CatalogPath string
	MaxBodySize int64
	CompareMax  int
}

type WorkerConfig struct {
	DatabaseURL string
	SQLitePath  string
	CatalogPath string
	Every       time.Duration
	RunOnce     bool
}

type CLIConfig struct {
	APIBaseURL  string
	Home        string
	CatalogPath string
}

// LoadAPIFromEnv picks Postgres when DATABASE_URL is set, then GYMSIM_SQLITE_PATH,
// and falls back to an in-memory store when neither is present.
func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("GYMSIM_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:        addr,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  strings.TrimSpace(os.Getenv("GYMSIM_SQLITE_PATH")),
		CatalogPath: strings.TrimSpace(os.Getenv("GYMSIM_CATALOG_PATH")),
		MaxBodySize: int64(envIntDefault("GYMSIM_MAX_BODY_BYTES", 1<<20)),
		CompareMax:  envIntDefault("GYMSIM_COMPARE_MAX", 8),
	}
	if cfg.MaxBodySize <= 0 {
		return cfg, fmt.Errorf("GYMSIM_MAX_BODY_BYTES must be positive")
	}
	if cfg.CompareMax < 1 {
		return cfg, fmt.Errorf("GYMSIM_COMPARE_MAX must be at least 1")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:  strings.TrimSpace(os.Getenv("GYMSIM_SQLITE_PATH")),
		CatalogPath: strings.TrimSpace(os.Getenv("GYMSIM_CATALOG_PATH")),
		Every:       envDurationDefault("GYMSIM_WORKER_EVERY", time.Hour),
		RunOnce:     envBoolDefault("GYMSIM_WORKER_RUN_ONCE", false),
	}
	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		return cfg, fmt.Errorf("DATABASE_URL or GYMSIM_SQLITE_PATH is required")
	}
	if cfg.Every <= 0 {
		return cfg, fmt.Errorf("GYMSIM_WORKER_EVERY must be positive")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	home := strings.TrimSpace(os.Getenv("GYMSIM_HOME"))
	if home == "" {
		if userHome, err := os.UserHomeDir(); err == nil {
			home = filepath.Join(userHome, ".gymsim")
		} else {
			home = ".gymsim"
		}
	}
	return CLIConfig{
		APIBaseURL:  strings.TrimRight(envDefault("GYMSIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Home:        home,
		CatalogPath: strings.TrimSpace(os.Getenv("GYMSIM_CATALOG_PATH")),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
