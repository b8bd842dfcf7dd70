package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/quarterfold/suppliersync/internal/domain"
)

type Config struct {
	Env string

	Port string

	StateBackend string // memory | mysql
	MySQLDSN     string // required when STATE_BACKEND=mysql

	// Optional: run migrations at startup (dev convenience)
	RunMigrations bool
	MigrationsDir string

	// Marketplace platform this deployment serves; gates which downstream
	// fields propagate and whether queue messages are sent at all.
	Platform domain.Platform
	ClientID string

	GeneratedSKUPrefix string

	SQSRegion             string
	SQSPusherURL          string
	SQSInventoryPusherURL string

	WorkerPollMs int
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:                   getenv("ENV", "dev"),
		Port:                  getenv("PORT", "8080"),
		StateBackend:          getenv("STATE_BACKEND", "memory"),
		MySQLDSN:              getenv("DB_DSN", ""),
		RunMigrations:         getenv("RUN_MIGRATIONS", "false") == "true",
		MigrationsDir:         getenv("MIGRATIONS_DIR", "./migrations"),
		Platform:              domain.Platform(getenv("MARKETPLACE_PLATFORM", string(domain.PlatformShopify))),
		ClientID:              getenv("CLIENT_ID", ""),
		GeneratedSKUPrefix:    getenv("GENERATED_SKU_PREFIX", "SYNC-"),
		SQSRegion:             getenv("SQS_REGION", "us-east-1"),
		SQSPusherURL:          getenv("SQS_PUSHER_URL", ""),
		SQSInventoryPusherURL: getenv("SQS_INVENTORY_PUSHER_URL", ""),
		WorkerPollMs:          getenvInt("WORKER_POLL_MS", 1000),
	}
	return cfg
}

func getenv(key string, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
