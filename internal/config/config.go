package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/SAP-F-2025/college-portal-service/internal/utils"
)

const (
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

var defaultAllowedOrigins = []string{
	"http://localhost:5003",
	"http://localhost:5173",
	"http://localhost:5004",
	"http://localhost:5001",
	"http://localhost:5002",
}

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	Storage StorageConfig
	Redis   RedisConfig
	Events  EventsConfig

	AllowedOrigins []string
	SeedMenu       bool
}

type StorageConfig struct {
	Driver      string
	DataDir     string
	DatabaseURL string
}

type RedisConfig struct {
	URL          string
	MenuCacheTTL time.Duration
}

type EventsConfig struct {
	KafkaBrokers []string
	Topic        string
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	level, err := utils.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	ttl, err := time.ParseDuration(getEnv("MENU_CACHE_TTL", "5m"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid MENU_CACHE_TTL %q", os.Getenv("MENU_CACHE_TTL"))
	}

	seed, err := strconv.ParseBool(getEnv("SEED_MENU", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_MENU: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    level,
		Storage: StorageConfig{
			Driver:      strings.ToLower(getEnv("STORAGE_DRIVER", StorageFile)),
			DataDir:     getEnv("DATA_DIR", "./data"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			MenuCacheTTL: ttl,
		},
		Events: EventsConfig{
			KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:        getEnv("EVENTS_TOPIC", "portal.events"),
		},
		AllowedOrigins: defaultAllowedOrigins,
		SeedMenu:       seed,
	}
	if origins := splitList(os.Getenv("ALLOWED_ORIGINS")); len(origins) > 0 {
		cfg.AllowedOrigins = origins
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageFile:
		if c.Storage.DataDir == "" {
			return errors.New("DATA_DIR must not be empty")
		}
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Port == "" {
		return errors.New("PORT must not be empty")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
