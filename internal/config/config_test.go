package config

import (
	"log/slog"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PORT", "ENVIRONMENT", "LOG_LEVEL", "STORAGE_DRIVER", "DATA_DIR", "DATABASE_URL",
		"REDIS_URL", "MENU_CACHE_TTL", "ALLOWED_ORIGINS", "KAFKA_BROKERS", "EVENTS_TOPIC", "SEED_MENU",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != "5000" || cfg.Environment != "development" || cfg.LogLevel != slog.LevelInfo {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Storage.Driver != StorageFile || cfg.Storage.DataDir != "./data" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Redis.MenuCacheTTL != 5*time.Minute {
		t.Errorf("MenuCacheTTL = %v, want 5m", cfg.Redis.MenuCacheTTL)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, defaultAllowedOrigins) {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.Events.Topic != "portal.events" || cfg.Events.KafkaBrokers != nil {
		t.Errorf("events = %+v", cfg.Events)
	}
	if cfg.SeedMenu || cfg.IsProduction() {
		t.Error("SeedMenu and IsProduction should default to false")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_DRIVER", "POSTGRES")
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")
	t.Setenv("MENU_CACHE_TTL", "30s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SEED_MENU", "true")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != "8080" || !cfg.IsProduction() || cfg.LogLevel != slog.LevelDebug {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Storage.Driver != StoragePostgres {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Redis.MenuCacheTTL != 30*time.Second {
		t.Errorf("ttl = %v", cfg.Redis.MenuCacheTTL)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
	if !reflect.DeepEqual(cfg.Events.KafkaBrokers, []string{"k1:9092", "k2:9092"}) {
		t.Errorf("brokers = %v", cfg.Events.KafkaBrokers)
	}
	if !cfg.SeedMenu {
		t.Error("SeedMenu should be true")
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"STORAGE_DRIVER": "mongo"}},
		{name: "postgres without dsn", env: map[string]string{"STORAGE_DRIVER": "postgres"}},
		{name: "bad level", env: map[string]string{"LOG_LEVEL": "loud"}},
		{name: "bad ttl", env: map[string]string{"MENU_CACHE_TTL": "soon"}},
		{name: "negative ttl", env: map[string]string{"MENU_CACHE_TTL": "-1m"}},
		{name: "bad seed flag", env: map[string]string{"SEED_MENU": "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(); err == nil {
				t.Error("LoadConfig() error = nil, want error")
			}
		})
	}
}
