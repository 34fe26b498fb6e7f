package config

import (
	"fmt"
	"os"
	"time"

	"league-ratings/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

const (
	BackendSQL      = "sql"
	BackendSupabase = "supabase"
)

type Config struct {
	ServerPort   string
	LogLevel     string
	StoreBackend string

	DBDriver string
	DBDSN    string

	SupabaseURL string
	SupabaseKey string

	JWTSecret string

	RedisURL      string
	RedisPassword string
	MatchLockTTL  time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		StoreBackend:  getEnv("STORE_BACKEND", BackendSQL),
		DBDriver:      getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:         getEnv("DB_DSN", "league.db"),
		SupabaseURL:   getEnv("SUPABASE_URL", ""),
		SupabaseKey:   getEnv("SUPABASE_KEY", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MatchLockTTL:  constants.MatchLockTTL,
	}

	if v := os.Getenv("MATCH_LOCK_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid MATCH_LOCK_TTL %q: %w", v, err)
		}
		cfg.MatchLockTTL = ttl
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger.Info().
		Str("store_backend", cfg.StoreBackend).
		Str("db_driver", cfg.DBDriver).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Bool("auth_enabled", cfg.JWTSecret != "").
		Bool("redis_enabled", cfg.RedisURL != "").
		Dur("match_lock_ttl", cfg.MatchLockTTL).
		Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSQL:
		if c.DBDriver != "sqlite3" && c.DBDriver != "postgres" {
			return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
		}
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required for the supabase backend")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}
	if c.MatchLockTTL <= 0 {
		return fmt.Errorf("MATCH_LOCK_TTL must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
