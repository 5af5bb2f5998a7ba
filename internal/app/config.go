package app

import (
	"strings"
	"time"

	"github.com/yungbote/noctisium-backend/internal/data/db"
	"github.com/yungbote/noctisium-backend/internal/observability"
	"github.com/yungbote/noctisium-backend/internal/platform/envutil"
	"github.com/yungbote/noctisium-backend/internal/platform/logger"
	"github.com/yungbote/noctisium-backend/internal/services"
)

type Config struct {
	Port        string
	Environment string
	CORSOrigins []string

	DBDriver   string // postgres | sqlite
	Postgres   db.PostgresConfig
	SQLitePath string

	RedisAddr    string
	RedisChannel string
	CacheBackend string // memory | redis
	CacheTTL     time.Duration

	InvariantMode     services.InvariantMode
	CatalogPath       string
	ChangefeedEnabled bool

	SessionIdleTimeout time.Duration

	MetricsEnabled bool
	MetricsAddr    string
	Otel           observability.OtelConfig

	ShutdownTimeout time.Duration
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		Environment: envutil.String("APP_ENV", "development"),
		CORSOrigins: splitList(envutil.String("CORS_ORIGINS", "")),

		DBDriver: strings.ToLower(envutil.String("DB_DRIVER", "postgres")),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost"),
			Port:     envutil.String("POSTGRES_PORT", "5432"),
			User:     envutil.String("POSTGRES_USER", "postgres"),
			Password: envutil.String("POSTGRES_PASSWORD", ""),
			Name:     envutil.String("POSTGRES_NAME", "noctisium"),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
		},
		SQLitePath: envutil.String("SQLITE_PATH", "noctisium.db"),

		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisChannel: envutil.String("REDIS_CHANNEL", "noctisium:invalidation"),
		CacheBackend: strings.ToLower(envutil.String("CACHE_BACKEND", "memory")),
		CacheTTL:     envutil.Duration("CACHE_TTL", 24*time.Hour),

		CatalogPath:       envutil.String("ACHIEVEMENT_CATALOG", ""),
		ChangefeedEnabled: envutil.Bool("CHANGEFEED_ENABLED", true),

		SessionIdleTimeout: envutil.Duration("SESSION_IDLE_TIMEOUT", 30*time.Minute),

		MetricsEnabled: envutil.Bool("METRICS_ENABLED", false),
		MetricsAddr:    envutil.String("METRICS_ADDR", ":9090"),
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "noctisium"),
			Version:     envutil.String("APP_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		},

		ShutdownTimeout: envutil.Duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	cfg.Otel.Environment = cfg.Environment

	// development defaults to strict so corrupt rows surface immediately.
	defMode := string(services.InvariantRepair)
	if cfg.Environment == "development" {
		defMode = string(services.InvariantStrict)
	}
	cfg.InvariantMode = services.ParseInvariantMode(envutil.String("INVARIANT_MODE", defMode))

	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		log.Warn("unknown DB_DRIVER; using postgres", "value", cfg.DBDriver)
		cfg.DBDriver = "postgres"
	}
	if cfg.CacheBackend == "redis" && cfg.RedisAddr == "" {
		log.Warn("CACHE_BACKEND=redis without REDIS_ADDR; using memory cache")
		cfg.CacheBackend = "memory"
	}
	if cfg.DBDriver != "postgres" && cfg.ChangefeedEnabled {
		log.Info("change feed needs postgres; disabled", "db_driver", cfg.DBDriver)
		cfg.ChangefeedEnabled = false
	}
	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
