package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/tray-validation-backend/internal/data/db"
	httpMW "github.com/yungbote/tray-validation-backend/internal/http/middleware"
	"github.com/yungbote/tray-validation-backend/internal/observability"
	"github.com/yungbote/tray-validation-backend/internal/platform/logger"
	"github.com/yungbote/tray-validation-backend/internal/realtime/bus"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port    string
	LogMode string

	DBDriver   string
	Postgres   db.PostgresConfig
	SQLitePath string

	JWTSecretKey string

	StaleClaimWindow time.Duration
	ClaimMaxAttempts int
	StaleSweepCron   string
	PrioritySeedFile string

	Redis       bus.RedisConfig
	Otel        observability.OtelConfig
	CORSOrigins []string
}

// LoadConfig reads settings from the environment, optionally layered over the
// file named by CONFIG_FILE.
func LoadConfig(log *logger.Logger) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := strings.TrimSpace(v.GetString("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", file)
		}
	}

	cfg := Config{
		Port:     v.GetString("PORT"),
		LogMode:  v.GetString("LOG_MODE"),
		DBDriver: strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
		Postgres: db.PostgresConfig{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			Name:     v.GetString("POSTGRES_NAME"),
			SSLMode:  v.GetString("POSTGRES_SSLMODE"),
		},
		SQLitePath:       v.GetString("SQLITE_PATH"),
		JWTSecretKey:     v.GetString("JWT_SECRET_KEY"),
		StaleClaimWindow: v.GetDuration("STALE_CLAIM_WINDOW"),
		ClaimMaxAttempts: v.GetInt("CLAIM_MAX_ATTEMPTS"),
		StaleSweepCron:   strings.TrimSpace(v.GetString("STALE_SWEEP_CRON")),
		PrioritySeedFile: strings.TrimSpace(v.GetString("PRIORITY_SEED_FILE")),
		Redis: bus.RedisConfig{
			Addr:    strings.TrimSpace(v.GetString("REDIS_ADDR")),
			Channel: v.GetString("REDIS_CHANNEL"),
		},
		Otel: observability.OtelConfig{
			Enabled:     v.GetBool("OTEL_ENABLED"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			Environment: v.GetString("OTEL_ENVIRONMENT"),
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Headers:     v.GetString("OTEL_EXPORTER_OTLP_HEADERS"),
			Insecure:    v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SampleRatio: v.GetFloat64("OTEL_SAMPLE_RATIO"),
		},
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = httpMW.DefaultCORSOrigins
	}

	switch cfg.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.StaleClaimWindow <= 0 {
		return Config{}, fmt.Errorf("STALE_CLAIM_WINDOW must be positive")
	}
	if cfg.JWTSecretKey == "defaultsecret" && log != nil {
		log.Warn("JWT_SECRET_KEY not set, using the development default")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_NAME", "trayval")
	v.SetDefault("SQLITE_PATH", "trayval.db")
	v.SetDefault("JWT_SECRET_KEY", "defaultsecret")
	v.SetDefault("STALE_CLAIM_WINDOW", "30m")
	v.SetDefault("CLAIM_MAX_ATTEMPTS", 10)
	v.SetDefault("REDIS_CHANNEL", "work-events")
	v.SetDefault("OTEL_SERVICE_NAME", "tray-validation-backend")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)
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
