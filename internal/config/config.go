package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Events   EventsConfig
	Sla      SlaConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// EventsConfig selects where dispatched domain events are forwarded.
type EventsConfig struct {
	RedisChannel string
	KafkaBrokers []string
	KafkaTopic   string
}

// SlaConfig holds the operational knobs of the evaluation worker. Business thresholds
// (minutes, percentages, batch size) live in the settings store instead.
type SlaConfig struct {
	EvaluationIntervalSeconds int
	RunTimeoutSeconds         int
	LockKey                   string
	LockTTLSeconds            int
	SettingsCacheTTLSeconds   int
	SettingsFile              string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "towerops-sla-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Events: EventsConfig{
			RedisChannel: getEnv("EVENTS_REDIS_CHANNEL", "towerops.work_orders"),
			KafkaBrokers: getEnvAsList("EVENTS_KAFKA_BROKERS"),
			KafkaTopic:   getEnv("EVENTS_KAFKA_TOPIC", "towerops.work_orders"),
		},
		Sla: SlaConfig{
			EvaluationIntervalSeconds: getEnvAsInt("SLA_EVALUATION_INTERVAL_SECONDS", 60),
			RunTimeoutSeconds:         getEnvAsInt("SLA_EVALUATION_RUN_TIMEOUT_SECONDS", 45),
			LockKey:                   getEnv("SLA_EVALUATION_LOCK_KEY", "towerops:sla:evaluation:lock"),
			LockTTLSeconds:            getEnvAsInt("SLA_EVALUATION_LOCK_TTL_SECONDS", 55),
			SettingsCacheTTLSeconds:   getEnvAsInt("SLA_SETTINGS_CACHE_TTL_SECONDS", 30),
			SettingsFile:              os.Getenv("SLA_SETTINGS_FILE"),
		},
	}

	if cfg.Sla.EvaluationIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid SLA_EVALUATION_INTERVAL_SECONDS: %d", cfg.Sla.EvaluationIntervalSeconds)
	}
	if cfg.Sla.RunTimeout() == 0 || cfg.Sla.RunTimeout() > cfg.Sla.LockTTL() {
		// the lock must outlive the pass it guards
		return nil, fmt.Errorf("SLA_EVALUATION_RUN_TIMEOUT_SECONDS (%d) must be positive and no longer than the lock TTL (%s)",
			cfg.Sla.RunTimeoutSeconds, cfg.Sla.LockTTL())
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func (s SlaConfig) Interval() time.Duration {
	return time.Duration(s.EvaluationIntervalSeconds) * time.Second
}

// RunTimeout bounds one evaluation pass; zero means no deadline.
func (s SlaConfig) RunTimeout() time.Duration {
	if s.RunTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.RunTimeoutSeconds) * time.Second
}

func (s SlaConfig) LockTTL() time.Duration {
	if s.LockTTLSeconds <= 0 {
		return s.Interval()
	}
	return time.Duration(s.LockTTLSeconds) * time.Second
}

func (s SlaConfig) SettingsCacheTTL() time.Duration {
	if s.SettingsCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(s.SettingsCacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
