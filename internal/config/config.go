package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cache drivers understood by the cache layer.
const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Cache        CacheConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Mail         MailConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	GlobalPrefix          string
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

// CacheConfig selects the cache store and its lifetimes.
type CacheConfig struct {
	Driver            string
	TTLSeconds        int
	SessionTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret              string
	AccessTokenTTLMinutes  int
	RefreshSecret          string
	RefreshTokenTTLMinutes int
	BcryptCost             int
}

// MailConfig holds the SMTP relay settings.
type MailConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	From           string
	SupportContact string
	TimeoutSeconds int
}

// NotificationConfig controls webhook delivery and the retry worker.
type NotificationConfig struct {
	WebhookURL  string
	RetrySpec   string
	MaxAttempts int
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
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			GlobalPrefix:          getEnv("APP_GLOBAL_PREFIX", "/api"),
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
		Cache: CacheConfig{
			Driver:            strings.ToLower(getEnv("CACHE_DRIVER", CacheDriverRedis)),
			TTLSeconds:        getEnvAsInt("CACHE_TTL", 600),
			SessionTTLSeconds: getEnvAsInt("CACHE_SESSION_TTL", 3600),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:              getEnv("SECRET_KEY", ""),
			AccessTokenTTLMinutes:  getEnvAsInt("EXPIRES_IN", 60),
			RefreshSecret:          getEnv("REFRESH_SECRET_KEY", ""),
			RefreshTokenTTLMinutes: getEnvAsInt("REFRESH_EXPIRES_IN", 7*24*60),
			BcryptCost:             getEnvAsInt("AUTH_BCRYPT_COST", 10),
		},
		Mail: MailConfig{
			Host:           getEnv("MAIL_HOST", "localhost"),
			Port:           getEnvAsInt("MAIL_PORT", 587),
			User:           os.Getenv("MAIL_USER"),
			Password:       os.Getenv("MAIL_PASSWORD"),
			From:           getEnv("MAIL_FROM", "noreply@example.com"),
			SupportContact: getEnv("SUPPORT_CONTACT", "IT"),
			TimeoutSeconds: getEnvAsInt("MAIL_TIMEOUT_SECONDS", 15),
		},
		Notification: NotificationConfig{
			WebhookURL:  getEnv("NOTIFY_WEBHOOK_URL", ""),
			RetrySpec:   getEnv("NOTIFY_RETRY_SPEC", "@every 1m"),
			MaxAttempts: getEnvAsInt("NOTIFY_MAX_ATTEMPTS", 5),
		},
	}

	if cfg.App.Env == "development" && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret"
	}
	if cfg.Auth.RefreshSecret == "" {
		cfg.Auth.RefreshSecret = cfg.Auth.JWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("SECRET_KEY is required")
	}
	switch c.Cache.Driver {
	case CacheDriverRedis, CacheDriverMemory:
	default:
		return fmt.Errorf("unknown CACHE_DRIVER %q", c.Cache.Driver)
	}
	if c.App.GlobalPrefix != "" && !strings.HasPrefix(c.App.GlobalPrefix, "/") {
		return fmt.Errorf("APP_GLOBAL_PREFIX must start with '/': %q", c.App.GlobalPrefix)
	}
	return nil
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

// TTL is the lifetime of cached entities and lists.
func (c CacheConfig) TTL() time.Duration {
	return seconds(c.TTLSeconds, 600)
}

// SessionTTL is the lifetime of a cached user session.
func (c CacheConfig) SessionTTL() time.Duration {
	return seconds(c.SessionTTLSeconds, 3600)
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTokenTTLMinutes) * time.Minute
}

// Timeout bounds a single SMTP send.
func (m MailConfig) Timeout() time.Duration {
	return seconds(m.TimeoutSeconds, 15)
}

func seconds(v, fallback int) time.Duration {
	if v <= 0 {
		v = fallback
	}
	return time.Duration(v) * time.Second
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
