package appconfig

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/cabook/libs/config"
)

type Config struct {
	ServiceName string
	Port        string
	GRPCPort    string
	LogLevel    string

	BackendURL     string
	BusinessID     string
	Location       *time.Location
	BackendTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SettingsTTL   time.Duration
	LedgerTTL     time.Duration

	LedgerDatabaseURL string
	DBMaxConns        int

	KafkaBrokers []string
	KafkaGroupID string

	JWTSecret string
	JWKSURL   string

	CORSAllowedOrigins []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	MaxBodyBytes       int
}

// Load reads the environment. BACKEND_URL and BUSINESS_ID are required.
func Load() (Config, error) {
	cfg := Config{
		ServiceName:        config.String("SERVICE_NAME", "availability-service"),
		LogLevel:           config.String("LOG_LEVEL", "info"),
		RedisAddr:          config.String("REDIS_ADDR", ""),
		RedisPassword:      config.String("REDIS_PASSWORD", ""),
		LedgerDatabaseURL:  config.String("LEDGER_DATABASE_URL", ""),
		KafkaBrokers:       config.List("KAFKA_BROKERS", ""),
		JWTSecret:          config.String("JWT_SECRET", ""),
		JWKSURL:            config.String("JWKS_URL", ""),
		CORSAllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
	}
	var err error

	if cfg.Port, err = config.Port("PORT", "8080"); err != nil {
		return Config{}, err
	}
	if cfg.GRPCPort, err = config.Port("GRPC_PORT", "9090"); err != nil {
		return Config{}, err
	}
	if cfg.BackendURL, err = config.RequiredString("BACKEND_URL"); err != nil {
		return Config{}, err
	}
	if cfg.BusinessID, err = config.RequiredString("BUSINESS_ID"); err != nil {
		return Config{}, err
	}
	cfg.KafkaGroupID = config.String("KAFKA_GROUP_ID", cfg.ServiceName+"-"+cfg.BusinessID)

	tz := config.String("TIMEZONE", "UTC")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return Config{}, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	if cfg.BackendTimeout, err = config.Duration("BACKEND_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SettingsTTL, err = config.Duration("SETTINGS_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.LedgerTTL, err = config.Duration("LEDGER_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = config.Duration("HTTP_REQUEST_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = config.Int("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxConns, err = config.Int("DB_MAX_CONNS", 5); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return Config{}, err
	}
	if cfg.MaxBodyBytes, err = config.Int("MAX_BODY_BYTES", 1<<20); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) RedisEnabled() bool { return c.RedisAddr != "" }

func (c Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// AdminEnabled reports whether any token verifier is configured.
func (c Config) AdminEnabled() bool { return c.JWTSecret != "" || c.JWKSURL != "" }
