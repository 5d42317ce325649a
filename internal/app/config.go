package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/slotswap-backend/internal/data/db"
	"github.com/yungbote/slotswap-backend/internal/data/txn"
)

const DriverRedis = "redis"

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" yaml:"addr"`
	Password string `env:"REDIS_PASSWORD" yaml:"password"`
	DB       int    `env:"REDIS_DB" yaml:"db"`
	Prefix   string `env:"REDIS_PREFIX" yaml:"prefix"`
}

type OtelSettings struct {
	Enabled     bool    `env:"OTEL_ENABLED" yaml:"enabled"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" yaml:"service_name"`
	Endpoint    string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" yaml:"endpoint"`
	Headers     string  `env:"OTEL_EXPORTER_OTLP_HEADERS" yaml:"headers"`
	Insecure    bool    `env:"OTEL_EXPORTER_OTLP_INSECURE" yaml:"insecure"`
	SampleRatio float64 `env:"OTEL_TRACES_SAMPLER_RATIO" yaml:"sample_ratio"`
}

type Config struct {
	Port    string `env:"PORT" yaml:"port"`
	LogMode string `env:"LOG_MODE" yaml:"log_mode"`
	AppEnv  string `env:"APP_ENV" yaml:"app_env"`
	Version string `env:"APP_VERSION" yaml:"version"`

	StoreDriver     string        `env:"STORE_DRIVER" yaml:"store_driver"`
	PostgresDSN     string        `env:"POSTGRES_DSN" yaml:"postgres_dsn"`
	SQLitePath      string        `env:"SQLITE_PATH" yaml:"sqlite_path"`
	DBSlowThreshold time.Duration `env:"DB_SLOW_THRESHOLD" yaml:"db_slow_threshold"`
	Redis           RedisConfig   `yaml:"redis"`

	JWTSecretKey   string        `env:"JWT_SECRET_KEY" yaml:"jwt_secret_key"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" yaml:"access_token_ttl"`
	CORSOrigins    []string      `env:"CORS_ORIGINS" envSeparator:"," yaml:"cors_origins"`

	TxnMode         string        `env:"TXN_MODE" yaml:"txn_mode"`
	TxnProbeTimeout time.Duration `env:"TXN_PROBE_TIMEOUT" yaml:"txn_probe_timeout"`

	MetricsEnabled  bool          `env:"METRICS_ENABLED" yaml:"metrics_enabled"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`

	Otel OtelSettings `yaml:"otel"`
}

// LoadConfig reads the optional YAML file at path (falling back to
// CONFIG_FILE), then lets environment variables override it.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if strings.TrimSpace(path) == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Port) == "" {
		c.Port = "8080"
	}
	if strings.TrimSpace(c.LogMode) == "" {
		c.LogMode = "development"
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	if c.StoreDriver == "" {
		c.StoreDriver = db.DriverPostgres
	}
	if c.DBSlowThreshold <= 0 {
		c.DBSlowThreshold = time.Second
	}
	if strings.TrimSpace(c.Redis.Prefix) == "" {
		c.Redis.Prefix = "slotswap"
	}
	if c.AccessTokenTTL <= 0 {
		c.AccessTokenTTL = time.Hour
	}
	if c.TxnProbeTimeout <= 0 {
		c.TxnProbeTimeout = txn.DefaultProbeTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if strings.TrimSpace(c.Otel.ServiceName) == "" {
		c.Otel.ServiceName = "slotswap"
	}
	if c.Otel.SampleRatio <= 0 {
		c.Otel.SampleRatio = 1
	}
}

// Validate checks the store selection and transaction mode. The JWT secret
// is only checked by the server wiring.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case db.DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required for the postgres store")
		}
	case db.DriverSQLite:
	case DriverRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if _, err := c.TransactionMode(); err != nil {
		return err
	}
	return nil
}

// TransactionMode is the pinned mode from TXN_MODE, or "" when the store
// should be probed.
func (c Config) TransactionMode() (txn.Mode, error) {
	return txn.ParseMode(c.TxnMode)
}

func (c Config) Address() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
