package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	defaultHTTPAddr          = ":8080"
	defaultMetricsAddr       = ":9090"
	defaultLogLevel          = "info"
	defaultMaxOpenConns      = 50
	defaultMaxIdleConns      = 25
	defaultConnMaxLifetime   = 5 * time.Minute
	defaultIntegritySchedule = "@every 1h"
)

var ErrMissingConnectionString = errors.New("missing DB_CONNECTION_STRING in environment variables")

type Database struct {
	ConnectionString string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

type Config struct {
	Database          Database
	HTTPAddr          string
	MetricsAddr       string
	LogLevel          string
	Development       bool
	IntegritySchedule string
}

// Load reads the optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests can feed their own values.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Database: Database{
			ConnectionString: getenv("DB_CONNECTION_STRING"),
			MaxOpenConns:     defaultMaxOpenConns,
			MaxIdleConns:     defaultMaxIdleConns,
			ConnMaxLifetime:  defaultConnMaxLifetime,
		},
		HTTPAddr:          valueOr(getenv("HTTP_ADDR"), defaultHTTPAddr),
		MetricsAddr:       valueOr(getenv("METRICS_ADDR"), defaultMetricsAddr),
		LogLevel:          valueOr(getenv("LOG_LEVEL"), defaultLogLevel),
		Development:       getenv("APP_ENV") == "development",
		IntegritySchedule: defaultIntegritySchedule,
	}
	if cfg.Database.ConnectionString == "" {
		return nil, ErrMissingConnectionString
	}

	var err error
	if cfg.Database.MaxOpenConns, err = intOr(getenv("DB_MAX_OPEN_CONNS"), defaultMaxOpenConns); err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.Database.MaxIdleConns, err = intOr(getenv("DB_MAX_IDLE_CONNS"), defaultMaxIdleConns); err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	if v := getenv("DB_CONN_MAX_LIFETIME"); v != "" {
		if cfg.Database.ConnMaxLifetime, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
		}
	}
	if v, ok := lookup(getenv, "INTEGRITY_SCHEDULE"); ok {
		cfg.IntegritySchedule = v
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger. Development mode switches to the console encoder.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

// lookup treats the literal "off" as an explicit empty value.
func lookup(getenv func(string) string, key string) (string, bool) {
	v := getenv(key)
	switch v {
	case "":
		return "", false
	case "off":
		return "", true
	default:
		return v, true
	}
}
