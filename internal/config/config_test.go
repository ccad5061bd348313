package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"DB_CONNECTION_STRING": "postgres://localhost/timetracker",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Development)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.Equal(t, 25, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "@every 1h", cfg.IntegritySchedule)
}

func TestFromEnv_MissingConnectionString(t *testing.T) {
	_, err := FromEnv(envOf(nil))
	assert.ErrorIs(t, err, ErrMissingConnectionString)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"DB_CONNECTION_STRING": "postgres://db/tt",
		"HTTP_ADDR":            ":8000",
		"LOG_LEVEL":            "debug",
		"APP_ENV":              "development",
		"DB_MAX_OPEN_CONNS":    "10",
		"DB_CONN_MAX_LIFETIME": "30s",
		"INTEGRITY_SCHEDULE":   "off",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.True(t, cfg.Development)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Second, cfg.Database.ConnMaxLifetime)
	assert.Empty(t, cfg.IntegritySchedule)

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	base := map[string]string{"DB_CONNECTION_STRING": "postgres://db/tt"}

	cases := map[string]string{
		"DB_MAX_OPEN_CONNS":    "many",
		"DB_MAX_IDLE_CONNS":    "-x",
		"DB_CONN_MAX_LIFETIME": "forever",
		"LOG_LEVEL":            "loud",
	}
	for key, value := range cases {
		env := map[string]string{}
		for k, v := range base {
			env[k] = v
		}
		env[key] = value

		_, err := FromEnv(envOf(env))
		assert.Error(t, err, key)
	}
}
