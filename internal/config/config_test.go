package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("EH_STRING", "value")
	t.Setenv("EH_INT", "42")
	t.Setenv("EH_BAD_INT", "forty")
	t.Setenv("EH_BOOL", "false")
	t.Setenv("EH_DURATION", "90s")
	t.Setenv("EH_BAD_DURATION", "soon")

	assert.Equal(t, "value", GetEnv("EH_STRING", "x"))
	assert.Equal(t, "x", GetEnv("EH_MISSING", "x"))
	assert.Equal(t, 42, GetIntEnv("EH_INT", 1))
	assert.Equal(t, 1, GetIntEnv("EH_BAD_INT", 1))
	assert.False(t, GetBoolEnv("EH_BOOL", true))
	assert.Equal(t, 90*time.Second, GetDurationEnv("EH_DURATION", time.Second))
	assert.Equal(t, time.Second, GetDurationEnv("EH_BAD_DURATION", time.Second))
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY", "stripe")
	t.Setenv("DB_NAME", "estate_test")

	cfg := Load()

	assert.Equal(t, "stripe", cfg.DefaultGateway)
	assert.Equal(t, "NGN", cfg.Currency)
	assert.Contains(t, cfg.DSN(), "dbname=estate_test")
	assert.Equal(t, "localhost:6379", cfg.RedisAddr())
	assert.False(t, cfg.IsProduction())
}
