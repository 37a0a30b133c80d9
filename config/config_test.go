package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SIMULATOR_MODE", "")
	t.Setenv("STORE", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, defaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, SimulatorRead, cfg.SimulatorMode)
	assert.Equal(t, StoreMongo, cfg.Store)
	assert.Equal(t, time.Duration(0), cfg.SessionTTL)
	assert.Equal(t, 5*time.Second, cfg.SimulatorInterval)
	assert.Equal(t, []string{defaultKafkaBroker}, cfg.KafkaBrokers)
	assert.Empty(t, cfg.CORSOrigins)
}

func TestFromEnv_CORSOrigins(t *testing.T) {
	t.Setenv("PUBLIC_URL", "https://saborlimeno.pe")

	t.Setenv("APP_ENV", "production")
	t.Setenv("CORS_ORIGINS", "")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://saborlimeno.pe"}, cfg.CORSOrigins)

	t.Setenv("CORS_ORIGINS", "https://app.saborlimeno.pe, https://admin.saborlimeno.pe")
	cfg, err = FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.saborlimeno.pe", "https://admin.saborlimeno.pe"}, cfg.CORSOrigins)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SESSION_TTL", "8h")
	t.Setenv("SIMULATOR_MODE", "TIMER")
	t.Setenv("PUBLIC_URL", "https://saborlimeno.pe/")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 8*time.Hour, cfg.SessionTTL)
	assert.Equal(t, SimulatorTimer, cfg.SimulatorMode)
	assert.Equal(t, "https://saborlimeno.pe", cfg.PublicURL)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad simulator mode", "SIMULATOR_MODE", "sometimes"},
		{"bad store", "STORE", "sqlite"},
		{"bad ttl", "SESSION_TTL", "forever"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
