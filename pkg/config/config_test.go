package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/wallet")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.BindAddress)
	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, int64(64), cfg.WorkerPoolSize)
	assert.Equal(t, int64(-1), cfg.NodeID)
	assert.True(t, cfg.FXSurcharge.Equal(decimal.RequireFromString("1.06")))
	assert.Equal(t, time.Hour, cfg.FXRefreshInterval)
	assert.Empty(t, cfg.RedisURL)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/wallet")
	t.Setenv("BIND_ADDRESS", "127.0.0.1:9090")
	t.Setenv("ENV", "production")
	t.Setenv("FX_SURCHARGE", "1.1")
	t.Setenv("FX_REFRESH_INTERVAL", "15m")
	t.Setenv("NODE_ID", "7")
	t.Setenv("WORKER_POOL_SIZE", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.BindAddress)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.FXSurcharge.Equal(decimal.RequireFromString("1.1")))
	assert.Equal(t, 15*time.Minute, cfg.FXRefreshInterval)
	assert.Equal(t, int64(7), cfg.NodeID)
	assert.Equal(t, int64(8), cfg.WorkerPoolSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{}},
		{"surcharge below one", map[string]string{
			"DATABASE_URL": "postgres://localhost/wallet",
			"FX_SURCHARGE": "0.9",
		}},
		{"surcharge not a decimal", map[string]string{
			"DATABASE_URL": "postgres://localhost/wallet",
			"FX_SURCHARGE": "cheap",
		}},
		{"node id too large", map[string]string{
			"DATABASE_URL": "postgres://localhost/wallet",
			"NODE_ID":      "1024",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}
