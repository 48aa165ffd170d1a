package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.TCPPort)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "json", cfg.Codec)
	assert.Equal(t, 1<<20, cfg.MaxFrameSize)
	assert.Equal(t, 5*time.Second, cfg.SendTimeout)
	assert.Equal(t, 10.0, cfg.RateLimit)
	assert.Equal(t, 20, cfg.RateBurst)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.True(t, cfg.SeedData)
	assert.True(t, cfg.IsDevelopment())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("CODEC", "cbor")
	t.Setenv("TCP_PORT", "9000")
	t.Setenv("SEND_TIMEOUT", "250ms")
	t.Setenv("RATE_LIMIT", "2.5")
	t.Setenv("SEED_DATA", "false")
	t.Setenv("REDIS_URL", "redis://cache:6380")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "cbor", cfg.Codec)
	assert.Equal(t, 9000, cfg.TCPPort)
	assert.Equal(t, ":9000", cfg.TCPAddr())
	assert.Equal(t, 250*time.Millisecond, cfg.SendTimeout)
	assert.Equal(t, 2.5, cfg.RateLimit)
	assert.False(t, cfg.SeedData)
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigParseErrors(t *testing.T) {
	cases := map[string]string{
		"TCP_PORT":        "eighty",
		"SHUTDOWN_GRACE":  "soon",
		"RATE_LIMIT":      "fast",
		"SEED_DATA":       "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.TCPPort = 70000 }, "TCP_PORT"},
		{"same ports", func(c *Config) { c.HTTPPort = c.TCPPort }, "must differ"},
		{"unknown codec", func(c *Config) { c.Codec = "xml" }, "CODEC"},
		{"frame too big", func(c *Config) { c.MaxFrameSize = MaxFrameSizeLimit + 1 }, "MAX_FRAME_SIZE"},
		{"zero send timeout", func(c *Config) { c.SendTimeout = 0 }, "SEND_TIMEOUT"},
		{"zero burst", func(c *Config) { c.RateBurst = 0 }, "RATE_BURST"},
		{"unknown backend", func(c *Config) { c.StoreBackend = "mongo" }, "STORE_BACKEND"},
		{"postgres without dsn", func(c *Config) { c.StoreBackend = "postgres" }, "DATABASE_URL"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "LOG_LEVEL"},
		{"short jwt secret", func(c *Config) { c.JWTSecret = "short" }, "JWT_SECRET"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
