package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 30*time.Minute, cfg.RoomIdleTimeout)
	assert.Equal(t, time.Minute, cfg.RoomSweepInterval())
	assert.Equal(t, 10*time.Second, cfg.WebSocket.WriteWait)
	assert.Equal(t, 60*time.Second, cfg.WebSocket.PongWait)
	assert.Equal(t, 54*time.Second, cfg.WebSocket.PingPeriod())
	assert.Equal(t, int64(512), cfg.WebSocket.MaxMessageSize)
	assert.False(t, cfg.Ngrok.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HOST", "0.0.0.0")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("DEBUG", "true")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("ROOM_IDLE_TIMEOUT", "40s")
	t.Setenv("WS_PONG_WAIT", "30s")
	t.Setenv("WS_SEND_BUFFER", "16")
	t.Setenv("NGROK_ENABLED", "1")
	t.Setenv("NGROK_AUTHTOKEN", "secret-token")
	t.Setenv("NGROK_DOMAIN", "rooms.ngrok.app")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Addr())
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.Equal(t, 40*time.Second, cfg.RoomIdleTimeout)
	assert.Equal(t, 20*time.Second, cfg.RoomSweepInterval())
	assert.Equal(t, 27*time.Second, cfg.WebSocket.PingPeriod())
	assert.Equal(t, 16, cfg.WebSocket.SendBuffer)
	assert.Equal(t, Ngrok{Enabled: true, AuthToken: "secret-token", Domain: "rooms.ngrok.app"}, cfg.Ngrok)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ParseError(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too large", func(c *Config) { c.Port = 70000 }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"bcrypt cost too low", func(c *Config) { c.BcryptCost = 2 }},
		{"bcrypt cost too high", func(c *Config) { c.BcryptCost = 40 }},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }},
		{"negative room idle timeout", func(c *Config) { c.RoomIdleTimeout = -time.Second }},
		{"zero pong wait", func(c *Config) { c.WebSocket.PongWait = 0 }},
		{"zero message size", func(c *Config) { c.WebSocket.MaxMessageSize = 0 }},
		{"zero send buffer", func(c *Config) { c.WebSocket.SendBuffer = 0 }},
		{"ngrok without token", func(c *Config) { c.Ngrok.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("zero bcrypt cost means default", func(t *testing.T) {
		cfg := Default()
		cfg.BcryptCost = 0
		assert.NoError(t, cfg.Validate())
	})

	t.Run("zero room idle timeout disables expiry", func(t *testing.T) {
		cfg := Default()
		cfg.RoomIdleTimeout = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestRoomSweepInterval(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    time.Duration
	}{
		{time.Hour, time.Minute},
		{90 * time.Second, 45 * time.Second},
		{100 * time.Millisecond, 50 * time.Millisecond},
		{time.Nanosecond, time.Nanosecond},
	}

	for _, tt := range tests {
		cfg := Config{RoomIdleTimeout: tt.timeout}
		assert.Equal(t, tt.want, cfg.RoomSweepInterval(), "timeout %s", tt.timeout)
	}
}
