package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds server settings. Values come from the environment and may be
// overridden by command-line flags.
type Config struct {
	Host            string        `env:"HOST"             envDefault:"localhost"`
	Port            int           `env:"PORT"             envDefault:"8080"`
	LogFormat       string        `env:"LOG_FORMAT"       envDefault:"text"`
	Debug           bool          `env:"DEBUG"`
	BcryptCost      int           `env:"BCRYPT_COST"      envDefault:"10"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// RoomIdleTimeout empties rooms nobody has changed for this long. Zero
	// keeps rooms until their members leave.
	RoomIdleTimeout time.Duration `env:"ROOM_IDLE_TIMEOUT" envDefault:"30m"`

	// APIURL is the server the stdio MCP mode tries before starting its own.
	APIURL string `env:"MCP_API_URL" envDefault:"http://localhost:8080"`

	WebSocket WebSocket
	Ngrok     Ngrok
}

// RoomSweepInterval is how often idle rooms are looked for: half the idle
// timeout, at most once a minute.
func (c *Config) RoomSweepInterval() time.Duration {
	interval := c.RoomIdleTimeout / 2
	switch {
	case interval > time.Minute:
		return time.Minute
	case interval <= 0:
		return c.RoomIdleTimeout
	}
	return interval
}

// WebSocket tunes the per-connection pumps.
type WebSocket struct {
	WriteWait      time.Duration `env:"WS_WRITE_WAIT"       envDefault:"10s"`
	PongWait       time.Duration `env:"WS_PONG_WAIT"        envDefault:"60s"`
	MaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"512"`
	SendBuffer     int           `env:"WS_SEND_BUFFER"      envDefault:"256"`
}

// PingPeriod is how often pings are sent. It must be less than PongWait.
func (w WebSocket) PingPeriod() time.Duration {
	return (w.PongWait * 9) / 10
}

// Ngrok configures the optional public tunnel.
type Ngrok struct {
	Enabled   bool   `env:"NGROK_ENABLED"`
	AuthToken string `env:"NGROK_AUTHTOKEN"`
	Domain    string `env:"NGROK_DOMAIN"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when the environment is empty.
func Default() *Config {
	var cfg Config
	// Defaults are static tags; parsing an empty environment cannot fail.
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return &cfg
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost):
		return fmt.Errorf("%w: bcrypt cost %d outside [%d, %d]", ErrInvalidConfig, c.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	case c.RoomIdleTimeout < 0:
		return fmt.Errorf("%w: room idle timeout cannot be negative", ErrInvalidConfig)
	case c.WebSocket.WriteWait <= 0 || c.WebSocket.PongWait <= 0:
		return fmt.Errorf("%w: websocket timeouts must be positive", ErrInvalidConfig)
	case c.WebSocket.MaxMessageSize <= 0:
		return fmt.Errorf("%w: websocket max message size must be positive", ErrInvalidConfig)
	case c.WebSocket.SendBuffer <= 0:
		return fmt.Errorf("%w: websocket send buffer must be positive", ErrInvalidConfig)
	case c.Ngrok.Enabled && c.Ngrok.AuthToken == "":
		return fmt.Errorf("%w: ngrok enabled without NGROK_AUTHTOKEN", ErrInvalidConfig)
	}
	return nil
}

// Addr is the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
