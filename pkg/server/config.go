package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// Config holds configuration for the HTTP/WebSocket server.
type Config struct {
	// Addr is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Addr string

	// Timeouts

	// ReadTimeout is the maximum time to wait for traffic from a watch
	// client before the connection is considered dead. Pongs count.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a message to
	// a watch client. Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is the time between heartbeat pings on watch
	// connections. Default: 30 seconds.
	PingInterval time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Limits

	// MaxPending is the per-client buffer of undelivered change frames.
	// A watch client that falls this far behind is dropped; the bus must
	// never block on a slow consumer. Default: 64.
	MaxPending int

	// Security

	// CheckOrigin is called to validate the origin of watch upgrade
	// requests. Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// Features

	// EnableMetrics mounts the Prometheus handler on GET /metrics.
	// Default: false.
	EnableMetrics bool

	// Logger is the server logger. Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
// SECURITY: CheckOrigin enforces same-origin by default to prevent
// cross-site WebSocket hijacking.
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		PingInterval:    30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		MaxPending:      64,
		CheckOrigin:     SameOriginCheck,
		EnableMetrics:   false,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// WithAddr sets the listen address and returns the config for chaining.
func (c *Config) WithAddr(addr string) *Config {
	c.Addr = addr
	return c
}

// WithMetrics enables the /metrics endpoint and returns the config for
// chaining.
func (c *Config) WithMetrics(enable bool) *Config {
	c.EnableMetrics = enable
	return c
}

// WithLogger sets the server logger and returns the config for chaining.
func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}

// SameOriginCheck validates that the WebSocket request origin matches the
// host. This is the secure default for CheckOrigin.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		// No Origin header (e.g., same-origin request or curl)
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}

	// Compare the host portion (includes port if present)
	return originURL.Host == host
}
