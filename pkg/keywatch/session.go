package keywatch

import (
	"log/slog"
	"time"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// SessionOption is a functional option for configuring a session.
type SessionOption func(*sessionConfig)

// sessionConfig holds session construction knobs.
type sessionConfig struct {
	logger       *slog.Logger
	rateGuard    bool
	now          func() time.Time
	onDiagnostic func(Diagnostic)
}

// WithLogger sets the logger for the session and everything it creates.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SessionOption {
	return func(c *sessionConfig) {
		c.logger = logger
	}
}

// WithRateGuard enables or disables the rate guard at construction.
// Disabled by default; it can also be toggled later via RateGuard.
func WithRateGuard(enabled bool) SessionOption {
	return func(c *sessionConfig) {
		c.rateGuard = enabled
	}
}

// WithClock injects the time source used by the rate guard, so tests can
// simulate elapsed time deterministically. Defaults to time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(c *sessionConfig) {
		c.now = now
	}
}

// WithDiagnostics installs the callback rate guard findings are delivered
// to. Without one, findings are logged as warnings.
func WithDiagnostics(fn func(Diagnostic)) SessionOption {
	return func(c *sessionConfig) {
		c.onDiagnostic = fn
	}
}

// Session binds one store to one change bus. All values constructed from a
// session share its bus: a Set through any handle notifies every subscriber
// of that key, in every goroutine, for the session's lifetime.
//
// The session does not own the store; Close ends notification delivery but
// leaves the store untouched for callers that share it.
type Session struct {
	store  store.Store
	bus    *Bus
	guard  *RateGuard
	logger *slog.Logger
}

// NewSession creates a session over the given store.
func NewSession(st store.Store, opts ...SessionOption) *Session {
	if st == nil {
		panic("keywatch: nil store")
	}
	cfg := sessionConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	guard := newRateGuard(cfg.logger, cfg.now, cfg.onDiagnostic)
	if cfg.rateGuard {
		guard.Enable()
	}

	return &Session{
		store:  st,
		bus:    NewBus(),
		guard:  guard,
		logger: cfg.logger,
	}
}

// Bool returns a handle for a bool key.
func (s *Session) Bool(key string, def bool) *Value[bool] {
	return newValue(s, key, def, BoolAdapter{})
}

// Int returns a handle for an int64 key.
func (s *Session) Int(key string, def int64) *Value[int64] {
	return newValue(s, key, def, IntAdapter{})
}

// Float returns a handle for a float64 key.
func (s *Session) Float(key string, def float64) *Value[float64] {
	return newValue(s, key, def, FloatAdapter{})
}

// String returns a handle for a string key.
func (s *Session) String(key string, def string) *Value[string] {
	return newValue(s, key, def, StringAdapter{})
}

// StringSlice returns a handle for a string-list key. The default is
// copied, so later mutation of the argument does not leak in.
func (s *Session) StringSlice(key string, def []string) *Value[[]string] {
	d := make([]string, len(def))
	copy(d, def)
	return newValue(s, key, d, StringSliceAdapter{})
}

// Time returns a handle for a time key stored as RFC 3339 text.
// Use NewValue with a TimeAdapter for a custom layout.
func (s *Session) Time(key string, def time.Time) *Value[time.Time] {
	return newValue(s, key, def, TimeAdapter{})
}

// Store returns the underlying store.
func (s *Session) Store() store.Store {
	return s.store
}

// Bus returns the session's change bus, for raw subscribers that want
// changed keys without the value pipeline.
func (s *Session) Bus() *Bus {
	return s.bus
}

// RateGuard returns the session's rate guard.
func (s *Session) RateGuard() *RateGuard {
	return s.guard
}

// Remove deletes a key and, on success, publishes it; subscribers re-read
// and see their defaults. Returns false when the store remove fails.
func (s *Session) Remove(key string) bool {
	if err := s.store.Remove(key); err != nil {
		s.logger.Debug("remove failed", "key", key, "error", err)
		return false
	}
	s.bus.Publish(key)
	return true
}

// Clear deletes every key and, on success, publishes a change for each key
// that existed before the clear, so every keyed subscriber re-reads, not
// just the key-listing view. Returns false when the store clear fails.
func (s *Session) Clear() bool {
	keys, err := s.store.Keys()
	if err != nil {
		// Without the key list the clear can proceed but keyed subscribers
		// cannot be notified individually.
		s.logger.Warn("clear: listing keys failed, notifications will be incomplete", "error", err)
		keys = nil
	}
	if err := s.store.Clear(); err != nil {
		s.logger.Debug("clear failed", "error", err)
		return false
	}
	for _, key := range keys {
		s.bus.Publish(key)
	}
	return true
}

// Close ends every subscription on the session's bus. Values remain
// readable and writable against the store, but no further notifications
// flow. The store itself is not closed. Close is idempotent.
func (s *Session) Close() {
	s.bus.Close()
}
