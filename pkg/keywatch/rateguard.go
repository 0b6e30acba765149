package keywatch

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// RapidCount is the number of subscriptions to one key the rate guard
	// looks back across.
	RapidCount = 4

	// RapidWindow is the interval under which RapidCount subscriptions to
	// the same key are reported as churn. Sustained resubscription slower
	// than RapidWindow/(RapidCount-1) per subscription never trips.
	RapidWindow = 750 * time.Millisecond
)

// Diagnostic describes one rate guard finding: a key that was subscribed to
// RapidCount times within less than RapidWindow. The usual cause is code
// that constructs and subscribes a fresh Value on every render or poll
// cycle instead of reusing one, defeating deduplication and multiplying
// store reads. Diagnostics are advisory; the subscription that tripped the
// guard proceeds normally.
type Diagnostic struct {
	// Key is the subscribed key; the key-listing view records under
	// KeysGuardLabel.
	Key string

	// Count is the total number of subscriptions observed for the key.
	Count uint64

	// Window is the elapsed time across the last RapidCount subscriptions.
	Window time.Duration
}

// RateGuard detects pathologically frequent resubscription to a key. It
// keeps a ring of the last RapidCount subscription timestamps per key and
// compares each new subscription to the oldest stamp in the ring.
//
// The guard is disabled by default; it is debug instrumentation, not a rate
// limiter. Every Session owns one, fed by Value.Subscribe.
type RateGuard struct {
	mu           sync.Mutex
	enabled      bool
	now          func() time.Time
	onDiagnostic func(Diagnostic)
	logger       *slog.Logger
	stamps       map[string]*keyStamps
	tripped      uint64
}

// keyStamps is the per-key subscription history.
type keyStamps struct {
	ring  [RapidCount]time.Time
	count uint64
}

// newRateGuard creates a disabled guard. Sessions construct one with their
// own logger and clock.
func newRateGuard(logger *slog.Logger, now func() time.Time, onDiagnostic func(Diagnostic)) *RateGuard {
	if now == nil {
		now = time.Now
	}
	return &RateGuard{
		now:          now,
		onDiagnostic: onDiagnostic,
		logger:       logger,
		stamps:       make(map[string]*keyStamps),
	}
}

// Enable starts recording subscription timestamps.
func (g *RateGuard) Enable() {
	g.mu.Lock()
	g.enabled = true
	g.mu.Unlock()
}

// Disable stops recording and drops the accumulated history, so a later
// Enable starts clean.
func (g *RateGuard) Disable() {
	g.mu.Lock()
	g.enabled = false
	g.stamps = make(map[string]*keyStamps)
	g.mu.Unlock()
}

// Enabled reports whether the guard is recording.
func (g *RateGuard) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

// OnDiagnostic installs the callback findings are delivered to. Without
// one, findings are logged as warnings.
func (g *RateGuard) OnDiagnostic(fn func(Diagnostic)) {
	g.mu.Lock()
	g.onDiagnostic = fn
	g.mu.Unlock()
}

// Tripped returns how many diagnostics the guard has raised.
func (g *RateGuard) Tripped() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tripped
}

// Record notes one subscription to key and raises a diagnostic when the
// last RapidCount of them landed within less than RapidWindow. The callback
// runs outside the lock; it may subscribe re-entrantly.
func (g *RateGuard) Record(key string) {
	g.mu.Lock()
	if !g.enabled {
		g.mu.Unlock()
		return
	}

	ks := g.stamps[key]
	if ks == nil {
		ks = &keyStamps{}
		g.stamps[key] = ks
	}

	now := g.now()
	ks.count++
	c := ks.count
	ks.ring[(c-1)%RapidCount] = now

	if c < RapidCount {
		g.mu.Unlock()
		return
	}

	// The oldest stamp in the ring is RapidCount-1 subscriptions earlier.
	oldest := ks.ring[c%RapidCount]
	window := now.Sub(oldest)
	if window >= RapidWindow {
		g.mu.Unlock()
		return
	}

	g.tripped++
	fn := g.onDiagnostic
	logger := g.logger
	g.mu.Unlock()

	d := Diagnostic{Key: key, Count: c, Window: window}
	if fn != nil {
		fn(d)
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("rapid resubscription detected",
		"key", d.Key, "count", d.Count, "window", d.Window)
}
