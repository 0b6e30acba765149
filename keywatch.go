// Package keywatch provides the public API for the KeyWatch reactive store.
//
// This is the recommended import for most applications:
//
//	import "github.com/keywatch-dev/keywatch"
//
// Usage:
//
//	sess := keywatch.NewSession(keywatch.NewMemoryStore())
//	defer sess.Close()
//
//	volume := sess.Int("volume", 50)
//	sub := volume.Subscribe(func(v int64) {
//	    fmt.Println("volume:", v)
//	})
//	defer sub.Cancel()
//
//	volume.Set(80) // subscriber prints "volume: 80"
package keywatch

import (
	corekeywatch "github.com/keywatch-dev/keywatch/pkg/keywatch"
	"github.com/keywatch-dev/keywatch/pkg/store"
)

// =============================================================================
// Session (re-export from pkg/keywatch)
// =============================================================================

// Session binds typed values, the change bus and the rate guard to one store.
type Session = corekeywatch.Session

// SessionOption configures a Session at construction time.
type SessionOption = corekeywatch.SessionOption

// NewSession creates a session over the given store.
//
// Example:
//
//	sess := keywatch.NewSession(keywatch.NewMemoryStore(),
//	    keywatch.WithRateGuard(true))
var NewSession = corekeywatch.NewSession

// WithLogger sets the logger used by the session and everything it creates.
var WithLogger = corekeywatch.WithLogger

// WithRateGuard enables the subscription rate guard from the start.
var WithRateGuard = corekeywatch.WithRateGuard

// WithClock overrides the time source (used by the rate guard).
var WithClock = corekeywatch.WithClock

// WithDiagnostics registers a callback for rate guard diagnostics.
var WithDiagnostics = corekeywatch.WithDiagnostics

// =============================================================================
// Process-wide singleton (re-export from pkg/keywatch)
// =============================================================================

// Configure registers the store opener used by Instance. The first call wins.
var Configure = corekeywatch.Configure

// Instance returns the lazily created process-wide session.
//
// Example:
//
//	keywatch.Configure(func() (keywatch.Store, error) {
//	    return keywatch.NewMemoryStore(), nil
//	})
//	sess, err := keywatch.Instance()
var Instance = corekeywatch.Instance

// ResetInstance closes and forgets the singleton. Intended for tests.
var ResetInstance = corekeywatch.ResetInstance

// ErrNotConfigured is returned by Instance before Configure has been called.
var ErrNotConfigured = corekeywatch.ErrNotConfigured

// =============================================================================
// Observable values (re-export from pkg/keywatch)
// =============================================================================

// Value is a typed observable view over one store key.
type Value[T any] = corekeywatch.Value[T]

// Subscription is a handle on one observer of a Value or Combined.
type Subscription = corekeywatch.Subscription

// SubscribeOption configures a single Subscribe call.
type SubscribeOption = corekeywatch.SubscribeOption

// Adapter converts between a Go type and the store's typed slots.
type Adapter[T any] = corekeywatch.Adapter[T]

// NewValue creates a value with a custom adapter.
//
// Example:
//
//	type Theme struct{ Name string }
//	theme := keywatch.NewValue(sess, "theme", Theme{Name: "light"},
//	    keywatch.JSONAdapter[Theme]{})
func NewValue[T any](s *Session, key string, def T, adapter Adapter[T]) *Value[T] {
	return corekeywatch.NewValue(s, key, def, adapter)
}

// JSON creates a value that stores T as a JSON string.
func JSON[T any](s *Session, key string, def T) *Value[T] {
	return corekeywatch.JSON(s, key, def)
}

// DistinctUntilChanged suppresses deliveries that repeat the previous value.
var DistinctUntilChanged = corekeywatch.DistinctUntilChanged

// OnError registers an error callback for a subscription.
var OnError = corekeywatch.OnError

// OnDone registers a completion callback for a subscription.
var OnDone = corekeywatch.OnDone

// Built-in adapters
type BoolAdapter = corekeywatch.BoolAdapter
type IntAdapter = corekeywatch.IntAdapter
type FloatAdapter = corekeywatch.FloatAdapter
type StringAdapter = corekeywatch.StringAdapter
type StringSliceAdapter = corekeywatch.StringSliceAdapter
type TimeAdapter = corekeywatch.TimeAdapter
type JSONAdapter[T any] = corekeywatch.JSONAdapter[T]

// =============================================================================
// Change bus (re-export from pkg/keywatch)
// =============================================================================

// Bus fans out key change notifications to subscribers.
type Bus = corekeywatch.Bus

// BusStats is a point-in-time snapshot of bus counters.
type BusStats = corekeywatch.BusStats

// BusSubscription is a handle on one bus observer.
type BusSubscription = corekeywatch.BusSubscription

// NewBus creates a standalone change bus. Sessions create their own;
// this is for callers that only need key-level notifications.
var NewBus = corekeywatch.NewBus

// =============================================================================
// Combining values (re-export from pkg/keywatch)
// =============================================================================

// Combined merges the latest value of several sources into one stream.
type Combined = corekeywatch.Combined

// Source is anything a Combined can subscribe to. Every *Value[T] is a Source.
type Source = corekeywatch.Source

// CombinedOption configures a Combined at construction time.
type CombinedOption = corekeywatch.CombinedOption

// NewCombined creates a combined view over the given sources.
//
// Example:
//
//	combo := keywatch.NewCombined([]keywatch.Source{volume, muted})
//	combo.Subscribe(func(vs []any) {
//	    fmt.Println("volume:", vs[0], "muted:", vs[1])
//	})
var NewCombined = corekeywatch.NewCombined

// CancelOnError makes a Combined cancel itself when any source errors.
var CancelOnError = corekeywatch.CancelOnError

// =============================================================================
// Rate guard (re-export from pkg/keywatch)
// =============================================================================

// RateGuard detects rapid re-subscription to the same key.
type RateGuard = corekeywatch.RateGuard

// Diagnostic describes one rate guard trip.
type Diagnostic = corekeywatch.Diagnostic

const (
	// RapidCount is the number of subscriptions within RapidWindow that
	// trips the guard.
	RapidCount = corekeywatch.RapidCount

	// RapidWindow is the window the guard watches.
	RapidWindow = corekeywatch.RapidWindow

	// KeysGuardLabel is the guard label used by the session's Keys view.
	KeysGuardLabel = corekeywatch.KeysGuardLabel
)

// =============================================================================
// Store (re-export from pkg/store)
// =============================================================================

// Store is the synchronous typed key-value backend a Session runs over.
type Store = store.Store

// Enumerator is the optional store extension that lists full entries.
type Enumerator = store.Enumerator

// Entry is one typed store slot.
type Entry = store.Entry

// Kind discriminates the five entry types.
type Kind = store.Kind

// Kind constants
const (
	KindBool        = store.KindBool
	KindInt         = store.KindInt
	KindFloat       = store.KindFloat
	KindString      = store.KindString
	KindStringSlice = store.KindStringSlice
)

// NewMemoryStore creates the built-in in-memory store.
var NewMemoryStore = store.NewMemoryStore

// ErrNotFound is returned by store reads of absent keys.
var ErrNotFound = store.ErrNotFound

// ErrWrongKind is returned by store reads with a mismatched type.
var ErrWrongKind = store.ErrWrongKind
