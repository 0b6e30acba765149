package keywatch

import (
	"errors"
	"log/slog"
	"reflect"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// Value is a reactive read/write handle bound to one key of a session's
// store. It is cheap and stateless: constructing one performs no I/O, and
// many handles for the same key may coexist. Equal tells handles for the
// same logical value apart from handles for different ones.
//
// The default is substituted whenever the key is absent. It is always
// present; the zero value of T is a legal default.
type Value[T any] struct {
	session *Session
	key     string
	def     T
	adapter Adapter[T]

	// aggregate marks the key-listing view, which observes every key and
	// rejects mutation.
	aggregate bool
}

// newValue builds a handle after checking the preconditions that hold for
// every Value: a session and an adapter.
func newValue[T any](s *Session, key string, def T, adapter Adapter[T]) *Value[T] {
	if s == nil {
		panic("keywatch: nil session")
	}
	if adapter == nil {
		panic("keywatch: nil adapter")
	}
	return &Value[T]{session: s, key: key, def: def, adapter: adapter}
}

// NewValue creates a handle for key with a caller-provided adapter.
// The typed Session constructors cover the built-in adapters; NewValue is
// the escape hatch for custom representations.
func NewValue[T any](s *Session, key string, def T, adapter Adapter[T]) *Value[T] {
	return newValue(s, key, def, adapter)
}

// JSON creates a handle that stores T as its JSON encoding.
// It is a package function because methods cannot take type parameters.
func JSON[T any](s *Session, key string, def T) *Value[T] {
	return newValue(s, key, def, JSONAdapter[T]{})
}

// Key returns the key this handle is bound to.
func (v *Value[T]) Key() string {
	return v.key
}

// Default returns the value substituted when the key is absent.
func (v *Value[T]) Default() T {
	return v.def
}

// Equal reports whether two handles denote the same logical value: same
// key, same primitive representation. Object identity is irrelevant; two
// separately constructed handles for the same key compare equal. Reactive
// consumers use this to detect a value being accidentally re-created
// instead of reused.
func (v *Value[T]) Equal(other *Value[T]) bool {
	if other == nil {
		return false
	}
	return v.key == other.key &&
		v.aggregate == other.aggregate &&
		adaptersEqual(v.adapter, other.adapter)
}

// adaptersEqual compares adapters by dynamic type and value. Adapters of an
// uncomparable type never compare equal.
func adaptersEqual(a, b any) bool {
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta == nil || !ta.Comparable() {
		return false
	}
	return a == b
}

// Get returns the current value, or the default when the key is absent.
// Get is synchronous and side-effect-free; it never touches the bus. A
// failing read degrades to the default and is logged at debug level.
func (v *Value[T]) Get() T {
	val, err := v.adapter.Read(v.session.store, v.key)
	if err == nil {
		return val
	}
	if !errors.Is(err, store.ErrNotFound) {
		v.session.logger.Debug("read failed, using default", "key", v.key, "error", err)
	}
	return v.def
}

// Set writes the value and, on success, publishes the key so every
// subscriber re-reads. Returns false when the store write fails; the bus is
// not touched on failure. Panics on the key-listing view.
func (v *Value[T]) Set(value T) bool {
	if v.aggregate {
		panic("keywatch: the key listing cannot be set")
	}
	if err := v.adapter.Write(v.session.store, v.key, value); err != nil {
		v.session.logger.Debug("write failed", "key", v.key, "error", err)
		return false
	}
	v.session.bus.Publish(v.key)
	return true
}

// Clear removes the key and, on success, publishes it; observers re-read
// and see the default. Clearing an absent key still succeeds and publishes.
// Panics on the key-listing view.
func (v *Value[T]) Clear() bool {
	if v.aggregate {
		panic("keywatch: the key listing cannot be cleared")
	}
	if err := v.session.store.Remove(v.key); err != nil {
		v.session.logger.Debug("remove failed", "key", v.key, "error", err)
		return false
	}
	v.session.bus.Publish(v.key)
	return true
}

// Reset writes the default value back to the store.
func (v *Value[T]) Reset() bool {
	return v.Set(v.def)
}

// Subscribe synchronously emits the current value, then re-reads and emits
// after every change to this key. The key-listing view observes every key.
//
// Fan-out is unconditional: each of N subscribers gets its own full
// replay-then-follow pipeline with independent pause and dedup state.
// Callbacks run synchronously in the publisher's goroutine and must not
// block.
func (v *Value[T]) Subscribe(fn func(T), opts ...SubscribeOption) *Subscription {
	if fn == nil {
		panic("keywatch: nil observer")
	}
	cfg := applySubscribeOptions(opts)
	sub := newSubscription(cfg, func(x any) { fn(x.(T)) }, v.session.logger)

	v.session.guard.Record(v.guardKey())

	// Replay before attaching: the first emission never waits for a change.
	sub.deliver(v.readFor(sub))

	busSub := v.session.bus.subscribe(func(changed string) {
		if !v.aggregate && changed != v.key {
			return
		}
		if sub.Paused() {
			// Skip the store read as well as the emission.
			return
		}
		sub.deliver(v.readFor(sub))
	}, sub.finish)

	// The observer may have canceled re-entrantly during the replay; do not
	// leave a dead attachment on the bus.
	sub.mu.Lock()
	finished := sub.finished
	if !finished {
		sub.detach = busSub.Cancel
	}
	sub.mu.Unlock()
	if finished {
		busSub.Cancel()
	}

	return sub
}

// readFor is Get with the error side channel of one subscription: a failing
// read reports to the subscription and degrades to the default, so the
// pipeline emits exactly once per matching event regardless.
func (v *Value[T]) readFor(sub *Subscription) T {
	val, err := v.adapter.Read(v.session.store, v.key)
	if err == nil {
		return val
	}
	if errors.Is(err, store.ErrNotFound) {
		return v.def
	}
	sub.reportError(err)
	return v.def
}

// guardKey is the label this value records under in the rate guard.
func (v *Value[T]) guardKey() string {
	if v.aggregate {
		return KeysGuardLabel
	}
	return v.key
}

// current implements Source.
func (v *Value[T]) current() any {
	return v.Get()
}

// sessionLogger implements Source.
func (v *Value[T]) sessionLogger() *slog.Logger {
	return v.session.logger
}

// subscribeSource implements Source. Inputs of a Combined always
// deduplicate, so an unchanged input never produces a snapshot.
func (v *Value[T]) subscribeSource(emit func(any), onError func(error), onDone func()) *Subscription {
	return v.Subscribe(func(val T) { emit(val) },
		DistinctUntilChanged(), OnError(onError), OnDone(onDone))
}
