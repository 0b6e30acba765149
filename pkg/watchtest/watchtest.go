package watchtest

import (
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/keywatch-dev/keywatch/pkg/keywatch"
	"github.com/keywatch-dev/keywatch/pkg/store"
)

// NewSession creates a session over a fresh in-memory store and closes
// it when the test finishes.
func NewSession(tb testing.TB, opts ...keywatch.SessionOption) *keywatch.Session {
	tb.Helper()
	sess := keywatch.NewSession(store.NewMemoryStore(), opts...)
	tb.Cleanup(sess.Close)
	return sess
}

// Recorder captures every value delivered to an observer, in order.
// Pass Record as the subscribe callback:
//
//	rec := watchtest.NewRecorder[bool]()
//	sub := sess.Bool("ui.dark", false).Subscribe(rec.Record)
//
// Recorder is safe for concurrent use.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

// NewRecorder creates an empty recorder for values of type T.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

// Record appends one value. It has the shape of a subscribe callback.
func (r *Recorder[T]) Record(v T) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

// Values returns a copy of everything recorded so far.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.values)
}

// Last returns the most recent value and whether anything was recorded.
func (r *Recorder[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.values) == 0 {
		var zero T
		return zero, false
	}
	return r.values[len(r.values)-1], true
}

// Count returns how many values have been recorded.
func (r *Recorder[T]) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Reset discards everything recorded so far.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.values = nil
	r.mu.Unlock()
}

// ExpectValues asserts the exact sequence recorded so far.
//
//	watchtest.ExpectValues(t, rec, false, true)
func ExpectValues[T any](tb testing.TB, r *Recorder[T], want ...T) {
	tb.Helper()
	got := r.Values()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		tb.Errorf("recorded %v, want %v", got, want)
	}
}
