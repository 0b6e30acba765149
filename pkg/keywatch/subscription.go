package keywatch

import (
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Subscription is one observer's attachment to a Value or a Combined.
//
// Pause stops delivery without detaching; emissions while paused are
// dropped, not queued, and Resume observes future changes only. Cancel
// detaches this observer alone: siblings and the underlying store are
// untouched.
type Subscription struct {
	mu sync.Mutex

	// emit hands a value to the observer callback, type-erased.
	emit func(any)

	onError func(error)
	onDone  func()
	logger  *slog.Logger

	// detach removes this subscription from its owner on Cancel.
	detach func()

	// dedup state. last seeds from the first delivery and resets when the
	// subscription ends.
	dedup  bool
	seeded bool
	last   any

	paused   bool
	finished bool

	// done closes when the subscription ends.
	done chan struct{}
}

// newSubscription builds a subscription from applied options.
func newSubscription(opts subscribeOptions, emit func(any), logger *slog.Logger) *Subscription {
	return &Subscription{
		emit:    emit,
		onError: opts.onError,
		onDone:  opts.onDone,
		logger:  logger,
		dedup:   opts.dedup,
		done:    make(chan struct{}),
	}
}

// Pause suspends delivery to this observer.
func (s *Subscription) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume re-enables delivery after Pause.
func (s *Subscription) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Paused reports whether delivery is currently suspended.
func (s *Subscription) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Cancel ends the subscription. The observer's OnDone callback fires exactly
// once; further emissions are discarded. Cancel is idempotent.
func (s *Subscription) Cancel() {
	s.mu.Lock()
	detach := s.detach
	s.detach = nil
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
	s.finish()
}

// Done is closed when the subscription ends by Cancel, by an input-canceling
// error, or by the session closing.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// deliver forwards a value through the optional dedup filter to the
// observer. The callback runs outside the lock so observers may publish or
// cancel re-entrantly.
func (s *Subscription) deliver(value any) {
	s.mu.Lock()
	if s.paused || s.finished {
		s.mu.Unlock()
		return
	}
	if s.dedup && s.seeded && structuralEquals(s.last, value) {
		s.mu.Unlock()
		return
	}
	s.last = value
	s.seeded = true
	emit := s.emit
	s.mu.Unlock()

	emit(value)
}

// reportError forwards a read-pipeline error to the OnError callback, or
// logs it at debug level when none is installed.
func (s *Subscription) reportError(err error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	onError := s.onError
	logger := s.logger
	s.mu.Unlock()

	if onError != nil {
		onError(err)
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("subscription read failed", "error", err)
}

// finish ends the subscription exactly once: dedup state resets so nothing
// lingers, done closes, and OnDone fires.
func (s *Subscription) finish() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.seeded = false
	s.last = nil
	onDone := s.onDone
	s.mu.Unlock()

	close(s.done)
	if onDone != nil {
		onDone()
	}
}

// structuralEquals provides type-appropriate value equality for the dedup
// filter. Uses == for scalar types and reflect.DeepEqual for the rest.
func structuralEquals(a, b any) bool {
	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case int:
		bv, ok := b.(int)
		return ok && av == bv
	case int8:
		bv, ok := b.(int8)
		return ok && av == bv
	case int16:
		bv, ok := b.(int16)
		return ok && av == bv
	case int32:
		bv, ok := b.(int32)
		return ok && av == bv
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case uint:
		bv, ok := b.(uint)
		return ok && av == bv
	case uint8:
		bv, ok := b.(uint8)
		return ok && av == bv
	case uint16:
		bv, ok := b.(uint16)
		return ok && av == bv
	case uint32:
		bv, ok := b.(uint32)
		return ok && av == bv
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case float32:
		bv, ok := b.(float32)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	default:
		// Slices, maps, structs, snapshots.
		return reflect.DeepEqual(a, b)
	}
}
