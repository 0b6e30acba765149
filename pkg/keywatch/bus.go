package keywatch

import (
	"sync"
	"sync/atomic"
)

// Bus broadcasts changed keys to every active subscriber.
//
// Publish fans out synchronously in the caller's goroutine using the
// copy-before-notify pattern, so no Bus lock is held while subscriber
// callbacks run. Callbacks may publish, subscribe, or cancel re-entrantly,
// but must not block: a slow subscriber stalls every publisher.
type Bus struct {
	// subs are the current subscribers.
	subs []*BusSubscription

	// subMu protects the subs slice and the closed flag.
	subMu sync.RWMutex

	closed bool

	// publishes counts Publish calls, for BusStats.
	publishes uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn to receive every key published after this call.
// Keys published while the subscription is paused are dropped, not queued.
//
// Subscribing to a closed bus returns a subscription that is already done.
func (b *Bus) Subscribe(fn func(key string)) *BusSubscription {
	return b.subscribe(fn, nil)
}

// subscribe is Subscribe plus a completion hook, fired exactly once when the
// subscription ends by Cancel or by Close.
func (b *Bus) subscribe(fn func(key string), onFinish func()) *BusSubscription {
	sub := &BusSubscription{
		id:       nextID(),
		bus:      b,
		fn:       fn,
		onFinish: onFinish,
		done:     make(chan struct{}),
	}

	b.subMu.Lock()
	if b.closed {
		b.subMu.Unlock()
		sub.finish()
		return sub
	}
	b.subs = append(b.subs, sub)
	b.subMu.Unlock()

	return sub
}

// Publish notifies every active subscriber of a changed key.
// Publishing on a closed bus is a no-op.
func (b *Bus) Publish(key string) {
	b.subMu.RLock()
	if b.closed {
		b.subMu.RUnlock()
		return
	}
	subs := make([]*BusSubscription, len(b.subs))
	copy(subs, b.subs)
	b.subMu.RUnlock()

	atomic.AddUint64(&b.publishes, 1)

	for _, sub := range subs {
		sub.deliver(key)
	}
}

// Close ends every subscription and rejects further publishes.
// Each subscriber's completion hook fires exactly once. Close is idempotent.
func (b *Bus) Close() {
	b.subMu.Lock()
	if b.closed {
		b.subMu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = nil
	b.subMu.Unlock()

	for _, sub := range subs {
		sub.finish()
	}
}

// remove detaches a subscription from the subscriber list.
func (b *Bus) remove(id uint64) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	for i, existing := range b.subs {
		if existing.id == id {
			// Remove by swapping with last element (order doesn't matter)
			b.subs[i] = b.subs[len(b.subs)-1]
			b.subs = b.subs[:len(b.subs)-1]
			return
		}
	}
}

// BusStats reports bus usage counters.
type BusStats struct {
	// Subscribers is the number of currently attached subscriptions.
	Subscribers int

	// Publishes is the total number of Publish calls since creation.
	Publishes uint64
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() BusStats {
	b.subMu.RLock()
	n := len(b.subs)
	b.subMu.RUnlock()

	return BusStats{
		Subscribers: n,
		Publishes:   atomic.LoadUint64(&b.publishes),
	}
}

// BusSubscription is one subscriber's attachment to a Bus.
type BusSubscription struct {
	id  uint64
	bus *Bus
	fn  func(key string)

	// onFinish runs exactly once when the subscription ends.
	onFinish func()

	// done closes when the subscription ends.
	done chan struct{}

	mu       sync.Mutex
	paused   bool
	finished bool
}

// ID returns the unique identifier for this subscription.
func (s *BusSubscription) ID() uint64 {
	return s.id
}

// Pause stops delivery without detaching. Keys published while paused are
// not queued; Resume observes future publishes only.
func (s *BusSubscription) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume re-enables delivery after Pause.
func (s *BusSubscription) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
}

// Cancel detaches the subscription from the bus. Other subscribers are
// unaffected. Cancel is idempotent.
func (s *BusSubscription) Cancel() {
	s.bus.remove(s.id)
	s.finish()
}

// Done is closed when the subscription ends by Cancel or bus Close.
func (s *BusSubscription) Done() <-chan struct{} {
	return s.done
}

// deliver invokes the callback unless the subscription is paused or over.
// The callback runs outside the lock so it may re-enter the bus.
func (s *BusSubscription) deliver(key string) {
	s.mu.Lock()
	if s.paused || s.finished {
		s.mu.Unlock()
		return
	}
	fn := s.fn
	s.mu.Unlock()

	if fn != nil {
		fn(key)
	}
}

// finish marks the subscription over and fires the completion hook once.
func (s *BusSubscription) finish() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	onFinish := s.onFinish
	s.mu.Unlock()

	close(s.done)
	if onFinish != nil {
		onFinish()
	}
}
