package keywatch

import (
	"log/slog"
	"sync"
)

// Source is the type-erased view of a *Value[T] used as a Combined input.
// Every Value implements it regardless of T.
type Source interface {
	current() any
	subscribeSource(emit func(any), onError func(error), onDone func()) *Subscription
	sessionLogger() *slog.Logger
}

var _ Source = (*Value[struct{}])(nil)

// CombinedOption is a functional option for configuring a Combined.
type CombinedOption func(*combinedOptions)

type combinedOptions struct {
	cancelOnError bool
}

// CancelOnError controls what an input error does to the whole Combined.
// When true, the default, an error from any input cancels every input
// subscription and completes the Combined after forwarding the error once,
// so no half-alive aggregate lingers. When false the error is forwarded and
// all inputs keep running.
func CancelOnError(cancel bool) CombinedOption {
	return func(o *combinedOptions) {
		o.cancelOnError = cancel
	}
}

// applyCombinedOptions applies the given options over the defaults.
func applyCombinedOptions(opts []CombinedOption) combinedOptions {
	options := combinedOptions{cancelOnError: true}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Combined merges N values of possibly different types into one
// combine-latest stream of snapshots. A snapshot is an ordered []any with
// one slot per input, in input order. Each upstream change replaces its
// slot and emits a fresh snapshot; there is no barrier waiting for every
// input to change.
//
// Construction reads every input's current value synchronously before
// subscribing to any of them, so the initial snapshot has zero latency and
// cannot race the first change event. Inputs are subscribed through the
// dedup filter: an input re-emitting an unchanged value produces no
// snapshot.
//
// Observers must treat delivered snapshots as read-only; observers of the
// same emission share one copy.
//
// Combined owns the lifetime of its input subscriptions only, never the
// input values themselves.
type Combined struct {
	mu sync.Mutex

	// gen invalidates callbacks of torn-down input subscriptions across
	// SetSources rebuilds.
	gen uint64

	sources   []Source
	snapshot  []any
	inputs    []*Subscription
	observers []*Subscription

	// pendingDone counts inputs that have not completed; at zero the
	// Combined completes.
	pendingDone int

	// building suppresses fan-out while a rebuild wires input
	// subscriptions; their synchronous replays only refresh slots.
	building bool

	completed bool
	canceled  bool
	paused    bool

	cancelOnError bool
	logger        *slog.Logger
}

// NewCombined creates a combine-latest aggregate over the given inputs.
// An empty input list completes the Combined immediately: observers replay
// the empty snapshot and are done.
func NewCombined(sources []Source, opts ...CombinedOption) *Combined {
	cfg := applyCombinedOptions(opts)
	c := &Combined{
		cancelOnError: cfg.cancelOnError,
		snapshot:      []any{},
		logger:        slog.Default(),
	}
	c.sources = make([]Source, len(sources))
	copy(c.sources, sources)
	c.rebuild()
	return c
}

// Subscribe synchronously replays the current snapshot, then delivers a
// fresh snapshot after every input change. Options apply per observer; in
// particular DistinctUntilChanged suppresses snapshots structurally equal
// to the last one this observer received.
func (c *Combined) Subscribe(fn func([]any), opts ...SubscribeOption) *Subscription {
	if fn == nil {
		panic("keywatch: nil observer")
	}
	cfg := applySubscribeOptions(opts)

	c.mu.Lock()
	sub := newSubscription(cfg, func(x any) { fn(x.([]any)) }, c.logger)
	if c.canceled {
		c.mu.Unlock()
		sub.finish()
		return sub
	}
	if c.completed {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		sub.deliver(snap)
		sub.finish()
		return sub
	}
	sub.detach = func() { c.removeObserver(sub) }
	c.observers = append(c.observers, sub)
	snap := c.snapshotLocked()
	c.mu.Unlock()

	sub.deliver(snap)
	return sub
}

// SetSources replaces the input list. Every existing input subscription is
// torn down and the Combined rebuilds from scratch exactly as on
// construction: current values are re-read synchronously, then the new
// inputs are subscribed. No old subscription carries over. Observers stay
// attached and receive a snapshot of the new inputs.
//
// SetSources on a completed or canceled Combined is a no-op.
func (c *Combined) SetSources(sources []Source) {
	c.mu.Lock()
	if c.canceled || c.completed {
		c.mu.Unlock()
		return
	}
	c.sources = make([]Source, len(sources))
	copy(c.sources, sources)
	c.mu.Unlock()

	c.rebuild()
}

// Snapshot returns a copy of the current snapshot.
func (c *Combined) Snapshot() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Pause suspends every input subscription. Input changes while paused are
// dropped, not queued; the snapshot refreshes again on the first change
// after Resume. There is no partial pause: all inputs pause together.
func (c *Combined) Pause() {
	c.mu.Lock()
	c.paused = true
	inputs := make([]*Subscription, len(c.inputs))
	copy(inputs, c.inputs)
	c.mu.Unlock()

	for _, in := range inputs {
		in.Pause()
	}
}

// Resume re-enables every input subscription after Pause.
func (c *Combined) Resume() {
	c.mu.Lock()
	c.paused = false
	inputs := make([]*Subscription, len(c.inputs))
	copy(inputs, c.inputs)
	c.mu.Unlock()

	for _, in := range inputs {
		in.Resume()
	}
}

// Cancel tears down every input subscription and ends every observer.
// Cancel is idempotent; a completed Combined needs no Cancel.
func (c *Combined) Cancel() {
	c.mu.Lock()
	if c.canceled || c.completed {
		c.mu.Unlock()
		return
	}
	c.canceled = true
	inputs := c.inputs
	c.inputs = nil
	obs := c.observers
	c.observers = nil
	c.mu.Unlock()

	for _, in := range inputs {
		in.Cancel()
	}
	for _, o := range obs {
		o.finish()
	}
}

// rebuild tears down current input subscriptions and wires the configured
// sources: synchronous current-value reads first, then one dedup'd
// subscription per input. Synchronous replays during wiring refresh slots
// without fanning out; one snapshot goes to observers at the end.
func (c *Combined) rebuild() {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	oldInputs := c.inputs
	c.inputs = nil
	c.building = true
	sources := make([]Source, len(c.sources))
	copy(sources, c.sources)
	if len(sources) > 0 {
		c.logger = sources[0].sessionLogger()
	}
	c.mu.Unlock()

	for _, in := range oldInputs {
		in.Cancel()
	}

	// Read every current value before subscribing to anything: the initial
	// snapshot cannot race the first change event.
	snap := make([]any, len(sources))
	for i, src := range sources {
		snap[i] = src.current()
	}

	c.mu.Lock()
	if gen != c.gen || c.canceled || c.completed {
		c.mu.Unlock()
		return
	}
	c.snapshot = snap
	c.pendingDone = len(sources)
	c.mu.Unlock()

	inputs := make([]*Subscription, 0, len(sources))
	for i, src := range sources {
		sub := src.subscribeSource(
			func(x any) { c.onInput(gen, i, x) },
			func(err error) { c.onInputError(gen, err) },
			func() { c.onInputDone(gen) },
		)
		inputs = append(inputs, sub)
	}

	c.mu.Lock()
	if gen != c.gen || c.canceled || c.completed {
		c.mu.Unlock()
		for _, in := range inputs {
			in.Cancel()
		}
		return
	}
	c.inputs = inputs
	c.building = false
	paused := c.paused

	var complete bool
	if len(sources) == 0 {
		c.completed = true
		complete = true
	}
	obs := make([]*Subscription, len(c.observers))
	copy(obs, c.observers)
	if complete {
		c.observers = nil
	}
	out := c.snapshotLocked()
	c.mu.Unlock()

	if paused {
		for _, in := range inputs {
			in.Pause()
		}
	}
	for _, o := range obs {
		o.deliver(out)
	}
	if complete {
		for _, o := range obs {
			o.finish()
		}
	}
}

// onInput handles one emission from input slot i of generation gen.
func (c *Combined) onInput(gen uint64, i int, value any) {
	c.mu.Lock()
	if gen != c.gen || c.canceled || c.completed {
		c.mu.Unlock()
		return
	}
	c.snapshot[i] = value
	if c.building {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked()
	obs := make([]*Subscription, len(c.observers))
	copy(obs, c.observers)
	c.mu.Unlock()

	for _, o := range obs {
		o.deliver(snap)
	}
}

// onInputError forwards an input's read error per the cancel-on-error mode.
func (c *Combined) onInputError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || c.canceled || c.completed {
		c.mu.Unlock()
		return
	}
	cancelAll := c.cancelOnError
	var inputs []*Subscription
	obs := make([]*Subscription, len(c.observers))
	copy(obs, c.observers)
	if cancelAll {
		c.canceled = true
		inputs = c.inputs
		c.inputs = nil
		c.observers = nil
	}
	c.mu.Unlock()

	if cancelAll {
		for _, in := range inputs {
			in.Cancel()
		}
	}
	for _, o := range obs {
		o.reportError(err)
	}
	if cancelAll {
		for _, o := range obs {
			o.finish()
		}
	}
}

// onInputDone completes the Combined once every input has completed.
func (c *Combined) onInputDone(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.canceled || c.completed {
		c.mu.Unlock()
		return
	}
	c.pendingDone--
	if c.pendingDone > 0 {
		c.mu.Unlock()
		return
	}
	c.completed = true
	obs := c.observers
	c.observers = nil
	c.mu.Unlock()

	for _, o := range obs {
		o.finish()
	}
}

// snapshotLocked copies the snapshot; callers hold c.mu.
func (c *Combined) snapshotLocked() []any {
	snap := make([]any, len(c.snapshot))
	copy(snap, c.snapshot)
	return snap
}

// removeObserver detaches one observer; siblings are unaffected.
func (c *Combined) removeObserver(sub *Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, existing := range c.observers {
		if existing == sub {
			// Remove by swapping with last element (order doesn't matter)
			c.observers[i] = c.observers[len(c.observers)-1]
			c.observers = c.observers[:len(c.observers)-1]
			return
		}
	}
}
