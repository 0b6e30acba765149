package keywatch

import (
	"fmt"
	"sync"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// The process-wide session. Guarded by instMu: initialization is
// single-flight, concurrent Instance callers block and share the outcome.
var (
	instMu   sync.Mutex
	instOpen func() (store.Store, error)
	instOpts []SessionOption
	inst     *Session
)

// Configure registers the store opener and options for the process-wide
// session. The opener runs lazily, on the first Instance call, never here.
// Calling Configure again before the first Instance replaces the pending
// configuration; calling it after the session exists is a wiring bug and
// panics. ResetInstance returns to the configurable state.
func Configure(open func() (store.Store, error), opts ...SessionOption) {
	if open == nil {
		panic("keywatch: nil store opener")
	}

	instMu.Lock()
	defer instMu.Unlock()

	if inst != nil {
		panic("keywatch: Configure called after the instance was initialized")
	}
	instOpen = open
	instOpts = opts
}

// Instance returns the process-wide session, opening the store on first
// use. Success is memoized: every later call returns the same session. An
// opener failure is returned and not memoized, so a later call retries.
// Instance before Configure returns ErrNotConfigured.
func Instance() (*Session, error) {
	instMu.Lock()
	defer instMu.Unlock()

	if inst != nil {
		return inst, nil
	}
	if instOpen == nil {
		return nil, ErrNotConfigured
	}

	st, err := instOpen()
	if err != nil {
		return nil, fmt.Errorf("keywatch: opening store: %w", err)
	}
	inst = NewSession(st, instOpts...)
	return inst, nil
}

// ResetInstance closes the process-wide session and forgets it, keeping the
// configured opener so the next Instance call reinitializes. It exists for
// test teardown; production code has no reason to reset.
func ResetInstance() {
	instMu.Lock()
	defer instMu.Unlock()

	if inst != nil {
		inst.Close()
		inst = nil
	}
}
