package keywatch

// SubscribeOption is a functional option for configuring a subscription.
type SubscribeOption func(*subscribeOptions)

// subscribeOptions holds per-subscription configuration.
type subscribeOptions struct {
	// dedup suppresses consecutive structurally equal emissions.
	dedup bool

	// onError receives read-pipeline errors. Delivery continues; the error
	// channel is diagnostic, not terminal.
	onError func(error)

	// onDone fires exactly once when the subscription ends.
	onDone func()
}

// DistinctUntilChanged suppresses an emission when it is structurally equal
// to the last value delivered to this subscription. State is per
// subscription: two subscribers to the same value deduplicate
// independently. The first emission, the replay of the current value, is
// always delivered and seeds the comparison.
//
// Example:
//
//	theme.Subscribe(apply, keywatch.DistinctUntilChanged())
func DistinctUntilChanged() SubscribeOption {
	return func(o *subscribeOptions) {
		o.dedup = true
	}
}

// OnError installs a callback for read-pipeline errors: adapter failures
// while re-reading after a change. Absence is not an error; it reads as the
// default. Without OnError such failures are logged at debug level.
//
// The subscription keeps running after an error; the emission for a failed
// read carries the default value.
func OnError(fn func(error)) SubscribeOption {
	return func(o *subscribeOptions) {
		o.onError = fn
	}
}

// OnDone installs a callback that fires exactly once when the subscription
// ends, whether by Cancel or by the session closing.
func OnDone(fn func()) SubscribeOption {
	return func(o *subscribeOptions) {
		o.onDone = fn
	}
}

// applySubscribeOptions applies the given options and returns the result.
func applySubscribeOptions(opts []SubscribeOption) subscribeOptions {
	var options subscribeOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
