// Package keywatch provides change notification on top of a synchronous,
// typed key-value store.
//
// Callers observe value changes reactively instead of polling, while still
// reading the current value synchronously at any time. A Session wraps one
// store.Store with a broadcast Bus of changed keys; typed Value handles are
// built on top of both.
//
// # Core Types
//
// Value[T] is a read/write/observe handle bound to one key:
//
//	s := keywatch.NewSession(store.NewMemoryStore())
//	theme := s.String("theme", "light")
//
//	current := theme.Get()   // synchronous read, default if absent
//	theme.Set("dark")        // write, then notify every subscriber
//	theme.Clear()            // remove, observers see the default again
//
// Subscribing replays the current value synchronously, then follows changes:
//
//	sub := theme.Subscribe(func(v string) {
//	    fmt.Println("theme is now", v)
//	}, keywatch.DistinctUntilChanged())
//	defer sub.Cancel()
//
// Session.Keys observes the set of all existing keys:
//
//	keys := s.Keys()
//	keys.Subscribe(func(ks []string) { fmt.Println(ks) })
//
// Combined merges several values into one combine-latest stream of
// snapshots, one slot per input:
//
//	c := keywatch.NewCombined([]keywatch.Source{theme, fontSize})
//	c.Subscribe(func(snap []any) { render(snap) })
//
// # Process-Wide Session
//
// Configure and Instance manage a lazily opened, process-wide Session for
// applications that want a single shared bus:
//
//	keywatch.Configure(func() (store.Store, error) {
//	    cfg := badgerstore.DefaultConfig()
//	    cfg.Path = "/var/lib/app"
//	    return badgerstore.Open(cfg)
//	})
//	s, err := keywatch.Instance()
//
// # Thread Safety
//
// All types are safe for concurrent use. Notification is synchronous in the
// publisher's goroutine: subscriber callbacks must not block. Events for the
// same key reach a given subscriber in publish order; no ordering holds
// across different keys or concurrent publishers.
package keywatch
