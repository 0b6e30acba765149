// Package middleware provides production-grade observability wrappers for
// keywatch stores and sessions.
//
// This package includes:
//   - Prometheus instrumentation for store operations
//   - Prometheus collectors for live session statistics
//   - OpenTelemetry tracing for store operations
//
// # Store Instrumentation
//
// InstrumentStore wraps any store.Store and records operation counts and
// latencies. Wrap the store before handing it to the session so every read
// and write the observation layer performs is measured:
//
//	st := middleware.InstrumentStore(badgerStore,
//	    middleware.WithNamespace("myapp"),
//	)
//	sess := keywatch.NewSession(st)
//
// Then expose metrics on a separate port:
//
//	http.Handle("/metrics", promhttp.Handler())
//	go http.ListenAndServe(":9090", nil)
//
// # Session Collectors
//
// SessionCollectors returns collectors that read live counters from a
// session at scrape time: active bus subscriptions, total publishes, and
// rate-guard trips. Register them alongside your other metrics:
//
//	prometheus.MustRegister(middleware.SessionCollectors(sess)...)
//
// # OpenTelemetry Tracing
//
// TraceStore wraps a store.Store and starts a span per operation, named
// store.get, store.set, store.remove, store.clear, store.keys, with the key
// and kind as attributes. The tracer comes from the global provider unless
// WithTracerProvider is given:
//
//	st := middleware.TraceStore(badgerStore,
//	    middleware.WithTracerName("myapp"),
//	)
//
// A missing key is a normal outcome for the observation layer, so spans for
// reads that return store.ErrNotFound carry keywatch.found=false and an Ok
// status; only hard failures mark the span as errored.
//
// Wrappers preserve the optional store.Enumerator interface: wrapping a
// store that can list raw entries yields a wrapper that can too.
package middleware
