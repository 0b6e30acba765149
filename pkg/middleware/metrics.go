package middleware

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/keywatch-dev/keywatch/pkg/keywatch"
	"github.com/keywatch-dev/keywatch/pkg/store"
)

// MetricsConfig configures the Prometheus store instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "keywatch").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for operation duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus store instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:   "keywatch",
		Subsystem:   "",
		ConstLabels: nil,
		Buckets:     prometheus.DefBuckets,
		Registry:    prometheus.DefaultRegisterer,
	}
}

// storeMetrics holds the Prometheus metrics for store operations.
type storeMetrics struct {
	opsTotal   *prometheus.CounterVec
	opDuration *prometheus.HistogramVec
}

// globalStoreMetrics is the singleton metrics instance.
// Created on the first call to InstrumentStore().
var (
	globalStoreMetrics   *storeMetrics
	globalStoreMetricsMu sync.Mutex
)

// initStoreMetrics initializes the Prometheus store metrics.
func initStoreMetrics(config MetricsConfig) *storeMetrics {
	factory := promauto.With(config.Registry)

	return &storeMetrics{
		opsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_operations_total",
			Help:        "Total number of store operations by op, kind and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"op", "kind", "outcome"}),

		opDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_operation_duration_seconds",
			Help:        "Store operation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"op"}),
	}
}

// InstrumentStore wraps a store with Prometheus instrumentation.
//
// Metrics collected:
//   - keywatch_store_operations_total: Counter of operations by op
//     (keys, get, set, remove, clear, entries), kind and outcome
//     (ok, miss, wrong_kind, error)
//   - keywatch_store_operation_duration_seconds: Histogram of operation
//     duration by op
//
// The metrics are initialized once; the configuration of the first call
// wins. Wrap the store before constructing the session:
//
//	sess := keywatch.NewSession(middleware.InstrumentStore(st))
//
// If the wrapped store implements store.Enumerator, so does the returned
// store.
func InstrumentStore(st store.Store, opts ...MetricsOption) store.Store {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Initialize metrics once
	globalStoreMetricsMu.Lock()
	if globalStoreMetrics == nil {
		globalStoreMetrics = initStoreMetrics(config)
	}
	m := globalStoreMetrics
	globalStoreMetricsMu.Unlock()

	w := &instrumentedStore{next: st, m: m}
	if e, ok := st.(store.Enumerator); ok {
		return &instrumentedEnumerator{instrumentedStore: w, entries: e}
	}
	return w
}

// instrumentedStore measures every operation of the wrapped store.
type instrumentedStore struct {
	next store.Store
	m    *storeMetrics
}

// instrumentedEnumerator additionally forwards raw entry listing.
type instrumentedEnumerator struct {
	*instrumentedStore
	entries store.Enumerator
}

// outcomeFor maps an operation error to a low-cardinality outcome label.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "miss"
	case errors.Is(err, store.ErrWrongKind):
		return "wrong_kind"
	default:
		return "error"
	}
}

func (s *instrumentedStore) observe(op, kind string, start time.Time, err error) {
	s.m.opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	s.m.opsTotal.WithLabelValues(op, kind, outcomeFor(err)).Inc()
}

func (s *instrumentedStore) Keys() ([]string, error) {
	start := time.Now()
	keys, err := s.next.Keys()
	s.observe("keys", "", start, err)
	return keys, err
}

func (s *instrumentedStore) GetBool(key string) (bool, error) {
	start := time.Now()
	v, err := s.next.GetBool(key)
	s.observe("get", store.KindBool.String(), start, err)
	return v, err
}

func (s *instrumentedStore) SetBool(key string, v bool) error {
	start := time.Now()
	err := s.next.SetBool(key, v)
	s.observe("set", store.KindBool.String(), start, err)
	return err
}

func (s *instrumentedStore) GetInt(key string) (int64, error) {
	start := time.Now()
	v, err := s.next.GetInt(key)
	s.observe("get", store.KindInt.String(), start, err)
	return v, err
}

func (s *instrumentedStore) SetInt(key string, v int64) error {
	start := time.Now()
	err := s.next.SetInt(key, v)
	s.observe("set", store.KindInt.String(), start, err)
	return err
}

func (s *instrumentedStore) GetFloat(key string) (float64, error) {
	start := time.Now()
	v, err := s.next.GetFloat(key)
	s.observe("get", store.KindFloat.String(), start, err)
	return v, err
}

func (s *instrumentedStore) SetFloat(key string, v float64) error {
	start := time.Now()
	err := s.next.SetFloat(key, v)
	s.observe("set", store.KindFloat.String(), start, err)
	return err
}

func (s *instrumentedStore) GetString(key string) (string, error) {
	start := time.Now()
	v, err := s.next.GetString(key)
	s.observe("get", store.KindString.String(), start, err)
	return v, err
}

func (s *instrumentedStore) SetString(key string, v string) error {
	start := time.Now()
	err := s.next.SetString(key, v)
	s.observe("set", store.KindString.String(), start, err)
	return err
}

func (s *instrumentedStore) GetStringSlice(key string) ([]string, error) {
	start := time.Now()
	v, err := s.next.GetStringSlice(key)
	s.observe("get", store.KindStringSlice.String(), start, err)
	return v, err
}

func (s *instrumentedStore) SetStringSlice(key string, v []string) error {
	start := time.Now()
	err := s.next.SetStringSlice(key, v)
	s.observe("set", store.KindStringSlice.String(), start, err)
	return err
}

func (s *instrumentedStore) Remove(key string) error {
	start := time.Now()
	err := s.next.Remove(key)
	s.observe("remove", "", start, err)
	return err
}

func (s *instrumentedStore) Clear() error {
	start := time.Now()
	err := s.next.Clear()
	s.observe("clear", "", start, err)
	return err
}

func (s *instrumentedEnumerator) Entries() (map[string]store.Entry, error) {
	start := time.Now()
	entries, err := s.entries.Entries()
	s.observe("entries", "", start, err)
	return entries, err
}

// =============================================================================
// Session Collectors
// =============================================================================

// SessionCollectors returns Prometheus collectors that read live statistics
// from the session at scrape time:
//   - keywatch_bus_subscribers: Gauge of active bus subscriptions
//   - keywatch_bus_publishes_total: Counter of published change events
//   - keywatch_guard_trips_total: Counter of rate-guard diagnostics raised
//
// The collectors are not registered; register them with your registry:
//
//	prometheus.MustRegister(middleware.SessionCollectors(sess)...)
func SessionCollectors(sess *keywatch.Session, opts ...MetricsOption) []prometheus.Collector {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bus_subscribers",
			Help:        "Number of active change bus subscriptions",
			ConstLabels: config.ConstLabels,
		}, func() float64 {
			return float64(sess.Bus().Stats().Subscribers)
		}),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "bus_publishes_total",
			Help:        "Total number of change events published on the bus",
			ConstLabels: config.ConstLabels,
		}, func() float64 {
			return float64(sess.Bus().Stats().Publishes)
		}),

		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "guard_trips_total",
			Help:        "Total number of rapid resubscription diagnostics raised",
			ConstLabels: config.ConstLabels,
		}, func() float64 {
			return float64(sess.RateGuard().Tripped())
		}),
	}
}
