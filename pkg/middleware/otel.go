package middleware

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// Default tracer name for keywatch stores.
const defaultTracerName = "keywatch"

// TraceConfig configures the OpenTelemetry store tracing.
type TraceConfig struct {
	// TracerName is the name of the tracer (default: "keywatch").
	TracerName string

	// TracerProvider supplies the tracer. If nil, the global
	// OpenTelemetry tracer provider is used.
	TracerProvider trace.TracerProvider

	// Filter determines which operations to trace.
	// Return true to trace the operation, false to skip.
	// If nil, all operations are traced.
	Filter func(op, key string) bool

	// BaseContext is the parent context for store spans. The store
	// contract is synchronous and carries no context per call, so
	// spans parent here. Default: context.Background().
	BaseContext context.Context

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// TraceOption configures the OpenTelemetry store tracing.
type TraceOption func(*TraceConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TraceOption {
	return func(c *TraceConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TraceOption {
	return func(c *TraceConfig) {
		c.TracerProvider = tp
	}
}

// WithOpFilter sets a filter function for operations. The op is one of
// keys, get, set, remove, clear, entries; the key is empty for keys,
// clear and entries.
func WithOpFilter(filter func(op, key string) bool) TraceOption {
	return func(c *TraceConfig) {
		c.Filter = filter
	}
}

// WithBaseContext sets the parent context for store spans.
func WithBaseContext(ctx context.Context) TraceOption {
	return func(c *TraceConfig) {
		c.BaseContext = ctx
	}
}

// defaultTraceConfig returns the default tracing configuration.
func defaultTraceConfig() TraceConfig {
	return TraceConfig{
		TracerName:  defaultTracerName,
		Filter:      nil,
		BaseContext: context.Background(),
	}
}

// TraceStore wraps a store so that every operation runs under an
// OpenTelemetry span.
//
// Spans are named store.keys, store.get, store.set, store.remove,
// store.clear and store.entries, and carry keywatch.key and keywatch.kind
// attributes where applicable. A read that finds no value is a normal
// outcome: its span gets keywatch.found=false and an Ok status. Hard
// failures record the error and set an Error status.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure the provider in your main()
// before wrapping:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	)
//	otel.SetTracerProvider(tp)
//	sess := keywatch.NewSession(middleware.TraceStore(st))
//
// If the wrapped store implements store.Enumerator, so does the returned
// store.
func TraceStore(st store.Store, opts ...TraceOption) store.Store {
	config := defaultTraceConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve the tracer
	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	w := &tracedStore{next: st, config: config}
	if e, ok := st.(store.Enumerator); ok {
		return &tracedEnumerator{tracedStore: w, entries: e}
	}
	return w
}

// tracedStore spans every operation of the wrapped store.
type tracedStore struct {
	next   store.Store
	config TraceConfig
}

// tracedEnumerator additionally forwards raw entry listing.
type tracedEnumerator struct {
	*tracedStore
	entries store.Enumerator
}

// skip reports whether the configured filter excludes this operation.
func (s *tracedStore) skip(op, key string) bool {
	return s.config.Filter != nil && !s.config.Filter(op, key)
}

// start begins a span for the operation. A zero kind means the operation
// is not kind-specific.
func (s *tracedStore) start(op, key string, kind store.Kind) trace.Span {
	attrs := make([]attribute.KeyValue, 0, 2)
	if key != "" {
		attrs = append(attrs, attribute.String("keywatch.key", key))
	}
	if kind != 0 {
		attrs = append(attrs, attribute.String("keywatch.kind", kind.String()))
	}

	_, span := s.config.tracer.Start(
		s.config.BaseContext,
		"store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return span
}

// finish records the operation result and ends the span.
func finish(span trace.Span, err error) {
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, store.ErrNotFound):
		// Absence is a normal outcome, not a failure.
		span.SetAttributes(attribute.Bool("keywatch.found", false))
		span.SetStatus(codes.Ok, "")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *tracedStore) Keys() ([]string, error) {
	if s.skip("keys", "") {
		return s.next.Keys()
	}
	span := s.start("keys", "", 0)
	keys, err := s.next.Keys()
	finish(span, err)
	return keys, err
}

func (s *tracedStore) GetBool(key string) (bool, error) {
	if s.skip("get", key) {
		return s.next.GetBool(key)
	}
	span := s.start("get", key, store.KindBool)
	v, err := s.next.GetBool(key)
	finish(span, err)
	return v, err
}

func (s *tracedStore) SetBool(key string, v bool) error {
	if s.skip("set", key) {
		return s.next.SetBool(key, v)
	}
	span := s.start("set", key, store.KindBool)
	err := s.next.SetBool(key, v)
	finish(span, err)
	return err
}

func (s *tracedStore) GetInt(key string) (int64, error) {
	if s.skip("get", key) {
		return s.next.GetInt(key)
	}
	span := s.start("get", key, store.KindInt)
	v, err := s.next.GetInt(key)
	finish(span, err)
	return v, err
}

func (s *tracedStore) SetInt(key string, v int64) error {
	if s.skip("set", key) {
		return s.next.SetInt(key, v)
	}
	span := s.start("set", key, store.KindInt)
	err := s.next.SetInt(key, v)
	finish(span, err)
	return err
}

func (s *tracedStore) GetFloat(key string) (float64, error) {
	if s.skip("get", key) {
		return s.next.GetFloat(key)
	}
	span := s.start("get", key, store.KindFloat)
	v, err := s.next.GetFloat(key)
	finish(span, err)
	return v, err
}

func (s *tracedStore) SetFloat(key string, v float64) error {
	if s.skip("set", key) {
		return s.next.SetFloat(key, v)
	}
	span := s.start("set", key, store.KindFloat)
	err := s.next.SetFloat(key, v)
	finish(span, err)
	return err
}

func (s *tracedStore) GetString(key string) (string, error) {
	if s.skip("get", key) {
		return s.next.GetString(key)
	}
	span := s.start("get", key, store.KindString)
	v, err := s.next.GetString(key)
	finish(span, err)
	return v, err
}

func (s *tracedStore) SetString(key string, v string) error {
	if s.skip("set", key) {
		return s.next.SetString(key, v)
	}
	span := s.start("set", key, store.KindString)
	err := s.next.SetString(key, v)
	finish(span, err)
	return err
}

func (s *tracedStore) GetStringSlice(key string) ([]string, error) {
	if s.skip("get", key) {
		return s.next.GetStringSlice(key)
	}
	span := s.start("get", key, store.KindStringSlice)
	v, err := s.next.GetStringSlice(key)
	finish(span, err)
	return v, err
}

func (s *tracedStore) SetStringSlice(key string, v []string) error {
	if s.skip("set", key) {
		return s.next.SetStringSlice(key, v)
	}
	span := s.start("set", key, store.KindStringSlice)
	err := s.next.SetStringSlice(key, v)
	finish(span, err)
	return err
}

func (s *tracedStore) Remove(key string) error {
	if s.skip("remove", key) {
		return s.next.Remove(key)
	}
	span := s.start("remove", key, 0)
	err := s.next.Remove(key)
	finish(span, err)
	return err
}

func (s *tracedStore) Clear() error {
	if s.skip("clear", "") {
		return s.next.Clear()
	}
	span := s.start("clear", "", 0)
	err := s.next.Clear()
	finish(span, err)
	return err
}

func (s *tracedEnumerator) Entries() (map[string]store.Entry, error) {
	if s.skip("entries", "") {
		return s.entries.Entries()
	}
	span := s.start("entries", "", 0)
	entries, err := s.entries.Entries()
	finish(span, err)
	return entries, err
}
