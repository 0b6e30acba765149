package keywatch

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// Adapter translates one typed value to and from a store's primitive
// representation. Read returns store.ErrNotFound when the key is absent;
// Value maps that to its default.
//
// Adapters should be comparable: Value equality compares adapters, so two
// adapters for the same T with different primitive representations make
// their values distinct. All built-in adapters are stateless comparable
// structs.
type Adapter[T any] interface {
	Read(st store.Store, key string) (T, error)
	Write(st store.Store, key string, value T) error
}

// BoolAdapter stores bools natively.
type BoolAdapter struct{}

func (BoolAdapter) Read(st store.Store, key string) (bool, error) {
	return st.GetBool(key)
}

func (BoolAdapter) Write(st store.Store, key string, value bool) error {
	return st.SetBool(key, value)
}

// IntAdapter stores int64 natively.
type IntAdapter struct{}

func (IntAdapter) Read(st store.Store, key string) (int64, error) {
	return st.GetInt(key)
}

func (IntAdapter) Write(st store.Store, key string, value int64) error {
	return st.SetInt(key, value)
}

// FloatAdapter stores float64 natively.
type FloatAdapter struct{}

func (FloatAdapter) Read(st store.Store, key string) (float64, error) {
	return st.GetFloat(key)
}

func (FloatAdapter) Write(st store.Store, key string, value float64) error {
	return st.SetFloat(key, value)
}

// StringAdapter stores strings natively.
type StringAdapter struct{}

func (StringAdapter) Read(st store.Store, key string) (string, error) {
	return st.GetString(key)
}

func (StringAdapter) Write(st store.Store, key string, value string) error {
	return st.SetString(key, value)
}

// StringSliceAdapter stores string slices natively. Aliasing is the store's
// concern: the Store contract requires both directions to be copies.
type StringSliceAdapter struct{}

func (StringSliceAdapter) Read(st store.Store, key string) ([]string, error) {
	return st.GetStringSlice(key)
}

func (StringSliceAdapter) Write(st store.Store, key string, value []string) error {
	return st.SetStringSlice(key, value)
}

// TimeAdapter stores times as formatted strings. The zero value uses
// RFC 3339 with nanoseconds. Two TimeAdapters with different layouts are
// different primitive representations, so their values compare unequal.
type TimeAdapter struct {
	// Layout is the time format, time.RFC3339Nano when empty.
	Layout string
}

func (a TimeAdapter) layout() string {
	if a.Layout == "" {
		return time.RFC3339Nano
	}
	return a.Layout
}

func (a TimeAdapter) Read(st store.Store, key string) (time.Time, error) {
	s, err := st.GetString(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(a.layout(), s)
	if err != nil {
		return time.Time{}, fmt.Errorf("keywatch: parsing time at %q: %w", key, err)
	}
	return t, nil
}

func (a TimeAdapter) Write(st store.Store, key string, value time.Time) error {
	return st.SetString(key, value.Format(a.layout()))
}

// JSONAdapter stores any T as its JSON encoding in a string entry.
type JSONAdapter[T any] struct{}

func (JSONAdapter[T]) Read(st store.Store, key string) (T, error) {
	var value T
	s, err := st.GetString(key)
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal([]byte(s), &value); err != nil {
		return value, fmt.Errorf("keywatch: decoding JSON at %q: %w", key, err)
	}
	return value, nil
}

func (JSONAdapter[T]) Write(st store.Store, key string, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("keywatch: encoding JSON at %q: %w", key, err)
	}
	return st.SetString(key, string(data))
}
