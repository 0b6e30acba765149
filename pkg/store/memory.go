package store

import (
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryStore is the in-process Store implementation. It is the default
// backend for tests and for callers that want observation semantics without
// persistence.
//
// The zero value is not usable; construct with NewMemoryStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Keys returns every stored key in sorted order.
func (m *MemoryStore) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// get returns the entry for key, enforcing its kind.
func (m *MemoryStore) get(key string, kind Kind) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Kind != kind {
		return Entry{}, fmt.Errorf("%w: key %q holds %s, not %s", ErrWrongKind, key, e.Kind, kind)
	}
	return e, nil
}

func (m *MemoryStore) set(key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

func (m *MemoryStore) GetBool(key string) (bool, error) {
	e, err := m.get(key, KindBool)
	return e.Bool, err
}

func (m *MemoryStore) SetBool(key string, value bool) error {
	return m.set(key, BoolEntry(value))
}

func (m *MemoryStore) GetInt(key string) (int64, error) {
	e, err := m.get(key, KindInt)
	return e.Int, err
}

func (m *MemoryStore) SetInt(key string, value int64) error {
	return m.set(key, IntEntry(value))
}

func (m *MemoryStore) GetFloat(key string) (float64, error) {
	e, err := m.get(key, KindFloat)
	return e.Float, err
}

func (m *MemoryStore) SetFloat(key string, value float64) error {
	return m.set(key, FloatEntry(value))
}

func (m *MemoryStore) GetString(key string) (string, error) {
	e, err := m.get(key, KindString)
	return e.Str, err
}

func (m *MemoryStore) SetString(key string, value string) error {
	return m.set(key, StringEntry(value))
}

func (m *MemoryStore) GetStringSlice(key string) ([]string, error) {
	e, err := m.get(key, KindStringSlice)
	if err != nil {
		return nil, err
	}
	return slices.Clone(e.Slice), nil
}

func (m *MemoryStore) SetStringSlice(key string, value []string) error {
	// StringSliceEntry copies, so later caller mutations don't leak in.
	return m.set(key, StringSliceEntry(value))
}

// Remove deletes the key. Removing an absent key succeeds.
func (m *MemoryStore) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Clear deletes every key.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry)
	return nil
}

// Entries returns a deep copy of the current contents.
func (m *MemoryStore) Entries() (map[string]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Entry, len(m.entries))
	for k, e := range m.entries {
		out[k] = e.clone()
	}
	return out, nil
}

var (
	_ Store      = (*MemoryStore)(nil)
	_ Enumerator = (*MemoryStore)(nil)
)
