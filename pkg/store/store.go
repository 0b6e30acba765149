// Package store defines the synchronous typed key-value contract that the
// observation layer sits on top of, together with the in-memory reference
// implementation.
//
// A Store is a plain bag of typed entries. It knows nothing about change
// notification; publishing changed keys is the job of the keywatch package,
// which performs every read and write through this contract.
//
// Absence is a first-class state: getters return ErrNotFound for a key that
// holds no value, which is never conflated with a stored zero value. Reading
// a key through the wrong typed getter returns ErrWrongKind.
//
// Implementations in this module: MemoryStore (here), badgerstore (embedded
// durable storage), s3store (one object per key).
package store

import "errors"

// ErrNotFound is returned by typed getters when the key holds no value.
var ErrNotFound = errors.New("store: key not found")

// ErrWrongKind is returned when a key is read through a getter of a
// different kind than the one it was written with.
var ErrWrongKind = errors.New("store: wrong kind")

// Store is the synchronous typed key-value contract.
//
// All methods are safe for concurrent use. Getters return ErrNotFound for
// absent keys rather than a zero value. Returned slices must not alias
// internal state: callers own what they receive, implementations own what
// they were given.
//
// Remove and Clear succeed on keys that are already absent; removing
// nothing is not an error.
type Store interface {
	// Keys returns every key that currently holds a value.
	// The result may be in any order and is empty, never nil,
	// when the store is empty.
	Keys() ([]string, error)

	GetBool(key string) (bool, error)
	SetBool(key string, value bool) error

	GetInt(key string) (int64, error)
	SetInt(key string, value int64) error

	GetFloat(key string) (float64, error)
	SetFloat(key string, value float64) error

	GetString(key string) (string, error)
	SetString(key string, value string) error

	GetStringSlice(key string) ([]string, error)
	SetStringSlice(key string, value []string) error

	// Remove deletes the key. Removing an absent key is not an error.
	Remove(key string) error

	// Clear deletes every key.
	Clear() error
}

// Enumerator is implemented by stores that can list their raw entries.
// The HTTP API and the CLI use it to read a key without knowing its kind
// up front. All stores in this module implement it.
type Enumerator interface {
	// Entries returns a snapshot of every stored entry, keyed by key.
	// The returned map and its entries are owned by the caller.
	Entries() (map[string]Entry, error)
}
