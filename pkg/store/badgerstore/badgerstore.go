// Package badgerstore implements the store contract on top of BadgerDB,
// giving sessions an embedded durable backend with no external service.
//
// Every entry is stored under its own key in the canonical JSON encoding,
// so a database written here can be inspected with plain badger tooling
// and survives process restarts. The store owns its database directory;
// open one Store per directory.
package badgerstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// Config holds the settings for a badger-backed store.
type Config struct {
	// Path is the directory for the database files. It is created if it
	// does not exist. Required unless InMemory is set.
	Path string

	// InMemory keeps all data in RAM. Nothing survives Close. Intended
	// for tests.
	InMemory bool

	// SyncWrites flushes every write to disk before acknowledging it.
	// Default: true.
	SyncWrites bool

	// GCInterval is how often the value log garbage collector runs.
	// Zero disables collection; in-memory stores never collect.
	// Default: 5m.
	GCInterval time.Duration

	// GCDiscardRatio is the fraction of discardable data in the value
	// log that triggers a rewrite. Default: 0.5.
	GCDiscardRatio float64

	// Logger receives badger's internal log output and the store's own
	// warnings. If nil, badger's logging is silenced.
	Logger *slog.Logger
}

// DefaultConfig returns the production configuration: synchronous writes
// and periodic value log collection.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns a configuration for tests: no disk, no sync,
// no garbage collection.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is a badger-backed Store implementation. It is safe for
// concurrent use and also satisfies the Enumerator contract.
//
// Construct with Open; the caller must Close when done.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	stopGC chan struct{}
	gcDone chan struct{}
}

// badgerLogger adapts slog to badger's internal Logger interface.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(format string, args ...any)   { b.l.Error(fmt.Sprintf(format, args...)) }
func (b badgerLogger) Warningf(format string, args ...any) { b.l.Warn(fmt.Sprintf(format, args...)) }
func (b badgerLogger) Infof(format string, args ...any)    { b.l.Info(fmt.Sprintf(format, args...)) }
func (b badgerLogger) Debugf(format string, args ...any)   { b.l.Debug(fmt.Sprintf(format, args...)) }

// Open opens the database described by config and returns the store.
func Open(config Config) (*Store, error) {
	if !config.InMemory && config.Path == "" {
		return nil, errors.New("badgerstore: path required unless in-memory")
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(config.Path, 0o750); err != nil {
			return nil, fmt.Errorf("badgerstore: create %s: %w", config.Path, err)
		}
		opts = badger.DefaultOptions(config.Path)
	}
	opts = opts.WithSyncWrites(config.SyncWrites)
	if config.Logger != nil {
		opts = opts.WithLogger(badgerLogger{config.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badgerstore: open: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		db:     db,
		logger: logger.With("component", "badgerstore"),
	}

	if config.GCInterval > 0 && !config.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(config.GCInterval, config.GCDiscardRatio)
	}
	return s, nil
}

// runGC rewrites the value log on a ticker until Close.
func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite means there was nothing worth collecting.
			err := s.db.RunValueLogGC(ratio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				s.logger.Warn("value log GC failed", "error", err)
			}
		}
	}
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	return s.db.Close()
}

// getEntry loads and decodes the entry stored under key.
func (s *Store) getEntry(key string) (store.Entry, error) {
	var e store.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if err != nil {
		return store.Entry{}, err
	}
	return e, nil
}

// get returns the entry for key, enforcing its kind.
func (s *Store) get(key string, kind store.Kind) (store.Entry, error) {
	e, err := s.getEntry(key)
	if err != nil {
		return store.Entry{}, err
	}
	if e.Kind != kind {
		return store.Entry{}, fmt.Errorf("%w: key %q holds %s, not %s", store.ErrWrongKind, key, e.Kind, kind)
	}
	return e, nil
}

func (s *Store) set(key string, e store.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Keys returns every stored key. Iteration is already in key order.
func (s *Store) Keys() ([]string, error) {
	keys := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) GetBool(key string) (bool, error) {
	e, err := s.get(key, store.KindBool)
	return e.Bool, err
}

func (s *Store) SetBool(key string, value bool) error {
	return s.set(key, store.BoolEntry(value))
}

func (s *Store) GetInt(key string) (int64, error) {
	e, err := s.get(key, store.KindInt)
	return e.Int, err
}

func (s *Store) SetInt(key string, value int64) error {
	return s.set(key, store.IntEntry(value))
}

func (s *Store) GetFloat(key string) (float64, error) {
	e, err := s.get(key, store.KindFloat)
	return e.Float, err
}

func (s *Store) SetFloat(key string, value float64) error {
	return s.set(key, store.FloatEntry(value))
}

func (s *Store) GetString(key string) (string, error) {
	e, err := s.get(key, store.KindString)
	return e.Str, err
}

func (s *Store) SetString(key string, value string) error {
	return s.set(key, store.StringEntry(value))
}

func (s *Store) GetStringSlice(key string) ([]string, error) {
	e, err := s.get(key, store.KindStringSlice)
	if err != nil {
		return nil, err
	}
	// The decode allocated the slice; nothing else aliases it.
	return e.Slice, nil
}

func (s *Store) SetStringSlice(key string, value []string) error {
	return s.set(key, store.StringSliceEntry(value))
}

// Remove deletes the key. Removing an absent key succeeds.
func (s *Store) Remove(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Clear drops every key in the database.
func (s *Store) Clear() error {
	return s.db.DropAll()
}

// Entries decodes and returns every stored entry.
func (s *Store) Entries() (map[string]store.Entry, error) {
	out := make(map[string]store.Entry)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := string(item.Key())

			var e store.Entry
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return fmt.Errorf("badgerstore: decoding entry %q: %w", key, err)
			}
			out[key] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Enumerator = (*Store)(nil)
)
