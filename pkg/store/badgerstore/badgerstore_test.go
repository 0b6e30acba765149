package badgerstore

import (
	"errors"
	"reflect"
	"testing"

	"github.com/keywatch-dev/keywatch/pkg/keywatch"
	"github.com/keywatch-dev/keywatch/pkg/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatal("expected error for persistent store without a path")
	}
}

func TestRoundTripAllKinds(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetBool("b", true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if err := s.SetInt("i", -42); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := s.SetFloat("f", 2.5); err != nil {
		t.Fatalf("SetFloat: %v", err)
	}
	if err := s.SetString("s", "hello"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := s.SetStringSlice("l", []string{"a", "b"}); err != nil {
		t.Fatalf("SetStringSlice: %v", err)
	}

	if v, err := s.GetBool("b"); err != nil || v != true {
		t.Errorf("GetBool = %v, %v", v, err)
	}
	if v, err := s.GetInt("i"); err != nil || v != -42 {
		t.Errorf("GetInt = %v, %v", v, err)
	}
	if v, err := s.GetFloat("f"); err != nil || v != 2.5 {
		t.Errorf("GetFloat = %v, %v", v, err)
	}
	if v, err := s.GetString("s"); err != nil || v != "hello" {
		t.Errorf("GetString = %q, %v", v, err)
	}
	if v, err := s.GetStringSlice("l"); err != nil || !reflect.DeepEqual(v, []string{"a", "b"}) {
		t.Errorf("GetStringSlice = %v, %v", v, err)
	}
}

func TestGetAbsent(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetString("missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestWrongKind(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetInt("n", 7); err != nil {
		t.Fatalf("SetInt: %v", err)
	}

	_, err := s.GetString("n")
	if !errors.Is(err, store.ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", err)
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Errorf("wrong kind must not read as ErrNotFound")
	}
}

func TestOverwriteChangesKind(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetInt("k", 1); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := s.SetString("k", "one"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if v, err := s.GetString("k"); err != nil || v != "one" {
		t.Errorf("GetString after overwrite = %q, %v", v, err)
	}
	if _, err := s.GetInt("k"); !errors.Is(err, store.ErrWrongKind) {
		t.Errorf("old kind should now be ErrWrongKind, got %v", err)
	}
}

func TestKeysOrdered(t *testing.T) {
	s := newTestStore(t)
	s.SetString("zebra", "z")
	s.SetString("apple", "a")
	s.SetInt("mango", 1)

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	want := []string{"apple", "mango", "zebra"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys = %v, want %v", keys, want)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetString("k", "v"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if err := s.Remove("k"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.GetString("k"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}
	if err := s.Remove("k"); err != nil {
		t.Errorf("Remove of absent key: %v", err)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	s.SetString("a", "1")
	s.SetString("b", "2")

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys after Clear: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("Keys after Clear = %v, want empty", keys)
	}
	if keys == nil {
		t.Errorf("Keys must return empty, never nil")
	}
}

func TestEntries(t *testing.T) {
	s := newTestStore(t)
	s.SetBool("b", true)
	s.SetStringSlice("l", []string{"x", "y"})

	entries, err := s.Entries()
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Entries = %d entries, want 2", len(entries))
	}
	if e := entries["b"]; e.Kind != store.KindBool || !e.Bool {
		t.Errorf("entries[b] = %+v, want bool true", e)
	}
	if e := entries["l"]; e.Kind != store.KindStringSlice || !reflect.DeepEqual(e.Slice, []string{"x", "y"}) {
		t.Errorf("entries[l] = %+v, want [x y]", e)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	config := DefaultConfig()
	config.Path = dir
	config.SyncWrites = false
	config.GCInterval = 0

	s, err := Open(config)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SetString("greeting", "hello"); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := s.SetInt("count", 3); err != nil {
		t.Fatalf("SetInt: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(config)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	if v, err := s2.GetString("greeting"); err != nil || v != "hello" {
		t.Errorf("GetString after reopen = %q, %v", v, err)
	}
	if v, err := s2.GetInt("count"); err != nil || v != 3 {
		t.Errorf("GetInt after reopen = %v, %v", v, err)
	}
}

func TestSessionOverBadger(t *testing.T) {
	s := newTestStore(t)
	sess := keywatch.NewSession(s)
	t.Cleanup(sess.Close)

	var got []string
	sub := sess.String("greeting", "(none)").Subscribe(func(v string) {
		got = append(got, v)
	})
	defer sub.Cancel()

	sess.String("greeting", "").Set("hi")

	if want := []string{"(none)", "hi"}; !reflect.DeepEqual(got, want) {
		t.Errorf("observed %v, want %v", got, want)
	}
}
