package keywatch

import (
	"reflect"
	"testing"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

func TestKeysReplaysCurrentSet(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	s.String("x", "").Set("1")

	var got [][]string
	s.Keys().Subscribe(func(keys []string) { got = append(got, keys) })

	if len(got) != 1 || !reflect.DeepEqual(got[0], []string{"x"}) {
		t.Fatalf("expected replay [[x]], got %v", got)
	}
}

func TestKeysFollowsEveryMutation(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	s.String("x", "").Set("1")

	var got [][]string
	s.Keys().Subscribe(func(keys []string) { got = append(got, keys) })

	s.String("y", "").Set("2")
	if last := got[len(got)-1]; !reflect.DeepEqual(last, []string{"x", "y"}) {
		t.Errorf("after adding y expected [x y], got %v", last)
	}

	s.String("x", "").Clear()
	if last := got[len(got)-1]; !reflect.DeepEqual(last, []string{"y"}) {
		t.Errorf("after clearing x expected [y], got %v", last)
	}
}

func TestKeysEmptyIsExplicit(t *testing.T) {
	s := NewSession(store.NewMemoryStore())

	var got []string
	s.Keys().Subscribe(func(keys []string) { got = keys })

	// An empty store reads as an empty set, never nil.
	if got == nil {
		t.Fatal("expected non-nil empty key set")
	}
	if len(got) != 0 {
		t.Errorf("expected empty key set, got %v", got)
	}

	if g := s.Keys().Get(); g == nil || len(g) != 0 {
		t.Errorf("Get should yield explicit empty set, got %v", g)
	}
}

func TestKeysSorted(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	s.String("zebra", "").Set("1")
	s.String("apple", "").Set("2")
	s.String("mango", "").Set("3")

	if got := s.Keys().Get(); !reflect.DeepEqual(got, []string{"apple", "mango", "zebra"}) {
		t.Errorf("expected sorted keys, got %v", got)
	}
}

func TestKeysValueEvenWhenOverwritten(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	s.String("x", "").Set("1")

	calls := 0
	s.Keys().Subscribe(func([]string) { calls++ })

	// Overwriting an existing key is still a mutation the listing observes,
	// even though the set of keys did not change.
	s.String("x", "").Set("2")
	if calls != 2 {
		t.Errorf("expected re-evaluation on overwrite, got %d calls", calls)
	}

	// Dedup makes the unchanged set disappear for subscribers that ask.
	deduped := 0
	s.Keys().Subscribe(func([]string) { deduped++ }, DistinctUntilChanged())
	s.String("x", "").Set("3")
	if deduped != 1 {
		t.Errorf("expected deduped listing to stay quiet, got %d calls", deduped)
	}
}

func TestKeysMutationPanics(t *testing.T) {
	s := NewSession(store.NewMemoryStore())

	assertPanics(t, "set", func() { s.Keys().Set([]string{"x"}) })
	assertPanics(t, "clear", func() { s.Keys().Clear() })
	assertPanics(t, "reset", func() { s.Keys().Reset() })
}

func TestKeysMutationPanicsBeforeIO(t *testing.T) {
	fs := newFailingStore()
	fs.failKeys = true
	s := NewSession(fs)

	// The precondition fires before any store access; the broken store
	// never gets the chance to matter.
	assertPanics(t, "set", func() { s.Keys().Set(nil) })
}

func TestSessionClearNotifiesEveryKey(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	s.String("a", "da").Set("1")
	s.String("b", "db").Set("2")

	var gotA, gotB []string
	s.String("a", "da").Subscribe(func(v string) { gotA = append(gotA, v) })
	s.String("b", "db").Subscribe(func(v string) { gotB = append(gotB, v) })

	var sets [][]string
	s.Keys().Subscribe(func(keys []string) { sets = append(sets, keys) })

	if !s.Clear() {
		t.Fatal("Clear failed")
	}

	// Every previously existing key got a change: both keyed subscribers
	// re-read and found their defaults.
	if len(gotA) != 2 || gotA[1] != "da" {
		t.Errorf("subscriber a got %v, want [1 da]", gotA)
	}
	if len(gotB) != 2 || gotB[1] != "db" {
		t.Errorf("subscriber b got %v, want [2 db]", gotB)
	}

	// The listing settled on empty.
	if last := sets[len(sets)-1]; len(last) != 0 {
		t.Errorf("expected empty final key set, got %v", last)
	}
}

func TestSessionRemovePublishes(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	s.String("k", "d").Set("x")

	var got []string
	s.String("k", "d").Subscribe(func(v string) { got = append(got, v) })

	if !s.Remove("k") {
		t.Fatal("Remove failed")
	}
	if len(got) != 2 || got[1] != "d" {
		t.Errorf("expected default after remove, got %v", got)
	}

	// Removing an absent key still succeeds.
	if !s.Remove("k") {
		t.Error("Remove of absent key should succeed")
	}
}
