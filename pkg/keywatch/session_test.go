package keywatch

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

func TestSessionTypedConstructors(t *testing.T) {
	s := NewSession(store.NewMemoryStore())

	b := s.Bool("b", false)
	b.Set(true)
	if !b.Get() {
		t.Error("bool round trip failed")
	}

	n := s.Int("n", 0)
	n.Set(-5)
	if n.Get() != -5 {
		t.Error("int round trip failed")
	}

	f := s.Float("f", 0)
	f.Set(2.5)
	if f.Get() != 2.5 {
		t.Error("float round trip failed")
	}

	str := s.String("s", "")
	str.Set("x")
	if str.Get() != "x" {
		t.Error("string round trip failed")
	}

	l := s.StringSlice("l", nil)
	l.Set([]string{"a"})
	if got := l.Get(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("slice round trip failed: %v", got)
	}

	w := s.Time("w", time.Time{})
	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	w.Set(stamp)
	if !w.Get().Equal(stamp) {
		t.Error("time round trip failed")
	}
}

func TestSessionStringSliceDefaultCloned(t *testing.T) {
	s := NewSession(store.NewMemoryStore())

	def := []string{"a", "b"}
	v := s.StringSlice("l", def)

	// Mutating the caller's slice after construction must not change the
	// default the handle substitutes.
	def[0] = "mutated"
	if got := v.Get(); got[0] != "a" {
		t.Errorf("default aliased caller slice: %v", got)
	}
}

func TestSessionNilStorePanics(t *testing.T) {
	assertPanics(t, "nil store", func() { NewSession(nil) })
}

func TestSessionRawBusFeed(t *testing.T) {
	s := NewSession(store.NewMemoryStore())

	var keys []string
	s.Bus().Subscribe(func(key string) { keys = append(keys, key) })

	s.String("a", "").Set("1")
	s.Remove("a")
	s.String("b", "").Set("2")
	s.Clear()

	want := []string{"a", "a", "b", "b"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("raw feed got %v, want %v", keys, want)
	}
}

func TestSessionClearFailure(t *testing.T) {
	fs := newFailingStore()
	s := NewSession(fs)
	s.String("a", "").Set("1")

	calls := 0
	s.Bus().Subscribe(func(string) { calls++ })

	fs.failClear = true
	if s.Clear() {
		t.Error("Clear should report failure")
	}
	if calls != 0 {
		t.Errorf("failed clear should publish nothing, got %d", calls)
	}
}

func TestSessionConcurrentUse(t *testing.T) {
	s := NewSession(store.NewMemoryStore())

	var wg sync.WaitGroup
	const numGoroutines = 16

	wg.Add(numGoroutines * 3)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			v := s.String(fmt.Sprintf("key-%d", id%4), "")
			for j := 0; j < 50; j++ {
				v.Set(fmt.Sprintf("v%d", j))
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			v := s.String(fmt.Sprintf("key-%d", id%4), "")
			for j := 0; j < 50; j++ {
				v.Get()
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			v := s.String(fmt.Sprintf("key-%d", id%4), "")
			for j := 0; j < 20; j++ {
				sub := v.Subscribe(func(string) {})
				sub.Cancel()
			}
		}(i)
	}
	wg.Wait()

	// Last write wins: whatever landed, the store and every reader agree.
	if got := s.String("key-0", "").Get(); got == "" {
		t.Error("expected some write to key-0 to survive")
	}
	if got := s.Bus().Stats().Subscribers; got != 0 {
		t.Errorf("expected 0 subscribers after all cancels, got %d", got)
	}
}

func TestSessionCloseCompletesEverything(t *testing.T) {
	s := NewSession(store.NewMemoryStore())

	var done []string
	s.String("a", "").Subscribe(func(string) {}, OnDone(func() { done = append(done, "a") }))
	s.Keys().Subscribe(func([]string) {}, OnDone(func() { done = append(done, "keys") }))

	s.Close()
	s.Close() // idempotent

	if len(done) != 2 {
		t.Errorf("expected every subscription to complete once, got %v", done)
	}

	// The store survives the session.
	if !s.String("a", "d").Set("x") {
		t.Error("the store should remain writable after Close")
	}
	if got := s.String("a", "d").Get(); got != "x" {
		t.Errorf("expected readable store after Close, got %q", got)
	}
}
