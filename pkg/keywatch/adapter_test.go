package keywatch

import (
	"errors"
	"testing"
	"time"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

func TestTimeValueRoundTrip(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	def := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	v := s.Time("when", def)

	if !v.Get().Equal(def) {
		t.Errorf("expected default %v, got %v", def, v.Get())
	}

	stamp := time.Date(2024, 6, 15, 8, 30, 0, 123456789, time.UTC)
	if !v.Set(stamp) {
		t.Fatal("Set failed")
	}
	if got := v.Get(); !got.Equal(stamp) {
		t.Errorf("expected %v, got %v", stamp, got)
	}

	// The primitive representation is RFC 3339 text.
	raw, err := s.Store().GetString("when")
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if raw != stamp.Format(time.RFC3339Nano) {
		t.Errorf("stored %q, want RFC 3339", raw)
	}
}

func TestTimeValueCustomLayout(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	day := NewValue(s, "day", time.Time{}, TimeAdapter{Layout: "2006-01-02"})

	stamp := time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)
	day.Set(stamp)

	raw, _ := s.Store().GetString("day")
	if raw != "2024-06-15" {
		t.Errorf("stored %q, want 2024-06-15", raw)
	}
	// A date-only layout truncates the time of day on round trip.
	if got := day.Get(); got.Hour() != 0 {
		t.Errorf("expected truncated time, got %v", got)
	}
}

func TestTimeValueUnparseable(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	def := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Store().SetString("when", "not a time")

	v := s.Time("when", def)

	// A corrupt entry degrades to the default and surfaces on OnError.
	if got := v.Get(); !got.Equal(def) {
		t.Errorf("expected default for corrupt entry, got %v", got)
	}

	var errs []error
	v.Subscribe(func(time.Time) {}, OnError(func(err error) { errs = append(errs, err) }))
	if len(errs) != 1 {
		t.Errorf("expected parse error on subscribe, got %v", errs)
	}
}

type testPrefs struct {
	Name  string   `json:"name"`
	Limit int      `json:"limit"`
	Tags  []string `json:"tags"`
}

func TestJSONValueRoundTrip(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	def := testPrefs{Name: "anon", Limit: 10}
	v := JSON(s, "prefs", def)

	if got := v.Get(); got.Name != "anon" || got.Limit != 10 {
		t.Errorf("expected default, got %+v", got)
	}

	want := testPrefs{Name: "kim", Limit: 3, Tags: []string{"a", "b"}}
	if !v.Set(want) {
		t.Fatal("Set failed")
	}
	got := v.Get()
	if got.Name != "kim" || got.Limit != 3 || len(got.Tags) != 2 {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	// Dedup sees through the encoded representation.
	calls := 0
	v.Subscribe(func(testPrefs) { calls++ }, DistinctUntilChanged())
	v.Set(want)
	if calls != 1 {
		t.Errorf("expected identical struct rewrite to dedup, got %d calls", calls)
	}
}

func TestJSONValueCorruptEntry(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	s.Store().SetString("prefs", "{not json")

	v := JSON(s, "prefs", testPrefs{Name: "anon"})

	if got := v.Get(); got.Name != "anon" {
		t.Errorf("expected default for corrupt entry, got %+v", got)
	}
}

func TestWrongKindReadIsErrorNotAbsence(t *testing.T) {
	s := NewSession(store.NewMemoryStore())
	s.Store().SetString("n", "text")

	v := s.Int("n", 42)

	// Type confusion degrades to the default like absence does, but it
	// surfaces on the error channel where absence never would.
	if got := v.Get(); got != 42 {
		t.Errorf("expected default, got %d", got)
	}

	var errs []error
	v.Subscribe(func(int64) {}, OnError(func(err error) { errs = append(errs, err) }))
	if len(errs) != 1 || !errors.Is(errs[0], store.ErrWrongKind) {
		t.Errorf("expected ErrWrongKind, got %v", errs)
	}
}
