package keywatch

import (
	"fmt"
	"testing"

	"github.com/keywatch-dev/keywatch/pkg/store"
)

// Benchmark tests for the notification core.
// Target performance:
// - Bus.Publish (no subscribers): < 50 ns
// - Bus.Publish (10 subscribers): < 1 µs
// - Value.Get (memory store): < 300 ns
// - Value.Set (1 subscriber): < 2 µs
// - RateGuard.Record: < 200 ns

func BenchmarkBusPublishNoSubscribers(b *testing.B) {
	bus := NewBus()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		bus.Publish("volume")
	}
}

func BenchmarkBusPublish1Subscriber(b *testing.B) {
	bus := NewBus()
	bus.Subscribe(func(string) {})
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		bus.Publish("volume")
	}
}

func BenchmarkBusPublish10Subscribers(b *testing.B) {
	bus := NewBus()
	for i := 0; i < 10; i++ {
		bus.Subscribe(func(string) {})
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		bus.Publish("volume")
	}
}

func BenchmarkBusPublish100Subscribers(b *testing.B) {
	bus := NewBus()
	for i := 0; i < 100; i++ {
		bus.Subscribe(func(string) {})
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		bus.Publish("volume")
	}
}

func BenchmarkBusSubscribeCancel(b *testing.B) {
	bus := NewBus()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		bus.Subscribe(func(string) {}).Cancel()
	}
}

func BenchmarkValueGet(b *testing.B) {
	sess := NewSession(store.NewMemoryStore())
	defer sess.Close()

	volume := sess.Int("volume", 50)
	volume.Set(80)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = volume.Get()
	}
}

func BenchmarkValueGetDefault(b *testing.B) {
	sess := NewSession(store.NewMemoryStore())
	defer sess.Close()

	volume := sess.Int("absent", 50)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = volume.Get()
	}
}

func BenchmarkValueSetNoSubscribers(b *testing.B) {
	sess := NewSession(store.NewMemoryStore())
	defer sess.Close()

	volume := sess.Int("volume", 50)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		volume.Set(int64(i))
	}
}

func BenchmarkValueSet1Subscriber(b *testing.B) {
	sess := NewSession(store.NewMemoryStore())
	defer sess.Close()

	volume := sess.Int("volume", 50)
	volume.Subscribe(func(int64) {})
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		volume.Set(int64(i))
	}
}

func BenchmarkValueSet10Subscribers(b *testing.B) {
	sess := NewSession(store.NewMemoryStore())
	defer sess.Close()

	volume := sess.Int("volume", 50)
	for i := 0; i < 10; i++ {
		volume.Subscribe(func(int64) {})
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		volume.Set(int64(i))
	}
}

func BenchmarkValueSetDistinctSuppressed(b *testing.B) {
	sess := NewSession(store.NewMemoryStore())
	defer sess.Close()

	volume := sess.Int("volume", 50)
	volume.Subscribe(func(int64) {}, DistinctUntilChanged())
	volume.Set(80)
	b.ResetTimer()

	// Every Set repeats the stored value, so the delivery is suppressed.
	for i := 0; i < b.N; i++ {
		volume.Set(80)
	}
}

func BenchmarkCombinedEmit3Sources(b *testing.B) {
	sess := NewSession(store.NewMemoryStore())
	defer sess.Close()

	volume := sess.Int("volume", 50)
	muted := sess.Bool("muted", false)
	name := sess.String("name", "anon")

	combo := NewCombined([]Source{volume, muted, name})
	defer combo.Cancel()
	combo.Subscribe(func([]any) {})
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		volume.Set(int64(i))
	}
}

func BenchmarkKeysView100Keys(b *testing.B) {
	sess := NewSession(store.NewMemoryStore())
	defer sess.Close()

	st := sess.Store()
	for i := 0; i < 100; i++ {
		if err := st.SetInt(fmt.Sprintf("key-%03d", i), int64(i)); err != nil {
			b.Fatalf("SetInt: %v", err)
		}
	}
	sess.Keys().Subscribe(func([]string) {})
	first := sess.Int("key-000", 0)
	b.ResetTimer()

	// Each Set re-lists and re-sorts all 100 keys for the subscriber.
	for i := 0; i < b.N; i++ {
		first.Set(int64(i))
	}
}

func BenchmarkRateGuardRecord(b *testing.B) {
	sess := NewSession(store.NewMemoryStore(), WithRateGuard(true))
	defer sess.Close()

	guard := sess.RateGuard()
	guard.OnDiagnostic(func(Diagnostic) {})
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		guard.Record("volume")
	}
}
