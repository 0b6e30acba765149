// Package watchtest provides testing helpers for code built on keywatch
// sessions.
//
// The watchtest package reduces boilerplate when testing observers by
// providing throwaway sessions, recording callbacks and a manual clock.
//
// # Quick Start
//
//	func TestDarkModeObserver(t *testing.T) {
//	    sess := watchtest.NewSession(t)
//	    rec := watchtest.NewRecorder[bool]()
//
//	    dark := sess.Bool("ui.dark", false)
//	    sub := dark.Subscribe(rec.Record)
//	    defer sub.Cancel()
//
//	    dark.Set(true)
//	    watchtest.ExpectValues(t, rec, false, true)
//	}
//
// # Recording Observers
//
// Recorder captures every delivered value in order. Its Record method
// has the shape of a subscribe callback, so it plugs straight into
// Subscribe:
//
//	rec := watchtest.NewRecorder[string]()
//	sess.String("lang", "en").Subscribe(rec.Record)
//
// Inspect what arrived with Values, Last and Count, or wipe the slate
// with Reset between phases of a test.
//
// # Deterministic Time
//
// Clock is a manual time source for rate guard tests. Inject it with
// keywatch.WithClock and move time by hand:
//
//	clock := watchtest.NewClock(time.Unix(0, 0))
//	sess := watchtest.NewSession(t,
//	    keywatch.WithRateGuard(true),
//	    keywatch.WithClock(clock.Now),
//	)
//	clock.Advance(time.Second)
package watchtest
