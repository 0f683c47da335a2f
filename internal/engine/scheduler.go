package engine

import "time"

// Scheduler defers the pacing callbacks between answer lock and reveal.
// The controller re-checks its run generation when a callback fires, so
// a stale timer from an abandoned run cannot mutate a new one; the
// returned cancel stops a pending callback best-effort.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (cancel func())
}

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}
