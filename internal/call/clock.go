package call

import "time"

// timer is the cancellable handle returned by clock.AfterFunc.
type timer interface {
	Stop() bool
}

// clock seams out time so the state machine's scoped timers (error
// auto-return, per-second duration tick) are testable without sleeping.
type clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}
