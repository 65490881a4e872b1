// Package clock abstracts time operations so the debouncer, batcher,
// digest scheduler, and quiet-hours predicate can be driven
// deterministically in tests.
package clock

import "time"

// Clock abstracts time and timer construction.
type Clock interface {
	Now() time.Time
	Sleep(time.Duration)
	After(time.Duration) <-chan time.Time
	AfterFunc(time.Duration, func()) Timer
	NewTicker(time.Duration) Ticker
}

// Timer is the subset of *time.Timer the core packages need.
type Timer interface {
	Stop() bool
	Reset(time.Duration) bool
}

// Ticker is the subset of *time.Ticker the core packages need.
type Ticker interface {
	Stop()
	C() <-chan time.Time
}

// Real returns the system clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time                       { return time.Now() }
func (realClock) Sleep(d time.Duration)                 { time.Sleep(d) }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{time.AfterFunc(d, f)}
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTimer struct{ t *time.Timer }

func (r realTimer) Stop() bool                  { return r.t.Stop() }
func (r realTimer) Reset(d time.Duration) bool   { return r.t.Reset(d) }

type realTicker struct{ t *time.Ticker }

func (r realTicker) Stop()                   { r.t.Stop() }
func (r realTicker) C() <-chan time.Time     { return r.t.C }
