package clock

import (
	"sync"
	"time"
)

// Fake is a manually-advanced Clock for deterministic tests. Now()
// starts at an arbitrary fixed instant and only moves when Advance is
// called; no real-time sleeping occurs.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

// NewFake returns a Fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Sleep(d time.Duration) {
	f.Advance(d)
}

func (f *Fake) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	f.mu.Lock()
	deadline := f.now.Add(d)
	f.timers = append(f.timers, &fakeTimer{deadline: deadline, fire: func(t time.Time) { ch <- t }, active: true})
	f.mu.Unlock()
	return ch
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{deadline: f.now.Add(d), callback: fn, active: true}
	f.timers = append(f.timers, t)
	return t
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{clock: f, period: d, next: f.now.Add(d), ch: make(chan time.Time, 1), active: true}
	f.tickers = append(f.tickers, t)
	return t
}

// Advance moves the fake clock forward by d, firing any timers and
// tickers whose deadline falls at or before the new time, in deadline
// order. Timers scheduled by a firing callback that are also due by
// the new time fire within the same Advance call, so chained stages
// (a debounce timer enqueueing into a batcher, say) complete without
// a second Advance.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.now = target

	for _, tk := range f.tickers {
		for tk.active && !tk.next.After(target) {
			select {
			case tk.ch <- target:
			default:
			}
			tk.next = tk.next.Add(tk.period)
		}
	}
	f.mu.Unlock()

	for {
		f.mu.Lock()
		var next *fakeTimer
		remaining := f.timers[:0]
		for _, t := range f.timers {
			if !t.active {
				continue
			}
			if next == nil && !t.deadline.After(target) {
				next = t
				continue
			}
			if next != nil && !t.deadline.After(target) && t.deadline.Before(next.deadline) {
				remaining = append(remaining, next)
				next = t
				continue
			}
			remaining = append(remaining, t)
		}
		f.timers = remaining
		f.mu.Unlock()

		if next == nil {
			return
		}
		if next.callback != nil {
			next.callback()
		}
		if next.fire != nil {
			next.fire(target)
		}
	}
}

type fakeTimer struct {
	deadline time.Time
	callback func()
	fire     func(time.Time)
	active   bool
}

func (t *fakeTimer) Stop() bool {
	was := t.active
	t.active = false
	return was
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	was := t.active
	t.active = true
	t.deadline = t.deadline.Add(d)
	return was
}

type fakeTicker struct {
	clock  *Fake
	period time.Duration
	next   time.Time
	ch     chan time.Time
	active bool
}

func (t *fakeTicker) Stop()               { t.active = false }
func (t *fakeTicker) C() <-chan time.Time { return t.ch }
