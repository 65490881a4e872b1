// Package debounce implements per-key debouncing and throttled,
// size-bounded batching, the two primitives the Insight Extractor (C4)
// composes into its pipeline.
package debounce

import (
	"sync"
	"time"

	"github.com/openclaw/openclaw/internal/clock"
)

// Debouncer coalesces rapid-fire scheduling on the same key into a
// single callback invocation carrying the latest value, fired delayMs
// after the last Schedule call for that key.
type Debouncer[K comparable, V any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	delay   time.Duration
	pending map[K]clock.Timer
}

// New creates a Debouncer that fires delayMs after the last Schedule
// call for a given key.
func New[K comparable, V any](c clock.Clock, delay time.Duration) *Debouncer[K, V] {
	return &Debouncer[K, V]{
		clock:   c,
		delay:   delay,
		pending: make(map[K]clock.Timer),
	}
}

// Schedule (re)starts the timer for key. The latest value and callback
// supplied win; when the timer fires, key is removed from the pending
// table and callback(value) runs.
func (d *Debouncer[K, V]) Schedule(key K, value V, callback func(V)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.pending[key]; ok {
		t.Stop()
	}

	d.pending[key] = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.pending, key)
		d.mu.Unlock()
		callback(value)
	})
}

// Cancel removes key from the pending table, preventing its callback
// from firing. Idempotent.
func (d *Debouncer[K, V]) Cancel(key K) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.pending[key]; ok {
		t.Stop()
		delete(d.pending, key)
	}
}

// Clear cancels every pending key.
func (d *Debouncer[K, V]) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, t := range d.pending {
		t.Stop()
		delete(d.pending, k)
	}
}

// PendingCount returns the number of distinct keys with active timers.
func (d *Debouncer[K, V]) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
