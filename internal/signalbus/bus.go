// Package signalbus implements the typed pub/sub bus signals flow
// through: sequential, per-emission dispatch to the snapshot of
// handlers registered for a signal's type at the moment the emission
// begins. Handlers subscribed during an emission never run for that
// emission.
package signalbus

import (
	"sync"

	"github.com/openclaw/openclaw/internal/signals"
)

// Handler consumes one signal and reports success or failure. Failures
// never propagate to the emitter; they are reported to an optional
// error hook instead.
type Handler func(signals.Signal) error

// ErrorFunc receives every handler failure during dispatch, along with
// the signal type and the handler's index within the dispatch
// snapshot.
type ErrorFunc func(t signals.Type, index int, err error)

// Unsubscribe removes exactly the registration it was returned for.
// Calling it more than once is a no-op.
type Unsubscribe func()

type registration struct {
	id      uint64
	handler Handler
}

// Bus is a typed pub/sub dispatcher. The zero value is not usable;
// construct one with New.
type Bus struct {
	mu      sync.Mutex
	subs    map[signals.Type][]registration
	nextID  uint64
	onError ErrorFunc
}

// New creates a Bus ready for use.
func New() *Bus {
	return &Bus{subs: make(map[signals.Type][]registration)}
}

// Subscribe registers handler for the given signal type and returns a
// function that removes exactly this registration. Subscribing the
// same handler value twice creates two independent registrations; both
// are invoked on emission until each is separately unsubscribed.
func (b *Bus) Subscribe(t signals.Type, handler Handler) Unsubscribe {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[t] = append(b.subs[t], registration{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[t]
			for i, r := range list {
				if r.id == id {
					b.subs[t] = append(list[:i:i], list[i+1:]...)
					return
				}
			}
		})
	}
}

// On is a synonym for Subscribe.
func (b *Bus) On(t signals.Type, handler Handler) Unsubscribe {
	return b.Subscribe(t, handler)
}

// OnError installs the error hook invoked for every handler failure.
// A nil fn disables the hook.
func (b *Bus) OnError(fn ErrorFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Emit dispatches s sequentially to the snapshot of handlers
// registered for s.Type at the moment Emit is called. It returns once
// every handler in the snapshot has run. A handler's error is reported
// to the error hook and does not stop the remaining handlers.
func (b *Bus) Emit(s signals.Signal) {
	b.mu.Lock()
	snapshot := make([]registration, len(b.subs[s.Type]))
	copy(snapshot, b.subs[s.Type])
	onError := b.onError
	b.mu.Unlock()

	for i, r := range snapshot {
		if err := r.handler(s); err != nil && onError != nil {
			onError(s.Type, i, err)
		}
	}
}

// Clear removes every subscription. In-flight Emit calls already
// holding a snapshot are unaffected.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[signals.Type][]registration)
}

// SubscriberCount returns the number of active registrations for t.
func (b *Bus) SubscriberCount(t signals.Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[t])
}
