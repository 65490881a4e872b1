package debounce

import (
	"sync"
	"time"

	"github.com/openclaw/openclaw/internal/clock"
)

// Batcher accumulates items and delivers them in FIFO slices no larger
// than maxBatchSize, spaced at least minDelay apart. The first
// delivery is immediate because lastDeliveryTime starts at zero.
type Batcher[T any] struct {
	mu               sync.Mutex
	clock            clock.Clock
	minDelay         time.Duration
	maxBatchSize     int
	queue            []T
	lastDeliveryTime time.Time
	scheduled        bool
	timer            clock.Timer
	onBatch          func([]T)
}

// NewBatcher creates a Batcher. onBatch is invoked with each delivered
// slice; it must not be nil.
func NewBatcher[T any](c clock.Clock, minDelay time.Duration, maxBatchSize int, onBatch func([]T)) *Batcher[T] {
	return &Batcher[T]{
		clock:        c,
		minDelay:     minDelay,
		maxBatchSize: maxBatchSize,
		onBatch:      onBatch,
	}
}

// Add appends item to the queue and ensures a delivery is scheduled.
func (b *Batcher[T]) Add(item T) {
	b.mu.Lock()
	b.queue = append(b.queue, item)
	b.ensureScheduled()
	b.mu.Unlock()
}

// ensureScheduled must be called with b.mu held. It schedules the next
// delivery at the earliest time satisfying now - lastDeliveryTime >=
// minDelay, unless a delivery is already scheduled or the queue is
// empty.
func (b *Batcher[T]) ensureScheduled() {
	if b.scheduled || len(b.queue) == 0 {
		return
	}

	now := b.clock.Now()
	var wait time.Duration
	if !b.lastDeliveryTime.IsZero() {
		elapsed := now.Sub(b.lastDeliveryTime)
		if elapsed < b.minDelay {
			wait = b.minDelay - elapsed
		}
	}

	b.scheduled = true
	b.timer = b.clock.AfterFunc(wait, b.deliver)
}

func (b *Batcher[T]) deliver() {
	b.mu.Lock()
	b.scheduled = false

	n := len(b.queue)
	if n > b.maxBatchSize {
		n = b.maxBatchSize
	}
	batch := append([]T(nil), b.queue[:n]...)
	b.queue = append([]T(nil), b.queue[n:]...)
	b.lastDeliveryTime = b.clock.Now()

	more := len(b.queue) > 0
	if more {
		b.ensureScheduled()
	}
	b.mu.Unlock()

	if len(batch) > 0 {
		b.onBatch(batch)
	}
}

// QueueLength returns the number of items not yet delivered.
func (b *Batcher[T]) QueueLength() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Clear empties the queue and cancels any scheduled delivery.
func (b *Batcher[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = nil
	if b.timer != nil {
		b.timer.Stop()
	}
	b.scheduled = false
}
