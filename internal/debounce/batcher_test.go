package debounce

import (
	"testing"
	"time"

	"github.com/openclaw/openclaw/internal/clock"
)

func TestBatcher_FirstDeliveryIsImmediate(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	var batches [][]int
	b := NewBatcher[int](fc, 50*time.Millisecond, 10, func(batch []int) {
		batches = append(batches, batch)
	})

	b.Add(1)
	fc.Advance(0)

	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("expected immediate first delivery, got %v", batches)
	}
}

func TestBatcher_NeverExceedsMaxBatchSize(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	var batches [][]int
	b := NewBatcher[int](fc, 10*time.Millisecond, 3, func(batch []int) {
		batches = append(batches, append([]int(nil), batch...))
	})

	for i := 0; i < 7; i++ {
		b.Add(i)
	}
	fc.Advance(0)
	fc.Advance(11 * time.Millisecond)
	fc.Advance(11 * time.Millisecond)
	fc.Advance(11 * time.Millisecond)

	wantCalls := 3 // ceil(7/3)
	if len(batches) != wantCalls {
		t.Fatalf("batch calls = %d, want %d (batches=%v)", len(batches), wantCalls, batches)
	}
	for _, batch := range batches {
		if len(batch) > 3 {
			t.Errorf("batch size %d exceeds max 3", len(batch))
		}
	}
}

func TestBatcher_SubsequentDeliveriesSpacedByMinDelay(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	var times []time.Time
	b := NewBatcher[int](fc, 20*time.Millisecond, 1, func([]int) {
		times = append(times, fc.Now())
	})

	b.Add(1)
	fc.Advance(0)
	b.Add(2)
	fc.Advance(5 * time.Millisecond)
	if len(times) != 1 {
		t.Fatalf("second item delivered too early: %v", times)
	}

	fc.Advance(20 * time.Millisecond)
	if len(times) != 2 {
		t.Fatalf("expected second delivery after min delay, got %d", len(times))
	}
	if gap := times[1].Sub(times[0]); gap < 20*time.Millisecond {
		t.Errorf("delivery gap %v below min delay", gap)
	}
}

func TestBatcher_QueueLengthAndClear(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	b := NewBatcher[int](fc, 50*time.Millisecond, 2, func([]int) {})

	b.Add(1)
	fc.Advance(0) // first item delivered immediately, queue drains
	b.Add(2)
	b.Add(3)

	if got := b.QueueLength(); got != 2 {
		t.Errorf("QueueLength = %d, want 2", got)
	}

	b.Clear()
	if got := b.QueueLength(); got != 0 {
		t.Errorf("QueueLength after Clear = %d, want 0", got)
	}

	fc.Advance(100 * time.Millisecond)
	if got := b.QueueLength(); got != 0 {
		t.Errorf("cleared batcher should not redeliver, QueueLength = %d", got)
	}
}
