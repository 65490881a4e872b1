package digestsched

import (
	"errors"
	"testing"
	"time"

	"github.com/openclaw/openclaw/internal/clock"
)

func TestScheduleCheck_FiresOnEachTick(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	calls := make(chan struct{}, 10)

	dispose := ScheduleCheck(fc, time.Second, func() error {
		calls <- struct{}{}
		return nil
	}, nil)
	defer dispose()

	fc.Advance(time.Second)
	waitForCall(t, calls)

	fc.Advance(time.Second)
	waitForCall(t, calls)
}

func TestScheduleCheck_ErrorIsSwallowedAndScheduleContinues(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	calls := make(chan error, 10)
	first := true

	dispose := ScheduleCheck(fc, time.Second, func() error {
		if first {
			first = false
			calls <- errors.New("boom")
			return errors.New("boom")
		}
		calls <- nil
		return nil
	}, nil)
	defer dispose()

	fc.Advance(time.Second)
	if err := <-calls; err == nil {
		t.Fatal("expected first call to report the injected error")
	}

	fc.Advance(time.Second)
	if err := <-calls; err != nil {
		t.Fatalf("expected schedule to continue after error, got %v", err)
	}
}

func TestScheduleCheck_DisposeIsIdempotentAndStopsCallbacks(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0))
	calls := make(chan struct{}, 10)

	dispose := ScheduleCheck(fc, time.Second, func() error {
		calls <- struct{}{}
		return nil
	}, nil)

	fc.Advance(time.Second)
	waitForCall(t, calls)

	dispose()
	dispose() // must not panic

	fc.Advance(10 * time.Second)

	select {
	case <-calls:
		t.Fatal("callback fired after dispose")
	case <-time.After(50 * time.Millisecond):
	}
}

func waitForCall(t *testing.T, calls chan struct{}) {
	t.Helper()
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for scheduled callback")
	}
}
