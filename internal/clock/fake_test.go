package clock

import (
	"testing"
	"time"
)

func TestFake_AfterFuncFiresOnAdvance(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	fired := false
	f.AfterFunc(100*time.Millisecond, func() { fired = true })

	f.Advance(50 * time.Millisecond)
	if fired {
		t.Fatal("timer fired early")
	}

	f.Advance(60 * time.Millisecond)
	if !fired {
		t.Fatal("timer did not fire after deadline")
	}
}

func TestFake_TimerStopPreventsCallback(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	fired := false
	timer := f.AfterFunc(100*time.Millisecond, func() { fired = true })
	timer.Stop()

	f.Advance(200 * time.Millisecond)
	if fired {
		t.Fatal("stopped timer should not fire")
	}
}

func TestFake_TickerFiresRepeatedly(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ticker := f.NewTicker(10 * time.Millisecond)

	f.Advance(35 * time.Millisecond)

	count := 0
drain:
	for {
		select {
		case <-ticker.C():
			count++
		default:
			break drain
		}
	}
	if count == 0 {
		t.Fatal("ticker never fired")
	}
}

func TestFake_NowAdvances(t *testing.T) {
	start := time.Unix(1000, 0)
	f := NewFake(start)
	f.Advance(5 * time.Second)
	if !f.Now().Equal(start.Add(5 * time.Second)) {
		t.Errorf("Now() = %v, want %v", f.Now(), start.Add(5*time.Second))
	}
}
