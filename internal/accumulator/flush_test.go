package accumulator

import (
	"testing"

	"github.com/openclaw/openclaw/internal/signals"
)

func TestShouldFlush_CountHasPriority(t *testing.T) {
	settled := []signals.QueuedInsight{
		mustInsight("a", 0), mustInsight("b", 0), mustInsight("c", 0),
	}
	ok, trigger := ShouldFlush(settled, 0, 1000, 3, 10_000)
	if !ok || trigger != signals.TriggerCount {
		t.Errorf("ShouldFlush = (%v, %v), want (true, count)", ok, trigger)
	}
}

func TestShouldFlush_TimeTriggerWithPriorFlush(t *testing.T) {
	settled := []signals.QueuedInsight{mustInsight("a", 0)}
	ok, trigger := ShouldFlush(settled, 1000, 1000+10_000, 3, 10_000)
	if !ok || trigger != signals.TriggerTime {
		t.Errorf("ShouldFlush = (%v, %v), want (true, time)", ok, trigger)
	}
}

func TestShouldFlush_TimeTriggerWithNoPriorFlushUsesOldestQueuedAt(t *testing.T) {
	settled := []signals.QueuedInsight{mustInsight("a", 0), mustInsight("b", 5000)}
	ok, trigger := ShouldFlush(settled, 0, 10_000, 3, 10_000)
	if !ok || trigger != signals.TriggerTime {
		t.Errorf("ShouldFlush = (%v, %v), want (true, time)", ok, trigger)
	}
}

func TestShouldFlush_NoFlushWhenBelowThresholds(t *testing.T) {
	settled := []signals.QueuedInsight{mustInsight("a", 9000)}
	ok, _ := ShouldFlush(settled, 1000, 9500, 3, 10_000)
	if ok {
		t.Error("expected no flush")
	}
}

func TestShouldFlush_EmptySettledNeverFlushes(t *testing.T) {
	ok, _ := ShouldFlush(nil, 0, 1_000_000, 1, 1)
	if ok {
		t.Error("expected no flush for empty settled set")
	}
}
