package accumulator

import "github.com/openclaw/openclaw/internal/signals"

// ShouldFlush is a pure function of the settled set, the cached last
// flush timestamp, and the configured thresholds. Count takes
// priority over time; with no prior flush, the oldest settled
// insight's age stands in for "time since last flush".
func ShouldFlush(settled []signals.QueuedInsight, lastFlushAt int64, nowMillis int64, minInsightsToFlush int, maxFlushIntervalMillis int64) (bool, signals.FlushTrigger) {
	if len(settled) >= minInsightsToFlush {
		return true, signals.TriggerCount
	}
	if len(settled) == 0 {
		return false, ""
	}

	if lastFlushAt > 0 {
		if nowMillis-lastFlushAt >= maxFlushIntervalMillis {
			return true, signals.TriggerTime
		}
		return false, ""
	}

	oldest := settled[0].QueuedAt
	for _, ins := range settled[1:] {
		if ins.QueuedAt < oldest {
			oldest = ins.QueuedAt
		}
	}
	if nowMillis-oldest >= maxFlushIntervalMillis {
		return true, signals.TriggerTime
	}
	return false, ""
}
