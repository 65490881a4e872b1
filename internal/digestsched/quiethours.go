// Package digestsched implements the quiet-hours predicate and the
// periodic check driver the Insight Digest Responder (C7) runs on.
package digestsched

import (
	"fmt"
	"log/slog"
	"time"
)

// MinuteOfDay returns the minute of day (0-1439) that t falls on when
// formatted in the named IANA zone. An unrecognized zone name falls
// back to the system local zone without raising an error.
func MinuteOfDay(t time.Time, zoneName string) int {
	loc, err := time.LoadLocation(zoneName)
	if err != nil {
		loc = time.Local
	}
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}

// ParseClock parses an "HH:MM" string into its minute-of-day value.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("digestsched: invalid HH:MM %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("digestsched: HH:MM out of range: %q", s)
	}
	return h*60 + m, nil
}

// IsInQuiet reports whether minute m falls within the window
// [start, end). start == end disables the window (never quiet).
// start > end is a wrap-around window spanning midnight.
func IsInQuiet(m, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return m >= start && m < end
	}
	return m >= start || m < end
}

// MinutesToEndOfQuiet returns the number of minutes from m to the next
// occurrence of end, modulo 24 hours.
func MinutesToEndOfQuiet(m, end int) int {
	const day = 24 * 60
	diff := (end - m) % day
	if diff < 0 {
		diff += day
	}
	return diff
}

// MsUntilQuietEnds returns 0 if now (in zone) is not within the
// configured quiet window; otherwise the milliseconds remaining until
// the window ends. An empty start/end disables the window.
func MsUntilQuietEnds(now time.Time, zoneName, startStr, endStr string) (int64, error) {
	if startStr == "" || endStr == "" {
		return 0, nil
	}
	start, err := ParseClock(startStr)
	if err != nil {
		return 0, err
	}
	end, err := ParseClock(endStr)
	if err != nil {
		return 0, err
	}

	m := MinuteOfDay(now, zoneName)
	if !IsInQuiet(m, start, end) {
		return 0, nil
	}
	return int64(MinutesToEndOfQuiet(m, end)) * 60_000, nil
}

// InQuietNow is a convenience wrapper reporting whether now falls
// within the configured quiet window. A parse error is logged and
// treated as "not quiet" so a misconfigured timezone/window never
// silently blocks all flushes.
func InQuietNow(now time.Time, zoneName, startStr, endStr string, logger *slog.Logger) bool {
	ms, err := MsUntilQuietEnds(now, zoneName, startStr, endStr)
	if err != nil {
		if logger != nil {
			logger.Warn("digestsched: quiet hours misconfigured, treating as not quiet", "error", err)
		}
		return false
	}
	return ms > 0
}
