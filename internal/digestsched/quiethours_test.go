package digestsched

import (
	"testing"
	"time"
)

func TestIsInQuiet_WrapAroundWindow(t *testing.T) {
	start, end := 22*60, 8*60 // 22:00-08:00
	tests := []struct {
		hhmm string
		want bool
	}{
		{"22:00", true},
		{"23:59", true},
		{"00:00", true},
		{"05:00", true},
		{"08:00", false},
		{"12:00", false},
		{"21:59", false},
	}
	for _, tt := range tests {
		m, err := ParseClock(tt.hhmm)
		if err != nil {
			t.Fatal(err)
		}
		if got := IsInQuiet(m, start, end); got != tt.want {
			t.Errorf("IsInQuiet(%s) = %v, want %v", tt.hhmm, got, tt.want)
		}
	}
}

func TestIsInQuiet_NonWrapWindow(t *testing.T) {
	start, end := 9*60, 17*60 // 09:00-17:00
	tests := []struct {
		hhmm string
		want bool
	}{
		{"09:00", true},
		{"12:00", true},
		{"08:59", false},
		{"17:00", false},
		{"18:00", false},
	}
	for _, tt := range tests {
		m, err := ParseClock(tt.hhmm)
		if err != nil {
			t.Fatal(err)
		}
		if got := IsInQuiet(m, start, end); got != tt.want {
			t.Errorf("IsInQuiet(%s) = %v, want %v", tt.hhmm, got, tt.want)
		}
	}
}

func TestIsInQuiet_EqualStartEndDisablesWindow(t *testing.T) {
	m, _ := ParseClock("10:00")
	if IsInQuiet(m, 600, 600) {
		t.Error("start == end should never be quiet")
	}
}

func TestMsUntilQuietEnds_ZeroOutsideWindow(t *testing.T) {
	// 2026-07-31 is a Friday; pick a UTC time at 12:00 outside a 22:00-08:00 window.
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	ms, err := MsUntilQuietEnds(now, "UTC", "22:00", "08:00")
	if err != nil {
		t.Fatal(err)
	}
	if ms != 0 {
		t.Errorf("ms = %d, want 0 outside window", ms)
	}
}

func TestMsUntilQuietEnds_InsideWindow(t *testing.T) {
	now := time.Date(2026, 7, 31, 23, 0, 0, 0, time.UTC)
	ms, err := MsUntilQuietEnds(now, "UTC", "22:00", "08:00")
	if err != nil {
		t.Fatal(err)
	}
	wantMinutes := 9 * 60 // 23:00 -> 08:00 next day
	if ms != int64(wantMinutes)*60_000 {
		t.Errorf("ms = %d, want %d", ms, int64(wantMinutes)*60_000)
	}
}

func TestMinuteOfDay_UnrecognizedZoneFallsBackToLocal(t *testing.T) {
	now := time.Date(2026, 7, 31, 10, 30, 0, 0, time.UTC)
	got := MinuteOfDay(now, "Not/A/Real/Zone")
	local := now.In(time.Local)
	want := local.Hour()*60 + local.Minute()
	if got != want {
		t.Errorf("MinuteOfDay with bad zone = %d, want fallback %d", got, want)
	}
}

func TestMsUntilQuietEnds_EmptyWindowDisabled(t *testing.T) {
	now := time.Date(2026, 7, 31, 23, 0, 0, 0, time.UTC)
	ms, err := MsUntilQuietEnds(now, "UTC", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if ms != 0 {
		t.Errorf("ms = %d, want 0 for disabled window", ms)
	}
}
