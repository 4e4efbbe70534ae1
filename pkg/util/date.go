package util

import (
	"strings"
	"time"
)

const (
	dayLayout   = "20060102"
	stampLayout = "20060102_150405"
)

// DayKey formats a time as the calendar-day component of a cache key.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

// SnapshotStamp formats a time as the day_time suffix of a persisted
// artifact name, so repeated runs never overwrite distinct snapshots.
func SnapshotStamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

// ParseSnapshotStamp parses a day_time artifact suffix back to a UTC time.
func ParseSnapshotStamp(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(stampLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DayOf extracts the day part of a snapshot stamp ("YYYYMMDD_HHMMSS").
func DayOf(stamp string) string {
	if i := strings.IndexByte(stamp, '_'); i > 0 {
		return stamp[:i]
	}
	return stamp
}
