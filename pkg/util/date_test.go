package util

import (
	"testing"
	"time"
)

func TestSnapshotStampRoundTrip(t *testing.T) {
	at := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	stamp := SnapshotStamp(at)
	if stamp != "20241010_101010" {
		t.Fatalf("unexpected stamp %q", stamp)
	}
	got, ok := ParseSnapshotStamp(stamp)
	if !ok {
		t.Fatalf("expected ok")
	}
	if !got.Equal(at) {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestDayOf(t *testing.T) {
	if d := DayOf("20241010_101010"); d != "20241010" {
		t.Fatalf("unexpected day %q", d)
	}
	if d := DayOf("20241010"); d != "20241010" {
		t.Fatalf("unexpected day %q", d)
	}
}

func TestDayKeyUTC(t *testing.T) {
	loc := time.FixedZone("UTC+13", 13*3600)
	at := time.Date(2024, 10, 10, 2, 0, 0, 0, loc) // still Oct 9 in UTC
	if d := DayKey(at); d != "20241009" {
		t.Fatalf("unexpected day key %q", d)
	}
}
