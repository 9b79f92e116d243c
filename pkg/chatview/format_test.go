package chatview

import (
	"testing"
	"time"
)

func TestFormatConversationTime(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, loc)

	cases := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"today", now.Add(-2 * time.Hour), "12:30 PM"},
		{"today morning", time.Date(2026, 3, 10, 0, 5, 0, 0, loc), "12:05 AM"},
		{"exactly a day earlier", now.Add(-24 * time.Hour), "Yesterday"},
		{"late yesterday", time.Date(2026, 3, 9, 23, 59, 0, 0, loc), "Yesterday"},
		{"three days earlier", now.Add(-72 * time.Hour), "Mar 7"},
		{"previous year", time.Date(2025, 12, 31, 9, 0, 0, 0, loc), "Dec 31"},
		// 01:00 UTC on the 10th is still the 9th in BRT
		{"other zone", time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC), "Yesterday"},
	}
	for _, tc := range cases {
		if got := FormatConversationTime(tc.ts, now); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestFormatMessageTime(t *testing.T) {
	ts := time.Date(2026, 3, 10, 17, 45, 0, 0, time.UTC)
	if got := FormatMessageTime(ts, time.UTC); got != "05:45 PM" {
		t.Fatalf("unexpected message time: %q", got)
	}
}
