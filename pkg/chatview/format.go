package chatview

import "time"

const (
	clockLayout = "03:04 PM"
	dayLayout   = "Jan 2"
	yesterday   = "Yesterday"
)

// FormatConversationTime renders a list-row timestamp relative to now:
// a time of day for today, "Yesterday" for the previous calendar day,
// otherwise a short month and day. Calendar days follow now's location.
func FormatConversationTime(ts, now time.Time) string {
	ts = ts.In(now.Location())
	if sameDay(ts, now) {
		return ts.Format(clockLayout)
	}
	if sameDay(ts, now.AddDate(0, 0, -1)) {
		return yesterday
	}
	return ts.Format(dayLayout)
}

// FormatMessageTime renders a transcript timestamp as a time of day.
func FormatMessageTime(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format(clockLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
