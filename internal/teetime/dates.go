package teetime

import "time"

// NextTargetDate returns the next occurrence of weekday strictly after today.
// If today already is the target weekday the result is a full week out; the
// league plays weekly and same-day booking is never wanted.
func NextTargetDate(today time.Time, weekday time.Weekday) time.Time {
	delta := (int(weekday) - int(today.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	d := today.AddDate(0, 0, delta)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// FormatDate renders a date the way the portal's date input expects it.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
