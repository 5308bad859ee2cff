package core

import "time"

// WindowDays is the rolling retention window's width: entries older
// than today minus this many days are invisible to reads (but remain
// writable and stored).
const WindowDays = 7

const dateLayout = "2006-01-02"

// WindowPolicy computes the inclusive lower date bound for entry
// visibility. Read paths must filter entries by date >= the bound;
// write paths must not.
type WindowPolicy struct{}

// EntryLowerBound returns today_local - WindowDays days, formatted as
// YYYY-MM-DD, relative to now.
func (WindowPolicy) EntryLowerBound(now time.Time) string {
	return now.AddDate(0, 0, -WindowDays).Format(dateLayout)
}
