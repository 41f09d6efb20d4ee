package trial

import "time"

// DayKeyFormat is the layout of the calendar-day marker stored on every
// quota record.
const DayKeyFormat = "2006-01-02"

// DayKey returns the calendar day for t in the service timezone. All
// rollover decisions compare against this value, never the caller's local
// time.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyFormat)
}

// MinuteOfDay returns the minute within the day for t in the service
// timezone, in [0, 1439].
func MinuteOfDay(t time.Time, loc *time.Location) int {
	local := t.In(loc)
	return local.Hour()*60 + local.Minute()
}
