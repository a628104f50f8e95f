package model

import "time"

// TomorrowAt returns hour:00 local time on the day after now.
func TomorrowAt(now time.Time, hour int) time.Time {
	local := now.Local()
	return time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, local.Location())
}

// DeadlineAfter returns now+hours+minutes, or false if the span is not positive.
func DeadlineAfter(now time.Time, hours, minutes int) (time.Time, bool) {
	span := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if span <= 0 {
		return time.Time{}, false
	}
	return now.Add(span), true
}
