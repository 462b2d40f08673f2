package util

import "time"

// StartOfDayUTC truncates t to midnight of its UTC calendar date
func StartOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in the given month
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// CalculateActualDate returns the actual date for a target day in a given month,
// handling months with fewer days (e.g., day 31 in February returns Feb 28/29)
func CalculateActualDate(year int, month time.Month, targetDay int) time.Time {
	lastDay := DaysInMonth(year, month)

	actualDay := targetDay
	if actualDay > lastDay {
		actualDay = lastDay
	}

	return time.Date(year, month, actualDay, 0, 0, 0, 0, time.UTC)
}

// AddMonths adds calendar months to t in UTC. The day of month is kept when the
// target month has it, otherwise it is clamped to the target month's last day
// (Jan 31 + 1 month = Feb 28 or 29). Time of day is preserved.
func AddMonths(t time.Time, months int) time.Time {
	t = t.UTC()
	year, month, day := t.Date()

	// Let time.Date normalise month overflow on the 1st, then clamp the day
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	target := CalculateActualDate(first.Year(), first.Month(), day)

	return time.Date(target.Year(), target.Month(), target.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
