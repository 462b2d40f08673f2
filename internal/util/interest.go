package util

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IsLeapYear reports whether year is a Gregorian leap year
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}

// DaysInYear returns 366 for leap years and 365 otherwise
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// DaysBetween returns the number of UTC calendar days in [from, to), or 0
// when to is not after from
func DaysBetween(from, to time.Time) int {
	start := StartOfDayUTC(from)
	end := StartOfDayUTC(to)
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}

// InterestForPeriod computes simple, non-compounding interest on principal at
// annualRatePct percent per year over the UTC calendar days in [from, to).
// Each day accrues principal*rate/100 divided by the length of that day's
// year, so a period crossing a year boundary switches denominator. The total
// is rounded to 2 decimal places once.
func InterestForPeriod(principal, annualRatePct decimal.Decimal, from, to time.Time) decimal.Decimal {
	if from.IsZero() || to.IsZero() {
		return decimal.Zero
	}

	start := StartOfDayUTC(from)
	end := StartOfDayUTC(to)
	if !end.After(start) {
		return decimal.Zero
	}

	yearly := principal.Mul(annualRatePct).Div(hundred)
	total := decimal.Zero

	// Days are summed per calendar year so each year divides once
	for cursor := start; cursor.Before(end); {
		year := cursor.Year()
		segmentEnd := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		if segmentEnd.After(end) {
			segmentEnd = end
		}

		days := decimal.NewFromInt(int64(DaysBetween(cursor, segmentEnd)))
		denominator := decimal.NewFromInt(int64(DaysInYear(year)))
		total = total.Add(yearly.Mul(days).Div(denominator))

		cursor = segmentEnd
	}

	return total.Round(2)
}
