package util

import (
	"fmt"
	"time"

	"github.com/dafibh/kredo/kredo-backend/internal/domain"
)

// NextPaymentDate advances from by one period of freq. It returns nil for a
// nil anchor and for FLEXIBLE loans, which have no schedule. Unknown
// frequencies advance by one month.
func NextPaymentDate(from *time.Time, freq domain.PaymentFrequency) *time.Time {
	if from == nil {
		return nil
	}

	var next time.Time
	switch freq {
	case domain.FrequencyFlexible:
		return nil
	case domain.FrequencyDaily:
		next = from.UTC().AddDate(0, 0, 1)
	case domain.FrequencyWeekly:
		next = from.UTC().AddDate(0, 0, 7)
	case domain.FrequencyMonthly:
		next = AddMonths(*from, 1)
	case domain.FrequencyQuarterly:
		next = AddMonths(*from, 3)
	case domain.FrequencyHalfYearly:
		next = AddMonths(*from, 6)
	case domain.FrequencyYearly:
		next = AddMonths(*from, 12)
	default:
		next = AddMonths(*from, 1)
	}
	return &next
}

// ParseClockTime parses an "HH:MM" wall-clock time into an offset from midnight
func ParseClockTime(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q, want HH:MM: %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// NextDailyRun returns the first instant strictly after now that falls at
// offset past UTC midnight
func NextDailyRun(now time.Time, offset time.Duration) time.Time {
	next := StartOfDayUTC(now).Add(offset)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
