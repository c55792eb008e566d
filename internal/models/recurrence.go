package models

import (
	"errors"
	"time"
)

const (
	RecurringIntervalDaily   = "DAILY"
	RecurringIntervalWeekly  = "WEEKLY"
	RecurringIntervalMonthly = "MONTHLY"
	RecurringIntervalYearly  = "YEARLY"
)

var ErrInvalidRecurringInterval = errors.New("invalid recurring interval")

// IsValidRecurringInterval checks if the interval is one of the supported values
func IsValidRecurringInterval(interval string) bool {
	switch interval {
	case RecurringIntervalDaily, RecurringIntervalWeekly, RecurringIntervalMonthly, RecurringIntervalYearly:
		return true
	default:
		return false
	}
}

// NextOccurrence returns the next due instant after date for the interval.
// Monthly and yearly steps keep the day of month when the target month has
// it and otherwise clamp to that month's last day, so Jan 31 becomes Feb 28
// (or 29) and Feb 29 becomes Feb 28 the following year. The wall clock and
// location of date are preserved.
func NextOccurrence(date time.Time, interval string) (time.Time, error) {
	switch interval {
	case RecurringIntervalDaily:
		return date.AddDate(0, 0, 1), nil
	case RecurringIntervalWeekly:
		return date.AddDate(0, 0, 7), nil
	case RecurringIntervalMonthly:
		return addMonthsClamped(date, 1), nil
	case RecurringIntervalYearly:
		return addMonthsClamped(date, 12), nil
	default:
		return time.Time{}, ErrInvalidRecurringInterval
	}
}

func addMonthsClamped(date time.Time, months int) time.Time {
	year, month, day := date.Date()
	hour, minute, sec := date.Clock()

	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, date.Location())
	if last := daysIn(target.Year(), target.Month(), date.Location()); day > last {
		day = last
	}

	return time.Date(target.Year(), target.Month(), day, hour, minute, sec, date.Nanosecond(), date.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// IsDue reports whether a recurring template should spawn a transaction at now.
// A template that never ran is always due; otherwise its next recurring date
// must have arrived.
func IsDue(t *Transaction, now time.Time) bool {
	if t == nil || !t.IsRecurring {
		return false
	}

	if t.LastProcessed == nil {
		return true
	}

	return t.NextRecurringDate != nil && !t.NextRecurringDate.After(now)
}
