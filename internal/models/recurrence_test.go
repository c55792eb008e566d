package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextOccurrence(t *testing.T) {
	tests := []struct {
		name     string
		from     time.Time
		interval string
		want     time.Time
	}{
		{"daily", date(2024, 1, 31), RecurringIntervalDaily, date(2024, 2, 1)},
		{"weekly", date(2024, 12, 28), RecurringIntervalWeekly, date(2025, 1, 4)},
		{"monthly", date(2024, 1, 1), RecurringIntervalMonthly, date(2024, 2, 1)},
		{"monthly across year end", date(2024, 12, 15), RecurringIntervalMonthly, date(2025, 1, 15)},
		{"monthly clamps to leap february", date(2024, 1, 31), RecurringIntervalMonthly, date(2024, 2, 29)},
		{"monthly clamps to february", date(2023, 1, 31), RecurringIntervalMonthly, date(2023, 2, 28)},
		{"monthly clamps to thirty days", date(2024, 3, 31), RecurringIntervalMonthly, date(2024, 4, 30)},
		{"yearly", date(2024, 6, 15), RecurringIntervalYearly, date(2025, 6, 15)},
		{"yearly from leap day", date(2024, 2, 29), RecurringIntervalYearly, date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextOccurrence(tt.from, tt.interval)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestNextOccurrence_PreservesClock(t *testing.T) {
	from := time.Date(2024, 5, 31, 13, 45, 10, 500, time.UTC)

	got, err := NextOccurrence(from, RecurringIntervalMonthly)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 30, 13, 45, 10, 500, time.UTC), got)
}

func TestNextOccurrence_WeeklyTwiceIsFourteenDays(t *testing.T) {
	start := time.Date(2024, 3, 5, 22, 30, 0, 0, time.UTC)

	for i := 0; i < 60; i++ {
		d := start.AddDate(0, 0, i)
		once, err := NextOccurrence(d, RecurringIntervalWeekly)
		require.NoError(t, err)
		twice, err := NextOccurrence(once, RecurringIntervalWeekly)
		require.NoError(t, err)
		assert.Equal(t, d.Add(14*24*time.Hour), twice)
	}
}

func TestNextOccurrence_InvalidInterval(t *testing.T) {
	_, err := NextOccurrence(date(2024, 1, 1), "FORTNIGHTLY")
	assert.ErrorIs(t, err, ErrInvalidRecurringInterval)
}

func TestIsDue(t *testing.T) {
	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)
	later := now.Add(time.Hour)

	tests := []struct {
		name string
		tx   *Transaction
		want bool
	}{
		{"nil", nil, false},
		{"not recurring", &Transaction{}, false},
		{"never processed", &Transaction{IsRecurring: true}, true},
		{"next date passed", &Transaction{IsRecurring: true, LastProcessed: &earlier, NextRecurringDate: &earlier}, true},
		{"next date is now", &Transaction{IsRecurring: true, LastProcessed: &earlier, NextRecurringDate: &now}, true},
		{"next date ahead", &Transaction{IsRecurring: true, LastProcessed: &earlier, NextRecurringDate: &later}, false},
		{"processed without next date", &Transaction{IsRecurring: true, LastProcessed: &earlier}, false},
		{"non recurring with stale dates", &Transaction{LastProcessed: &earlier, NextRecurringDate: &earlier}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDue(tt.tx, now))
		})
	}
}
