package booking

import (
	"fmt"
	"time"
)

const (
	// DailyHourLimit caps the turn-hours a creator may hold per date across
	// live reservations.
	DailyHourLimit = 2
	// WeeklyConfirmedLimit caps confirmed participations in live reservations
	// per ISO week.
	WeeklyConfirmedLimit = 3
)

// DateOf truncates an instant to its civil date at UTC midnight. Dates are
// compared and stored at this granularity throughout the system.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekBounds returns the Monday and Sunday dates of the ISO week containing
// the given date, both at UTC midnight.
func WeekBounds(date time.Time) (monday, sunday time.Time) {
	day := DateOf(date)
	weekday := int(day.Weekday())
	// In Go, Monday == 1 and Sunday == 0.
	offset := (weekday + 6) % 7
	monday = day.AddDate(0, 0, -offset)
	sunday = monday.AddDate(0, 0, 6)
	return monday, sunday
}

// CombineDateClock builds the instant at which a turn boundary occurs on a
// date, given the boundary's wall clock in "HH:MM" form.
func CombineDateClock(date time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid turn clock %q: %w", clock, err)
	}
	day := DateOf(date)
	return day.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute), nil
}
