package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/streaklit/internal/constants"
)

// Day truncates t to its calendar date. The result is midnight UTC carrying
// t's year, month and day, so naive dates compare and subtract cleanly.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date according to the local clock.
func Today() time.Time {
	return Day(time.Now())
}

// ParseDay parses a date string in the standard format (YYYY-MM-DD).
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s (expected YYYY-MM-DD)", s)
	}
	return t, nil
}

// FormatDay formats t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// DayOrToday returns Day(t), or today when t is the zero value.
func DayOrToday(t time.Time, today time.Time) time.Time {
	if t.IsZero() {
		return Day(today)
	}
	return Day(t)
}

// DaysBetween returns the number of whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
