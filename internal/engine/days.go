package engine

import (
	"fmt"
	"time"
)

// DayLayout is the storage and wire format of a calendar day.
const DayLayout = "2006-01-02"

// Normalize strips the time of day, keeping t's own calendar date. The result
// is midnight UTC so days compare with == and step with AddDate.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the calendar date of now as seen in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Normalize(now.In(loc))
}

// ParseDay parses a YYYY-MM-DD string. Malformed input is an InvalidArgument.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidArgument, s)
	}
	return t, nil
}

// FormatDay renders the calendar date of t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return Normalize(t).Format(DayLayout)
}

func parseDays(raw []string) ([]time.Time, error) {
	days := make([]time.Time, 0, len(raw))
	for _, s := range raw {
		d, err := time.Parse(DayLayout, s)
		if err != nil {
			return nil, fmt.Errorf("stored day %q: %w", s, err)
		}
		days = append(days, d)
	}
	return days, nil
}
