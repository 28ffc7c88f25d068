package domain

import (
	"errors"
	"fmt"
	"time"
)

const dateKeyLayout = "2006-01-02"

// ErrInvalidDateKey is returned for keys not in YYYY-MM-DD form
var ErrInvalidDateKey = errors.New("invalid date key")

// DateKey identifies a local calendar day as a zero-padded YYYY-MM-DD string
type DateKey string

// DateKeyOf returns the calendar day of t in loc
func DateKeyOf(t time.Time, loc *time.Location) DateKey {
	return DateKey(StartOfDay(t, loc).Format(dateKeyLayout))
}

// ParseDateKey validates s and returns it as a DateKey
func ParseDateKey(s string) (DateKey, error) {
	parsed, err := time.Parse(dateKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDateKey, s)
	}
	return DateKey(parsed.Format(dateKeyLayout)), nil
}

// Start returns local midnight of the day in loc
func (k DateKey) Start(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := time.ParseInLocation(dateKeyLayout, string(k), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateKey, string(k))
	}
	return parsed, nil
}

// String returns the key as YYYY-MM-DD
func (k DateKey) String() string {
	return string(k)
}

// MarshalText implements encoding.TextMarshaler
func (k DateKey) MarshalText() ([]byte, error) {
	return []byte(k), nil
}

// UnmarshalText accepts an empty value so snapshots without a reset date still load
func (k *DateKey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = ""
		return nil
	}
	parsed, err := ParseDateKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// StartOfDay returns local midnight of the day containing t
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	year, month, day := local.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

// DayRange returns [midnight, next midnight) for the day containing t
func DayRange(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}
