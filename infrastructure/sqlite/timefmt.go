package sqlite

import (
	"strings"
	"time"
)

// TimeLayout is the persisted timestamp format. Fixed width, so lexical
// order of stored values matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a value written by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, strings.TrimSpace(s), time.UTC)
}

// ParseNullableTime returns nil for an empty value.
func ParseNullableTime(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
