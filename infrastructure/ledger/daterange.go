package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of calendar days.
const DateLayout = "2006-01-02"

// Day is a calendar day, independent of any timezone.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day t falls on, read from t's own fields.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses "2006-01-02".
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return DayOf(t), nil
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Start returns midnight at the beginning of d in loc.
func (d Day) Start(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Bounds returns the half-open instant range [d 00:00, d+1 00:00) in loc.
func (d Day) Bounds(loc *time.Location) (from, to time.Time) {
	return d.Start(loc), time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, loc)
}

func (d Day) Before(o Day) bool {
	return d.Start(time.UTC).Before(o.Start(time.UTC))
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start Day
	End   Day
}

var ErrInvertedRange = errors.New("start date is after end date")

// NewDateRange validates that start is not after end.
func NewDateRange(start, end Day) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, ErrInvertedRange
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRange parses two "2006-01-02" values. A blank end means a single day.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := ParseDay(start)
	if err != nil {
		return DateRange{}, err
	}
	e := s
	if strings.TrimSpace(end) != "" {
		if e, err = ParseDay(end); err != nil {
			return DateRange{}, err
		}
	}
	return NewDateRange(s, e)
}

// SingleDay reports whether the range covers exactly one day.
func (r DateRange) SingleDay() bool {
	return r.Start == r.End
}

// Bounds returns [start 00:00, end+1 00:00) in loc.
func (r DateRange) Bounds(loc *time.Location) (from, to time.Time) {
	from, _ = r.Start.Bounds(loc)
	_, to = r.End.Bounds(loc)
	return from, to
}
