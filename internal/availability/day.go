package availability

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar date with no zone attached. Which instants belong to it
// depends on the viewer's location.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day t falls on in loc. A nil loc means time.Local.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := t.In(loc).Date()
	return Day{Year: y, Month: m, Day: d}
}

func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayOf(t, time.UTC), nil
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Start is local midnight of d in loc.
func (d Day) Start(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Day) AddDays(n int) Day {
	// noon UTC keeps the arithmetic clear of any zone transition
	return DayOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC), time.UTC)
}

func (d Day) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

func (d Day) IsZero() bool {
	return d == Day{}
}

func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Day) After(o Day) bool {
	return o.Before(d)
}
