package availability

import (
	"iter"
	"time"
)

// WindowDays is the fixed length of the availability horizon.
const WindowDays = 7

// Window is the run of WindowDays consecutive calendar days, starting at the
// viewer's local "today", over which slots are queried and displayed.
// It is derived on every view load and never persisted.
type Window struct {
	first Day
	loc   *time.Location
}

// NewWindow anchors a window at the local calendar day of anchor in loc.
// A nil loc means time.Local.
func NewWindow(anchor time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.Local
	}
	return Window{first: DayOf(anchor, loc), loc: loc}
}

func (w Window) First() Day { return w.first }

func (w Window) Last() Day { return w.first.AddDays(WindowDays - 1) }

func (w Window) Location() *time.Location { return w.loc }

// Days yields the WindowDays days of the window in order. The sequence can
// be ranged over any number of times.
func (w Window) Days() iter.Seq[Day] {
	return func(yield func(Day) bool) {
		for i := 0; i < WindowDays; i++ {
			if !yield(w.first.AddDays(i)) {
				return
			}
		}
	}
}

func (w Window) Contains(d Day) bool {
	return !d.Before(w.first) && !d.After(w.Last())
}

// Range returns the half-open instant range [from, to) covered by the window.
// to is WindowDays calendar days after from, so a DST change inside the
// window does not move it off local midnight.
func (w Window) Range() (from, to time.Time) {
	return w.first.Start(w.loc), w.first.AddDays(WindowDays).Start(w.loc)
}

// QueryBounds returns Range formatted for the slots endpoint.
func (w Window) QueryBounds() (from, to string) {
	f, t := w.Range()
	return QueryInstant(f), QueryInstant(t)
}

// QueryInstant formats t as a whole-second RFC 3339 UTC instant. The slots
// endpoint rejects fractional seconds.
func QueryInstant(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}
