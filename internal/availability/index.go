package availability

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"booking-frontend/internal/model"
)

var ErrDuplicateSlot = errors.New("duplicate slot id")

// Index buckets a fetched slot list by the viewer's local calendar day.
// Booked slots never appear in a bucket but remain in Raw.
// An Index is immutable; a changed slot list needs a new one.
type Index struct {
	loc    *time.Location
	raw    []model.Slot
	byDay  map[Day][]model.Slot
	byID   map[string]model.Slot
	perDay map[Day]int
}

// BuildIndex indexes slots for a viewer in loc. Slot ids must be unique.
func BuildIndex(slots []model.Slot, loc *time.Location) (*Index, error) {
	seen := make(map[string]struct{}, len(slots))
	for _, s := range slots {
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSlot, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return build(slots, loc), nil
}

// EmptyIndex is the index of a view whose slots have not loaded yet.
func EmptyIndex(loc *time.Location) *Index {
	return build(nil, loc)
}

func build(slots []model.Slot, loc *time.Location) *Index {
	if loc == nil {
		loc = time.Local
	}
	idx := &Index{
		loc:    loc,
		raw:    slices.Clone(slots),
		byDay:  make(map[Day][]model.Slot),
		byID:   make(map[string]model.Slot),
		perDay: make(map[Day]int),
	}
	for _, s := range idx.raw {
		day := DayOf(s.Start, loc)
		idx.perDay[day]++
		if s.Booked {
			continue
		}
		idx.byDay[day] = append(idx.byDay[day], s)
		idx.byID[s.ID] = s
	}
	for _, bucket := range idx.byDay {
		sort.SliceStable(bucket, func(i, j int) bool {
			if bucket[i].Start.Equal(bucket[j].Start) {
				return bucket[i].ID < bucket[j].ID
			}
			return bucket[i].Start.Before(bucket[j].Start)
		})
	}
	return idx
}

func (idx *Index) Location() *time.Location { return idx.loc }

// Raw returns every indexed slot, booked ones included, in fetch order.
func (idx *Index) Raw() []model.Slot {
	return slices.Clone(idx.raw)
}

// For returns the available slots starting on day, earliest first.
// The result is empty, never nil, when nothing is available.
func (idx *Index) For(day Day) []model.Slot {
	bucket := idx.byDay[day]
	out := make([]model.Slot, len(bucket))
	copy(out, bucket)
	return out
}

func (idx *Index) Count(day Day) int {
	return len(idx.byDay[day])
}

// Len is the number of available slots across all days.
func (idx *Index) Len() int {
	return len(idx.byID)
}

// Lookup finds an available slot by id.
func (idx *Index) Lookup(id string) (model.Slot, bool) {
	s, ok := idx.byID[id]
	return s, ok
}

// Has reports whether id is available on day.
func (idx *Index) Has(day Day, id string) bool {
	s, ok := idx.byID[id]
	return ok && DayOf(s.Start, idx.loc) == day
}

// FullyBooked reports whether day had slots and all of them are booked.
func (idx *Index) FullyBooked(day Day) bool {
	return idx.perDay[day] > 0 && len(idx.byDay[day]) == 0
}

// AvailableDays lists the days with at least one available slot, in order.
func (idx *Index) AvailableDays() []Day {
	days := make([]Day, 0, len(idx.byDay))
	for d := range idx.byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// MarkBooked returns a copy of the index with slot id flipped to booked.
// It hides a slot the viewer just booked until a fresh fetch replaces the
// index. Unknown ids yield an equivalent index.
func (idx *Index) MarkBooked(id string) *Index {
	slots := slices.Clone(idx.raw)
	for i := range slots {
		if slots[i].ID == id {
			slots[i].Booked = true
		}
	}
	return build(slots, idx.loc)
}
