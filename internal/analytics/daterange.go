package analytics

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for date bounds.
const DateLayout = "2006-01-02"

// Range is an inclusive calendar-day window. Bounds are UTC midnights.
type Range struct {
	Start time.Time
	End   time.Time
}

// ResolveRange normalizes optional from/to query parameters into a concrete
// window. With both absent it defaults to the trailing defaultDays ending
// today. A single present bound is rejected: silently defaulting the other
// bound would change the window the caller asked to compare.
func ResolveRange(from, to string, defaultDays int) (Range, error) {
	if from == "" && to == "" {
		end := today()
		return Range{Start: end.AddDate(0, 0, -defaultDays), End: end}, nil
	}
	if from == "" || to == "" {
		return Range{}, fmt.Errorf("%w: both from and to are required", ErrInvalidRange)
	}

	start, err := time.ParseInLocation(DateLayout, from, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad from date %q", ErrInvalidRange, from)
	}
	end, err := time.ParseInLocation(DateLayout, to, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad to date %q", ErrInvalidRange, to)
	}
	if start.After(end) {
		return Range{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidRange, from, to)
	}

	return Range{Start: start, End: end}, nil
}

// PriorYear returns the comparable window exactly one calendar year earlier.
// Calendar subtraction, not a 365-day offset, keeps the prior window aligned
// with weekday and seasonal patterns.
func (r Range) PriorYear() Range {
	return Range{
		Start: r.Start.AddDate(-1, 0, 0),
		End:   r.End.AddDate(-1, 0, 0),
	}
}

// Days returns the number of calendar days in the window, inclusive.
func (r Range) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether t falls inside the window.
func (r Range) Contains(t time.Time) bool {
	d := t.Truncate(24 * time.Hour)
	return !d.Before(r.Start) && !d.After(r.End)
}

// EachDay calls fn for every calendar day in the window, ascending.
func (r Range) EachDay(fn func(time.Time)) {
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

func (r Range) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
