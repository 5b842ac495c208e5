// Package astroframe provides the minimal external contracts the
// propagator core consumes: an absolute date, a reference frame
// handle, and a position-velocity pair. Everything else about time
// scales, Earth orientation and frame chains is an external
// collaborator's concern (see spec.md §1); this package only carries
// enough structure for the core to do arithmetic on dates and vectors.
package astroframe

import "time"

// AbsoluteDate is a point on a continuous proper-time axis: a
// reference epoch plus an offset in SI seconds. It is built directly
// on time.Time rather than reinvented, since time.Time already gives
// nanosecond-precision subtraction and addition.
type AbsoluteDate struct {
	epoch time.Time
}

// NewAbsoluteDate wraps a civil time as an AbsoluteDate.
func NewAbsoluteDate(t time.Time) AbsoluteDate {
	return AbsoluteDate{epoch: t.UTC()}
}

// Time returns the underlying time.Time.
func (d AbsoluteDate) Time() time.Time {
	return d.epoch
}

// Sub returns d - other, in seconds. Exact to the precision of
// time.Time; an offset of zero from a date compares equal to it.
func (d AbsoluteDate) Sub(other AbsoluteDate) float64 {
	return d.epoch.Sub(other.epoch).Seconds()
}

// Shift returns a new AbsoluteDate offset by dt seconds (negative dt
// moves backward in time; the propagator relies on this for
// backward propagation).
func (d AbsoluteDate) Shift(dt float64) AbsoluteDate {
	return AbsoluteDate{epoch: d.epoch.Add(time.Duration(dt * float64(time.Second)))}
}

// Before reports whether d is strictly before other.
func (d AbsoluteDate) Before(other AbsoluteDate) bool {
	return d.epoch.Before(other.epoch)
}

// After reports whether d is strictly after other.
func (d AbsoluteDate) After(other AbsoluteDate) bool {
	return d.epoch.After(other.epoch)
}

// Equal reports whether d and other denote the same instant.
func (d AbsoluteDate) Equal(other AbsoluteDate) bool {
	return d.epoch.Equal(other.epoch)
}

func (d AbsoluteDate) String() string {
	return d.epoch.Format(time.RFC3339Nano)
}
