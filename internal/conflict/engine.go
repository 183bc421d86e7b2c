// Package conflict decides whether a requested slot collides with existing bookings.
//
// Every interval is widened by a buffer on both sides and compared half-open,
// so two bookings whose widened intervals merely touch do not conflict.
package conflict

import (
	"errors"
	"time"
)

// DefaultBuffer is the tolerance kept free around every appointment.
const DefaultBuffer = 30 * time.Minute

// ErrUnknownTime is returned when a candidate has no usable start time.
var ErrUnknownTime = errors.New("candidate start time is unknown")

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval from a start and a duration.
func NewInterval(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, End: start.Add(d)}
}

// Expand widens the interval by b on both ends.
func (iv Interval) Expand(b time.Duration) Interval {
	return Interval{Start: iv.Start.Add(-b), End: iv.End.Add(b)}
}

// Overlaps reports a non-empty intersection of two half-open intervals.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// Booking is an active appointment as seen by the engine.
type Booking struct {
	ID       string
	Interval Interval
}

// Result is the engine's decision for one candidate.
type Result struct {
	HasConflict bool
	With        *Booking
}

// Engine checks candidates against active bookings.
type Engine struct {
	buffer time.Duration
}

// New creates an engine; a non-positive buffer uses DefaultBuffer.
func New(buffer time.Duration) *Engine {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Engine{buffer: buffer}
}

// Buffer returns the tolerance applied around each interval.
func (e *Engine) Buffer() time.Duration {
	return e.buffer
}

// Conflicts compares two intervals after widening both by the buffer.
func (e *Engine) Conflicts(a, b Interval) bool {
	return a.Expand(e.buffer).Overlaps(b.Expand(e.buffer))
}

// Check scans active bookings once and returns the first collision.
// The booking whose ID equals excludeID is skipped so a stored appointment
// never collides with itself.
func (e *Engine) Check(candidate Interval, active []Booking, excludeID string) Result {
	expanded := candidate.Expand(e.buffer)
	for i := range active {
		if excludeID != "" && active[i].ID == excludeID {
			continue
		}
		if expanded.Overlaps(active[i].Interval.Expand(e.buffer)) {
			b := active[i]
			return Result{HasConflict: true, With: &b}
		}
	}
	return Result{}
}

// CheckCandidate is Check for a possibly-incomplete candidate. An unknown start
// cannot be checked and yields ErrUnknownTime instead of a no-conflict result.
func (e *Engine) CheckCandidate(start *time.Time, d time.Duration, active []Booking, excludeID string) (Result, error) {
	if start == nil || start.IsZero() || d <= 0 {
		return Result{}, ErrUnknownTime
	}
	return e.Check(NewInterval(*start, d), active, excludeID), nil
}

// Window returns the range of stored start/end values that could possibly
// collide with the candidate, for narrowing the store query.
func (e *Engine) Window(candidate Interval) Interval {
	return candidate.Expand(2 * e.buffer)
}
