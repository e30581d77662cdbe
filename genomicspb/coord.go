package genomicspb

// This file adds coordinate helpers to Range.

import (
	"fmt"
	"math"
)

const (
	// InfinityPos is 1+ the largest possible coordinate. A request whose End
	// is InfinityPos reads to the end of the reference.
	InfinityPos = int64(math.MaxInt64)

	// InvalidPos is a sentinel coordinate value.
	InvalidPos = int64(-1)
)

// Range is a half-open coordinate range [Start, End) on one reference.
type Range struct {
	Start int64
	End   int64
}

// String returns a human-readable form "[start,end)".
func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Empty returns true iff the range covers no base.
func (r Range) Empty() bool {
	return r.End <= r.Start
}

// Contains checks if pos is inside r.
func (r Range) Contains(pos int64) bool {
	return r.Start <= pos && pos < r.End
}

// Overlaps returns true iff (r ∩ r1) != ∅.
func (r Range) Overlaps(r1 Range) bool {
	return r.Start < r1.End && r1.Start < r.End
}

// Before returns true iff every base of r lies strictly left of pos.
func (r Range) Before(pos int64) bool {
	return r.End <= pos
}
