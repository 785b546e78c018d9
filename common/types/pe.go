package types

import (
	"fmt"
)

// TableIndex selects one of the registered symmetric regions on a PE. It plays the role of a
// portal table entry: the same index denotes the same region on every PE.
type TableIndex uint8

// ActiveSet describes PEs taking part in a collective: PE_start, PE_start+stride, ...
// with stride = 2^LogStride and Size members.
type ActiveSet struct {
	Start     int
	LogStride int
	Size      int
}

// Stride returns the distance between two consecutive members.
func (s ActiveSet) Stride() int {
	return 1 << s.LogStride
}

// Member returns the rank of the i-th member of the set.
func (s ActiveSet) Member(i int) int {
	return s.Start + i*s.Stride()
}

// Root is the member that owns reductions for the set.
func (s ActiveSet) Root() int {
	return s.Start
}

// Contains reports whether pe is a member of the set.
func (s ActiveSet) Contains(pe int) bool {
	if pe < s.Start || s.Size <= 0 {
		return false
	}
	d := pe - s.Start
	if d%s.Stride() != 0 {
		return false
	}
	return d/s.Stride() < s.Size
}

// Validate checks that every member is a valid rank for a job of npes PEs.
func (s ActiveSet) Validate(npes int) error {
	switch {
	case s.Size <= 0:
		return fmt.Errorf("active set size %d must be positive", s.Size)
	case s.LogStride < 0 || s.LogStride > 30:
		return fmt.Errorf("log stride %d out of range", s.LogStride)
	case s.Start < 0:
		return fmt.Errorf("start pe %d is negative", s.Start)
	case s.Member(s.Size-1) >= npes:
		return fmt.Errorf("last member %d outside of job with %d pes", s.Member(s.Size-1), npes)
	}
	return nil
}

func (s ActiveSet) String() string {
	return fmt.Sprintf("start=%d stride=%d size=%d", s.Start, s.Stride(), s.Size)
}
