package relaylog

import (
	"sort"

	"go.uber.org/multierr"
)

// ErrorSet is a bounded multiset of distinct errors, keyed by Code. It
// bounds the damage a repeatedly failing handler can do: the first
// occurrence of a code is kept (and may be logged), later occurrences
// of the same code only bump a counter and are dropped.
type ErrorSet struct {
	distinct map[Code]*Error
	counts   map[Code]int
	total    int
}

// NewErrorSet creates an empty error set.
func NewErrorSet() *ErrorSet {
	return &ErrorSet{
		distinct: make(map[Code]*Error),
		counts:   make(map[Code]int),
	}
}

// Add records err in the set. It returns true the first time a given
// Code is seen (the caller should self-log on that transition) and
// false for every subsequent occurrence of the same code (the caller
// should drop/free the duplicate instance).
func (s *ErrorSet) Add(err *Error) bool {
	s.total++
	if err.IsOK() {
		return false
	}
	s.counts[err.Code]++
	if _, seen := s.distinct[err.Code]; seen {
		return false
	}
	s.distinct[err.Code] = err
	return true
}

// Count returns how many times Code has been seen.
func (s *ErrorSet) Count(code Code) int {
	return s.counts[code]
}

// TotalSeen returns the total number of Add calls that carried a
// non-OK error.
func (s *ErrorSet) TotalSeen() int {
	total := 0
	for _, c := range s.counts {
		total += c
	}
	return total
}

// Codes returns the distinct codes seen, in ascending order.
func (s *ErrorSet) Codes() []Code {
	codes := make([]Code, 0, len(s.distinct))
	for c := range s.distinct {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Group combines every distinct error in the set into one multierr
// value (preserving each as a separate, individually-unwrappable
// member rather than flattening them into a single cause chain) and
// wraps the result as a single *Error, suitable for returning from
// Flush or Finalize when a handler has recorded failures.
func (s *ErrorSet) Group() *Error {
	if len(s.distinct) == 0 {
		return OK
	}
	var combined error
	for _, code := range s.Codes() {
		combined = multierr.Append(combined, s.distinct[code])
	}
	return Newf(Set, "%d distinct error(s), %d total occurrence(s): %s", len(s.distinct), s.TotalSeen(), combined.Error())
}
