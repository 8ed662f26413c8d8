package relaylog

import "strings"

// Filter is a single (prefix, level) rule: it matches any logger whose
// name starts with prefix (the empty prefix matches every logger).
type Filter struct {
	Prefix string
	Level  Level
}

// FilterSet is an ordered, growable sequence of filters. Resolution is
// longest-prefix-wins; ties are broken by later occurrence in the
// sequence.
type FilterSet struct {
	filters []Filter
}

// NewFilterSet builds a FilterSet from the given filters, in order.
func NewFilterSet(filters ...Filter) *FilterSet {
	fs := &FilterSet{}
	fs.filters = append(fs.filters, filters...)
	return fs
}

// Add appends a new filter to the set.
func (fs *FilterSet) Add(prefix string, level Level) {
	fs.filters = append(fs.filters, Filter{Prefix: prefix, Level: level})
}

// Threshold returns the level of the longest-matching filter for
// logger name, or OFF if nothing matches.
func (fs *FilterSet) Threshold(name string) Level {
	best := -1
	result := OFF
	for _, f := range fs.filters {
		if !strings.HasPrefix(name, f.Prefix) {
			continue
		}
		if len(f.Prefix) >= best {
			best = len(f.Prefix)
			result = f.Level
		}
	}
	return result
}

// Filters returns a copy of the underlying filter sequence.
func (fs *FilterSet) Filters() []Filter {
	out := make([]Filter, len(fs.filters))
	copy(out, fs.filters)
	return out
}

// String renders the set in the textual grammar parsed by
// ParseFilterSet: "prefix:LEVEL,prefix:LEVEL,...".
func (fs *FilterSet) String() string {
	var b strings.Builder
	for i, f := range fs.filters {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(f.Prefix)
		b.WriteByte(':')
		b.WriteString(f.Level.String())
	}
	return b.String()
}

// Predefined filter sets with obvious semantics.
func AllOff() *FilterSet    { return NewFilterSet(Filter{Prefix: "", Level: OFF}) }
func AllOutput() *FilterSet { return NewFilterSet(Filter{Prefix: "", Level: OUTPUT}) }
func AllAll() *FilterSet    { return NewFilterSet(Filter{Prefix: "", Level: LOWEST}) }

// ParseFilterSet parses the textual grammar:
//
//	filters ::= filter ("," filter)*
//	filter  ::= prefix ":" level
//	level   ::= name | nonneg-integer
//
// A malformed entry (missing ':', empty, trailing garbage) fails the
// whole parse. A numeric level greater than LOWEST clamps to LOWEST
// and the parse still succeeds, but ParseFilterSet returns the
// recoverable warning *Error produced by ParseLevel alongside the
// successfully-built set.
func ParseFilterSet(format string) (*FilterSet, *Error) {
	fs := NewFilterSet()
	if format == "" {
		return fs, OK
	}
	var warn *Error = OK
	for _, entry := range strings.Split(format, ",") {
		if entry == "" {
			return nil, Newf(Protocol, "malformed filter entry: empty")
		}
		idx := strings.LastIndexByte(entry, ':')
		if idx < 0 {
			return nil, Newf(Protocol, "malformed filter entry %q: missing ':'", entry)
		}
		prefix := entry[:idx]
		levelStr := entry[idx+1:]
		if levelStr == "" {
			return nil, Newf(Protocol, "malformed filter entry %q: empty level", entry)
		}
		lvl, err := ParseLevel(levelStr)
		if err.IsKO() && lvl == LOWEST && err.Code == BadLevel && !isClampWarning(err) {
			return nil, Newf(Protocol, "malformed filter entry %q: %s", entry, err.Message)
		}
		if err.IsKO() {
			warn = err
		}
		fs.Add(prefix, lvl)
	}
	return fs, warn
}

func isClampWarning(err *Error) bool {
	return strings.Contains(err.Message, "clamped")
}
