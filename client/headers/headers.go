// Package headers provides a case-insensitive, multi-value header store
// used for both outgoing request headers and parsed response headers.
package headers

import (
	"maps"
	"regexp"
	"slices"
	"strings"
)

// Value holds the values of a single header in insertion order.
// A header with exactly one value is single-valued.
type Value []string

// String joins the values the way they travel on the wire.
func (v Value) String() string {
	return strings.Join(v, ", ")
}

// Multi reports whether the header carries more than one value.
func (v Value) Multi() bool {
	return len(v) > 1
}

// Store is a header dictionary keyed by normalized name. The zero value is
// ready to use. A Store is not safe for concurrent mutation.
type Store struct {
	parsed map[string]Value
}

// New builds a Store from a header map. Empty names and empty values are skipped.
func New(raw map[string][]string) *Store {
	s := &Store{parsed: make(map[string]Value, len(raw))}
	for name, values := range raw {
		for _, v := range values {
			s.Add(name, v)
		}
	}

	return s
}

// Has reports whether the header is set.
func (s *Store) Has(name string) bool {
	_, ok := s.parsed[Normalize(name)]
	return ok
}

// Get returns the header value and whether it was found.
func (s *Store) Get(name string) (Value, bool) {
	v, ok := s.parsed[Normalize(name)]
	if !ok {
		return nil, false
	}

	return slices.Clone(v), true
}

// First returns the first value of the header, or "" if unset.
func (s *Store) First(name string) string {
	v, ok := s.parsed[Normalize(name)]
	if !ok {
		return ""
	}

	return v[0]
}

// Set replaces the header with the given values. It is a no-op when
// name is empty or no non-empty value remains.
func (s *Store) Set(name string, values ...string) *Store {
	key := Normalize(name)
	values = nonEmpty(values)
	if key == "" || len(values) == 0 {
		return s
	}

	s.init()
	s.parsed[key] = values

	return s
}

// Add appends values to the header, creating it when absent.
func (s *Store) Add(name string, values ...string) *Store {
	current, ok := s.parsed[Normalize(name)]
	if !ok {
		return s.Set(name, values...)
	}

	values = nonEmpty(values)
	if len(values) == 0 {
		return s
	}

	s.parsed[Normalize(name)] = append(slices.Clone(current), values...)

	return s
}

// Remove deletes one occurrence of value from a multi-value header. Without a
// value, or when the header holds a single value, the whole entry is deleted.
func (s *Store) Remove(name string, value ...string) *Store {
	key := Normalize(name)
	current, ok := s.parsed[key]
	if !ok {
		return s
	}

	if len(value) == 0 || value[0] == "" || !current.Multi() {
		delete(s.parsed, key)
		return s
	}

	idx := slices.Index(current, value[0])
	if idx < 0 {
		return s
	}

	current = slices.Delete(slices.Clone(current), idx, idx+1)
	if len(current) == 0 {
		delete(s.parsed, key)
		return s
	}
	s.parsed[key] = current

	return s
}

// All returns a copy of every header keyed by normalized name.
func (s *Store) All() map[string]Value {
	out := make(map[string]Value, len(s.parsed))
	for name, v := range s.parsed {
		out[name] = slices.Clone(v)
	}

	return out
}

// Names returns the normalized header names in sorted order.
func (s *Store) Names() []string {
	return slices.Sorted(maps.Keys(s.parsed))
}

// Len returns the number of distinct headers.
func (s *Store) Len() int {
	return len(s.parsed)
}

// Matches tests the joined header value against pattern.
// It returns false when the header is not set.
func (s *Store) Matches(name string, pattern *regexp.Regexp) bool {
	v, ok := s.parsed[Normalize(name)]
	if !ok {
		return false
	}

	return pattern.MatchString(v.String())
}

// Clone returns a deep copy of the store.
func (s *Store) Clone() *Store {
	return &Store{parsed: s.All()}
}

// String serializes the store as raw header text, one "Name: values" line
// per header, sorted by name.
func (s *Store) String() string {
	var b strings.Builder
	for _, name := range s.Names() {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(s.parsed[name].String())
		b.WriteString("\r\n")
	}

	return b.String()
}

func (s *Store) init() {
	if s.parsed == nil {
		s.parsed = make(map[string]Value)
	}
}

// Normalize lower-cases name and capitalizes the first letter of every
// hyphen separated segment, so cache-control becomes Cache-Control.
func Normalize(name string) string {
	segments := strings.Split(strings.ToLower(strings.TrimSpace(name)), "-")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		segments[i] = strings.ToUpper(seg[:1]) + seg[1:]
	}

	return strings.Join(segments, "-")
}

func nonEmpty(values []string) Value {
	out := make(Value, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}
