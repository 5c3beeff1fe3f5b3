// Package counters manages named counter collections on cards and players.
package counters

import (
	"sort"
	"strconv"
	"strings"
)

// Common counter names. Boost counters use their printed "+N/+N" form so
// the characteristic layer can parse deltas straight from the name.
const (
	P1P1    = "+1/+1"
	M1M1    = "-1/-1"
	Loyalty = "loyalty"
	Charge  = "charge"
	Poison  = "poison"
	Energy  = "energy"
)

// Set is a collection of named counters. A nil Set is empty.
type Set map[string]int

// NewSet creates an empty counter set.
func NewSet() Set {
	return make(Set)
}

// Add adds count counters of the given name. Non-positive counts are
// ignored.
func (s Set) Add(name string, count int) Set {
	if count <= 0 {
		return s
	}
	if s == nil {
		s = NewSet()
	}
	s[name] += count
	return s
}

// Remove removes up to count counters of the given name and reports
// whether any were removed. A name whose count reaches zero is dropped.
func (s Set) Remove(name string, count int) bool {
	if count <= 0 || s == nil {
		return false
	}
	current, ok := s[name]
	if !ok {
		return false
	}
	if current <= count {
		delete(s, name)
	} else {
		s[name] = current - count
	}
	return true
}

// Count returns the number of counters with the given name.
func (s Set) Count(name string) int {
	if s == nil {
		return 0
	}
	return s[name]
}

// Has reports whether any counters with the given name are present.
func (s Set) Has(name string) bool {
	return s.Count(name) > 0
}

// Total returns the number of counters across all names.
func (s Set) Total() int {
	total := 0
	for _, count := range s {
		total += count
	}
	return total
}

// Copy returns a deep copy of the set.
func (s Set) Copy() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	for name, count := range s {
		out[name] = count
	}
	return out
}

// Names returns the counter names in sorted order, for deterministic
// rendering.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BoostTotals sums the power/toughness deltas contributed by every boost
// counter in the set ("+1/+1" style names).
func (s Set) BoostTotals() (power, toughness int) {
	for name, count := range s {
		p, t, ok := ParseBoost(name)
		if !ok {
			continue
		}
		power += p * count
		toughness += t * count
	}
	return power, toughness
}

// Annihilate cancels matched +1/+1 and -1/-1 pairs, the way state-based
// actions do. Returns the number of pairs removed.
func (s Set) Annihilate() int {
	plus := s.Count(P1P1)
	minus := s.Count(M1M1)
	pairs := plus
	if minus < pairs {
		pairs = minus
	}
	if pairs > 0 {
		s.Remove(P1P1, pairs)
		s.Remove(M1M1, pairs)
	}
	return pairs
}

// ParseBoost parses a boost counter name such as "+1/+1" or "-2/-2" into
// its power/toughness deltas. Returns false for non-boost names.
func ParseBoost(name string) (power, toughness int, ok bool) {
	left, right, found := strings.Cut(name, "/")
	if !found {
		return 0, 0, false
	}
	power, ok = parseSigned(left)
	if !ok {
		return 0, 0, false
	}
	toughness, ok = parseSigned(right)
	if !ok {
		return 0, 0, false
	}
	return power, toughness, true
}

// BoostName renders power/toughness deltas as a counter name, "+1/+1" style.
func BoostName(power, toughness int) string {
	return formatSigned(power) + "/" + formatSigned(toughness)
}

func parseSigned(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimPrefix(s, "+"))
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatSigned(v int) string {
	if v >= 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// View is the caller-facing rendering of one counter name.
type View struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ToView renders the set in sorted order.
func (s Set) ToView() []View {
	names := s.Names()
	views := make([]View, 0, len(names))
	for _, name := range names {
		views = append(views, View{Name: name, Count: s[name]})
	}
	return views
}
