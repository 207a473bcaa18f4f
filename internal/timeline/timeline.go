// Package timeline holds the placement rules for a player's chronological
// row of years: the effective timeline seen while guessing, banking of the
// pending buffer and the guess evaluator.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// ErrDisambiguationRequired is returned when a guess collides with a year
// already on the effective timeline and no side was chosen.
var ErrDisambiguationRequired = errors.New("guess collides with a timeline year and needs a side")

// Side is the explicit ordering intent for a colliding guess.
type Side int

const (
	SideNone Side = iota
	// Before means the fact is released in or before the colliding year.
	Before
	// After means the fact is released in or after the colliding year.
	After
)

func (s Side) String() string {
	switch s {
	case Before:
		return "before"
	case After:
		return "after"
	}
	return ""
}

// ParseSide parses "before" or "after".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "before":
		return Before, nil
	case "after":
		return After, nil
	}
	return SideNone, fmt.Errorf("side must be before or after, got %q", s)
}

// Effective merges committed and pending years into the sorted, duplicate
// free sequence used for placement decisions. Inputs are not modified.
func Effective(committed, pending []int) []int {
	out := make([]int, 0, len(committed)+len(pending))
	out = append(out, committed...)
	out = append(out, pending...)
	slices.Sort(out)
	return slices.Compact(out)
}

// Contains reports whether year sits on the sorted effective timeline.
func Contains(effective []int, year int) bool {
	_, found := slices.BinarySearch(effective, year)
	return found
}

// Bank returns committed with every pending year merged in, sorted. The
// multiset is preserved: a year won twice appears twice.
func Bank(committed, pending []int) []int {
	out := make([]int, 0, len(committed)+len(pending))
	out = append(out, committed...)
	out = append(out, pending...)
	slices.Sort(out)
	return out
}

// Interval is the (Lower, Upper] range a non-colliding guess stands for.
// math.MinInt stands for an unbounded lower end.
type Interval struct {
	Lower int
	Upper int
}

// Covers reports whether year falls inside the interval.
func (iv Interval) Covers(year int) bool {
	return year > iv.Lower && year <= iv.Upper
}

// Bounds computes the interval selected by guessing year on the effective
// timeline. An unbounded upper end closes at currentYear+1.
func Bounds(effective []int, year, currentYear int) Interval {
	u, _ := slices.BinarySearch(effective, year+1)
	iv := Interval{Lower: math.MinInt, Upper: currentYear + 1}
	if u > 0 {
		iv.Lower = effective[u-1]
	}
	if u < len(effective) {
		iv.Upper = effective[u]
	}
	return iv
}

// Guess is a placement attempt: a year and, for collisions, a side.
type Guess struct {
	Year int
	Side Side
}

// Evaluate decides whether the guess is consistent with factYear. The
// effective timeline must be sorted and duplicate free, as returned by
// Effective. A guess equal to factYear is always correct unless it collides,
// in which case the chosen side decides.
func Evaluate(effective []int, g Guess, factYear, currentYear int) (bool, error) {
	if Contains(effective, g.Year) {
		switch g.Side {
		case Before:
			return factYear <= g.Year, nil
		case After:
			return factYear >= g.Year, nil
		}
		return false, ErrDisambiguationRequired
	}

	if factYear == g.Year {
		return true, nil
	}
	return Bounds(effective, g.Year, currentYear).Covers(factYear), nil
}
