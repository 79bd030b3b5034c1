package geocode

import (
	"cmp"
	"math"
	"slices"
)

// radiusKey treats an unknown radius as +Inf so it loses to any estimate.
func radiusKey(c Candidate) float64 {
	if r, ok := c.Radius(); ok {
		return r
	}
	return math.Inf(1)
}

// Compare orders candidates best first: higher granularity, then smaller
// radius, then higher importance. It returns a negative number when a ranks
// ahead of b and zero on a full tie.
func Compare(a, b Candidate) int {
	if c := cmp.Compare(b.Granularity.Rank(), a.Granularity.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(radiusKey(a), radiusKey(b)); c != 0 {
		return c
	}
	return cmp.Compare(b.Importance, a.Importance)
}

// Rank returns a best-first copy of candidates. Full ties keep input order.
func Rank(candidates []Candidate) []Candidate {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, Compare)
	return ranked
}

// PickBest returns the top-ranked candidate, or nil when there are none.
func PickBest(candidates []Candidate) *Candidate {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if Compare(c, best) < 0 {
			best = c
		}
	}
	return &best
}
