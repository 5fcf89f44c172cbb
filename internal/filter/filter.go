// Package filter implements the conjunctive site filter. It is pure: the
// input slice is never modified and results keep dataset order.
package filter

import (
	"slices"

	"github.com/sells-group/sponge-spot/internal/model"
)

// Matches reports whether loc satisfies every predicate in c.
func Matches(loc model.Location, c model.Criteria) bool {
	if len(c.Ownership) > 0 && !slices.Contains(c.Ownership, loc.Ownership) {
		return false
	}
	if len(c.Zoning) > 0 && !slices.Contains(c.Zoning, loc.Zoning) {
		return false
	}
	if loc.Population < c.MinPopulation {
		return false
	}
	return loc.Budget <= c.MaxBudget
}

// Apply returns the ordered subsequence of locations that match c.
// Contradictory criteria are not an error; they just select nothing.
func Apply(locations []model.Location, c model.Criteria) []model.Location {
	out := make([]model.Location, 0, len(locations))
	for _, loc := range locations {
		if Matches(loc, c) {
			out = append(out, loc)
		}
	}
	return out
}

// IDs returns the identifiers of locations in order.
func IDs(locations []model.Location) []int {
	ids := make([]int, len(locations))
	for i, loc := range locations {
		ids[i] = loc.ID
	}
	return ids
}
