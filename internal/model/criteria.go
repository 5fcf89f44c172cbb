package model

import "slices"

const (
	// DefaultMinPopulation accepts every site regardless of population.
	DefaultMinPopulation = 0
	// DefaultMaxBudget is the ceiling of the budget slider.
	DefaultMaxBudget int64 = 10_000_000
)

// Range describes a slider domain offered to clients.
type Range struct {
	Min  int64 `json:"min"`
	Max  int64 `json:"max"`
	Step int64 `json:"step"`
}

var (
	// PopulationRange is the domain of the minimum-population control.
	PopulationRange = Range{Min: 0, Max: 50_000, Step: 1}
	// BudgetRange is the domain of the maximum-budget control.
	BudgetRange = Range{Min: 1_000_000, Max: DefaultMaxBudget, Step: 100_000}
)

// Criteria is the conjunctive filter a session applies to the dataset.
// An empty Ownership or Zoning set accepts every value. Both thresholds are
// inclusive.
type Criteria struct {
	Ownership     []Ownership `json:"ownership"`
	Zoning        []Zoning    `json:"zoning"`
	MinPopulation int         `json:"min_population"`
	MaxBudget     int64       `json:"max_budget"`
}

// DefaultCriteria accepts the whole dataset.
func DefaultCriteria() Criteria {
	return Criteria{
		Ownership:     []Ownership{},
		Zoning:        []Zoning{},
		MinPopulation: DefaultMinPopulation,
		MaxBudget:     DefaultMaxBudget,
	}
}

// Clone returns a copy that shares no slices with c.
func (c Criteria) Clone() Criteria {
	out := c
	out.Ownership = append([]Ownership{}, c.Ownership...)
	out.Zoning = append([]Zoning{}, c.Zoning...)
	return out
}

// ToggleOwnership removes o when present and appends it otherwise.
func (c *Criteria) ToggleOwnership(o Ownership) {
	if i := slices.Index(c.Ownership, o); i >= 0 {
		c.Ownership = slices.Delete(c.Ownership, i, i+1)
		return
	}
	c.Ownership = append(c.Ownership, o)
}

// ToggleZoning removes z when present and appends it otherwise.
func (c *Criteria) ToggleZoning(z Zoning) {
	if i := slices.Index(c.Zoning, z); i >= 0 {
		c.Zoning = slices.Delete(c.Zoning, i, i+1)
		return
	}
	c.Zoning = append(c.Zoning, z)
}

// SetMinPopulation replaces the inclusive population lower bound.
func (c *Criteria) SetMinPopulation(n int) {
	c.MinPopulation = n
}

// SetMaxBudget replaces the inclusive budget upper bound.
func (c *Criteria) SetMaxBudget(n int64) {
	c.MaxBudget = n
}
