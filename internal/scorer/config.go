// Package scorer ranks candidate sites by a weighted sponge-park suitability
// score.
package scorer

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sponge-spot/internal/config"
	"github.com/sells-group/sponge-spot/internal/model"
)

// DefaultScorerConfig returns a config.ScorerConfig with sensible defaults.
// Weights sum to 100.
func DefaultScorerConfig() config.ScorerConfig {
	return config.ScorerConfig{
		// Weights (sum = 100).
		FloodRiskWeight:        25,
		PopulationWeight:       15,
		GreenSpaceWeight:       10,
		HeatIslandWeight:       15,
		SoilPermeabilityWeight: 15,
		LandAvailabilityWeight: 10,
		CommunitySupportWeight: 10,

		PopulationCap: int(model.PopulationRange.Max),

		// Thresholds.
		MinScore:        0,
		Recommendations: 5,
	}
}

// WeightSum returns the sum of all component weights.
func WeightSum(c config.ScorerConfig) float64 {
	return c.FloodRiskWeight + c.PopulationWeight + c.GreenSpaceWeight +
		c.HeatIslandWeight + c.SoilPermeabilityWeight + c.LandAvailabilityWeight +
		c.CommunitySupportWeight
}

// ValidateConfig checks that a ScorerConfig is internally consistent.
func ValidateConfig(c config.ScorerConfig) error {
	var errs []string

	weights := []struct {
		name  string
		value float64
	}{
		{"flood_risk_weight", c.FloodRiskWeight},
		{"population_weight", c.PopulationWeight},
		{"green_space_weight", c.GreenSpaceWeight},
		{"heat_island_weight", c.HeatIslandWeight},
		{"soil_permeability_weight", c.SoilPermeabilityWeight},
		{"land_availability_weight", c.LandAvailabilityWeight},
		{"community_support_weight", c.CommunitySupportWeight},
	}
	for _, w := range weights {
		if w.value < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", w.name))
		}
	}

	// Weights should be close to 100 (allow tolerance for floating-point).
	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	} else if math.Abs(sum-100) > 1 {
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %.1f", sum))
	}

	if c.PopulationCap <= 0 {
		errs = append(errs, "population_cap must be > 0")
	}
	if c.MinScore < 0 || c.MinScore > 100 {
		errs = append(errs, "min_score must be between 0 and 100")
	}
	if c.Recommendations < 0 {
		errs = append(errs, "recommendations must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
