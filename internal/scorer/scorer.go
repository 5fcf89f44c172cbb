package scorer

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/sponge-spot/internal/config"
	"github.com/sells-group/sponge-spot/internal/model"
)

// Component names, shared by ComponentScores and the weights.
const (
	ComponentFloodRisk        = "flood_risk"
	ComponentPopulation       = "population"
	ComponentGreenSpace       = "green_space"
	ComponentHeatIsland       = "heat_island"
	ComponentSoilPermeability = "soil_permeability"
	ComponentLandAvailability = "land_availability"
	ComponentCommunitySupport = "community_support"
)

// SiteScore holds the suitability result for a single site.
type SiteScore struct {
	ID              int                `json:"id"`
	Name            string             `json:"name"`
	Coordinates     model.Coordinates  `json:"coordinates"`
	Score           float64            `json:"score"`
	ComponentScores map[string]float64 `json:"component_scores"`
	Passed          bool               `json:"passed"`
}

// RankOptions overrides the configured threshold and result count.
type RankOptions struct {
	MinScore float64 `json:"min_score,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

// Scorer computes suitability scores. It holds no mutable state.
type Scorer struct {
	cfg config.ScorerConfig
}

// New creates a Scorer with the given config.
func New(cfg config.ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() config.ScorerConfig {
	return s.cfg
}

// ScoreOne scores a single site.
func (s *Scorer) ScoreOne(loc model.Location) SiteScore {
	score := computeScore(loc, s.cfg)
	score.Passed = score.Score >= s.cfg.MinScore
	return score
}

// Rank scores locations and returns those at or above the threshold, best
// first. Equal scores keep input order. A zero Limit in opts falls back to
// the configured recommendation count; a negative one returns every match.
func (s *Scorer) Rank(locations []model.Location, opts *RankOptions) []SiteScore {
	minScore := s.cfg.MinScore
	limit := s.cfg.Recommendations
	if opts != nil {
		if opts.MinScore > 0 {
			minScore = opts.MinScore
		}
		if opts.Limit != 0 {
			limit = opts.Limit
		}
	}

	results := make([]SiteScore, 0, len(locations))
	for _, loc := range locations {
		score := computeScore(loc, s.cfg)
		if score.Score < minScore {
			continue
		}
		score.Passed = true
		results = append(results, score)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	zap.L().Debug("scorer: ranked sites",
		zap.Int("sites_scored", len(locations)),
		zap.Int("sites_returned", len(results)),
	)
	return results
}

// computeScore calculates the 0-100 weighted suitability of a site.
func computeScore(loc model.Location, cfg config.ScorerConfig) SiteScore {
	f := loc.Factors
	components := map[string]float64{
		ComponentFloodRisk:        clamp01(f.FloodRisk),
		ComponentPopulation:       scorePopulation(loc.Population, cfg.PopulationCap),
		ComponentGreenSpace:       clamp01(f.GreenSpaceDensity),
		ComponentHeatIsland:       clamp01(f.HeatIsland / model.MaxHeatIsland),
		ComponentSoilPermeability: clamp01(f.SoilPermeability),
		ComponentLandAvailability: clamp01(f.LandAvailability),
		ComponentCommunitySupport: clamp01(f.CommunitySupport),
	}

	weights := map[string]float64{
		ComponentFloodRisk:        cfg.FloodRiskWeight,
		ComponentPopulation:       cfg.PopulationWeight,
		ComponentGreenSpace:       cfg.GreenSpaceWeight,
		ComponentHeatIsland:       cfg.HeatIslandWeight,
		ComponentSoilPermeability: cfg.SoilPermeabilityWeight,
		ComponentLandAvailability: cfg.LandAvailabilityWeight,
		ComponentCommunitySupport: cfg.CommunitySupportWeight,
	}

	weightSum := WeightSum(cfg)
	var total float64
	for k, component := range components {
		total += component * weights[k]
	}

	// Normalize to 0-100 scale.
	if weightSum > 0 {
		total = (total / weightSum) * 100
	}

	return SiteScore{
		ID:              loc.ID,
		Name:            loc.Name,
		Coordinates:     loc.Coordinates,
		Score:           math.Round(total*100) / 100, // 2 decimal places
		ComponentScores: components,
	}
}

// scorePopulation returns 0.0-1.0, reaching 1 at the population cap.
func scorePopulation(population, popCap int) float64 {
	if popCap <= 0 {
		return 0
	}
	return clamp01(float64(population) / float64(popCap))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
