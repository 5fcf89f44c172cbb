package api

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sponge-spot/internal/geospatial"
	"github.com/sells-group/sponge-spot/internal/model"
	"github.com/sells-group/sponge-spot/internal/scorer"
)

// splitValues flattens repeated and comma-separated query values.
func splitValues(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ParseCriteria reads filter criteria from query parameters. Absent
// parameters keep the values from defaults.
func ParseCriteria(q url.Values, defaults model.Criteria) (model.Criteria, error) {
	c := defaults.Clone()

	if raw := splitValues(q["ownership"]); len(raw) > 0 {
		c.Ownership = c.Ownership[:0]
		for _, s := range raw {
			o, err := model.ParseOwnership(s)
			if err != nil {
				return model.Criteria{}, err
			}
			if !slices.Contains(c.Ownership, o) {
				c.Ownership = append(c.Ownership, o)
			}
		}
	}

	if raw := splitValues(q["zoning"]); len(raw) > 0 {
		c.Zoning = c.Zoning[:0]
		for _, s := range raw {
			z, err := model.ParseZoning(s)
			if err != nil {
				return model.Criteria{}, err
			}
			if !slices.Contains(c.Zoning, z) {
				c.Zoning = append(c.Zoning, z)
			}
		}
	}

	if s := q.Get("min_population"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return model.Criteria{}, eris.Errorf("api: min_population must be an integer, got %q", s)
		}
		c.SetMinPopulation(n)
	}

	if s := q.Get("max_budget"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return model.Criteria{}, eris.Errorf("api: max_budget must be an integer, got %q", s)
		}
		c.SetMaxBudget(n)
	}

	return c, nil
}

// ParseRankOptions reads limit and min_score for recommendations. Absent
// values fall back to the scorer's configuration.
func ParseRankOptions(q url.Values) (scorer.RankOptions, error) {
	var opts scorer.RankOptions

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return scorer.RankOptions{}, eris.Errorf("api: limit must be a positive integer, got %q", s)
		}
		opts.Limit = n
	}

	if s := q.Get("min_score"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 || v > 100 {
			return scorer.RankOptions{}, eris.Errorf("api: min_score must be a number between 0 and 100, got %q", s)
		}
		opts.MinScore = v
	}

	return opts, nil
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat".
func ParseBBox(s string) (geospatial.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geospatial.BBox{}, eris.Errorf("api: bbox needs 4 comma-separated numbers, got %q", s)
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geospatial.BBox{}, eris.Errorf("api: bbox value %q is not a number", p)
		}
		vals[i] = v
	}
	b := geospatial.BBox{MinLng: vals[0], MinLat: vals[1], MaxLng: vals[2], MaxLat: vals[3]}
	if err := b.Validate(); err != nil {
		return geospatial.BBox{}, err
	}
	return b, nil
}
