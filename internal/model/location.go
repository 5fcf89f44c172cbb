package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Ownership is the controlling party of a land parcel.
type Ownership string

const (
	OwnershipGovernment Ownership = "government"
	OwnershipPrivate    Ownership = "private"
)

// Ownerships lists every ownership category in display order.
var Ownerships = []Ownership{OwnershipGovernment, OwnershipPrivate}

// Zoning is the designated land-use class of a parcel.
type Zoning string

const (
	ZoningGreenSpace  Zoning = "green-space"
	ZoningCommercial  Zoning = "commercial"
	ZoningIndustrial  Zoning = "industrial"
	ZoningResidential Zoning = "residential"
)

// Zonings lists every zoning category in display order.
var Zonings = []Zoning{ZoningGreenSpace, ZoningCommercial, ZoningIndustrial, ZoningResidential}

// Valid reports whether o is a known ownership category.
func (o Ownership) Valid() bool {
	switch o {
	case OwnershipGovernment, OwnershipPrivate:
		return true
	default:
		return false
	}
}

// Label returns the capitalized display form ("Government").
func (o Ownership) Label() string {
	return titleWords(string(o))
}

// Valid reports whether z is a known zoning category.
func (z Zoning) Valid() bool {
	switch z {
	case ZoningGreenSpace, ZoningCommercial, ZoningIndustrial, ZoningResidential:
		return true
	default:
		return false
	}
}

// Label returns the display form with hyphens spaced out ("Green Space").
func (z Zoning) Label() string {
	return titleWords(strings.ReplaceAll(string(z), "-", " "))
}

// ParseOwnership parses a case-insensitive ownership category.
func ParseOwnership(s string) (Ownership, error) {
	o := Ownership(strings.ToLower(strings.TrimSpace(s)))
	if !o.Valid() {
		return "", eris.Errorf("model: unknown ownership %q", s)
	}
	return o, nil
}

// ParseZoning parses a case-insensitive zoning category. Spaces and
// underscores are accepted in place of the hyphen.
func ParseZoning(s string) (Zoning, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "-", "_", "-").Replace(norm)
	z := Zoning(norm)
	if !z.Valid() {
		return "", eris.Errorf("model: unknown zoning %q", s)
	}
	return z, nil
}

// Coordinates is a WGS84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Valid reports whether the pair lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Location is a candidate sponge site. Records are immutable once the
// dataset is loaded.
type Location struct {
	ID          int         `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Coordinates Coordinates `json:"coordinates" yaml:"coordinates"`
	Description string      `json:"description" yaml:"description"`
	Score       float64     `json:"score" yaml:"score"`
	Benefits    []string    `json:"benefits" yaml:"benefits"`
	ImageURL    string      `json:"image_url" yaml:"image_url"`
	Ownership   Ownership   `json:"ownership" yaml:"ownership"`
	Zoning      Zoning      `json:"zoning" yaml:"zoning"`
	Population  int         `json:"population" yaml:"population"`
	Budget      int64       `json:"budget" yaml:"budget"` // whole dollars
	Factors     Factors     `json:"factors" yaml:"factors"`
}

// MaxHeatIsland is the upper bound of Factors.HeatIsland in degrees Celsius.
const MaxHeatIsland = 5.0

// Factors are the site conditions the suitability scorer weighs. All fields
// except HeatIsland are fractions in [0, 1].
type Factors struct {
	FloodRisk         float64 `json:"flood_risk" yaml:"flood_risk"`
	GreenSpaceDensity float64 `json:"green_space_density" yaml:"green_space_density"`
	HeatIsland        float64 `json:"heat_island_c" yaml:"heat_island_c"` // °C above baseline
	SoilPermeability  float64 `json:"soil_permeability" yaml:"soil_permeability"`
	LandAvailability  float64 `json:"land_availability" yaml:"land_availability"`
	CommunitySupport  float64 `json:"community_support" yaml:"community_support"`
}

// Validate checks every factor is within its range.
func (f Factors) Validate() error {
	fractions := []struct {
		name  string
		value float64
	}{
		{"flood_risk", f.FloodRisk},
		{"green_space_density", f.GreenSpaceDensity},
		{"soil_permeability", f.SoilPermeability},
		{"land_availability", f.LandAvailability},
		{"community_support", f.CommunitySupport},
	}
	for _, fr := range fractions {
		if fr.value < 0 || fr.value > 1 {
			return eris.Errorf("model: %s %.2f is outside [0, 1]", fr.name, fr.value)
		}
	}
	if f.HeatIsland < 0 || f.HeatIsland > MaxHeatIsland {
		return eris.Errorf("model: heat_island_c %.2f is outside [0, %.0f]", f.HeatIsland, MaxHeatIsland)
	}
	return nil
}

// Clone returns a deep copy so callers cannot alias the benefit slice.
func (l Location) Clone() Location {
	out := l
	if l.Benefits != nil {
		out.Benefits = append([]string(nil), l.Benefits...)
	}
	return out
}

// Validate checks the record's enums and numeric ranges.
func (l Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return eris.Errorf("model: location %d has no name", l.ID)
	}
	if !l.Ownership.Valid() {
		return eris.Errorf("model: location %d has unknown ownership %q", l.ID, l.Ownership)
	}
	if !l.Zoning.Valid() {
		return eris.Errorf("model: location %d has unknown zoning %q", l.ID, l.Zoning)
	}
	if l.Population < 0 {
		return eris.Errorf("model: location %d has negative population %d", l.ID, l.Population)
	}
	if l.Budget < 0 {
		return eris.Errorf("model: location %d has negative budget %d", l.ID, l.Budget)
	}
	if err := l.Factors.Validate(); err != nil {
		return eris.Wrapf(err, "model: location %d", l.ID)
	}
	if !l.Coordinates.Valid() {
		return eris.Errorf("model: location %d has out-of-range coordinates (%f, %f)",
			l.ID, l.Coordinates.Lat, l.Coordinates.Lon)
	}
	return nil
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
