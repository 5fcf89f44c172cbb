package geospatial

import (
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/sponge-spot/internal/model"
)

// Point converts coordinates to a WGS84 go-geom point (x=lon, y=lat).
func Point(c model.Coordinates) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat}).SetSRID(4326)
}

// Feature renders a location as a GeoJSON point feature for a map marker.
func Feature(loc model.Location) *geojson.Feature {
	return &geojson.Feature{
		ID:       strconv.Itoa(loc.ID),
		Geometry: Point(loc.Coordinates),
		Properties: map[string]any{
			"id":         loc.ID,
			"name":       loc.Name,
			"score":      loc.Score,
			"ownership":  string(loc.Ownership),
			"zoning":     string(loc.Zoning),
			"population": loc.Population,
			"budget":     loc.Budget,
		},
	}
}

// FeatureCollection renders locations in order. The bounding box is set
// when there is at least one feature.
func FeatureCollection(locations []model.Location) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(locations))}
	if len(locations) == 0 {
		return fc
	}

	bounds := geom.NewBounds(geom.XY)
	for _, loc := range locations {
		f := Feature(loc)
		bounds.Extend(f.Geometry)
		fc.Features = append(fc.Features, f)
	}
	fc.BBox = bounds
	return fc
}
