package geospatial

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"

	"github.com/sells-group/sponge-spot/internal/model"
)

const (
	tolerance   = 1e-6
	minChildren = 2
	maxChildren = 8
	dimensions  = 2
	earthRadius = 6371.0 // km
)

// BBox represents a geographic bounding box.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// Validate rejects inverted or out-of-range boxes.
func (b BBox) Validate() error {
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return eris.Errorf("geo: inverted bbox %+v", b)
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLng < -180 || b.MaxLng > 180 {
		return eris.Errorf("geo: bbox out of range %+v", b)
	}
	return nil
}

// Contains reports whether c lies inside b, edges included.
func (b BBox) Contains(c model.Coordinates) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLng && c.Lon <= b.MaxLng
}

// siteItem wraps a location to implement rtreego.Spatial.
type siteItem struct {
	id     int
	coords model.Coordinates
	rect   *rtreego.Rect
}

func (s *siteItem) Bounds() *rtreego.Rect {
	return s.rect
}

// Index is an R-Tree over location coordinates. It is built once and is
// read-only afterwards, so it needs no locking.
type Index struct {
	tree  *rtreego.Rtree
	order map[int]int
}

// Neighbor is a location id with its great-circle distance from a query point.
type Neighbor struct {
	ID         int     `json:"id"`
	DistanceKm float64 `json:"distance_km"`
}

// NewIndex indexes locations; order records dataset position for stable
// result ordering.
func NewIndex(locations []model.Location) *Index {
	idx := &Index{
		tree:  rtreego.NewTree(dimensions, minChildren, maxChildren),
		order: make(map[int]int, len(locations)),
	}
	for i, loc := range locations {
		p := rtreego.Point{loc.Coordinates.Lon, loc.Coordinates.Lat}
		idx.tree.Insert(&siteItem{id: loc.ID, coords: loc.Coordinates, rect: p.ToRect(tolerance)})
		idx.order[loc.ID] = i
	}
	return idx
}

// Size returns the number of indexed locations.
func (x *Index) Size() int {
	return x.tree.Size()
}

// Within returns the ids of locations inside bbox in dataset order.
func (x *Index) Within(bbox BBox) ([]int, error) {
	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	items, err := x.search(bbox)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.id)
	}
	sort.Slice(ids, func(i, j int) bool { return x.order[ids[i]] < x.order[ids[j]] })
	return ids, nil
}

// search returns the items inside bbox, edges included, in tree order.
func (x *Index) search(bbox BBox) ([]*siteItem, error) {
	// rtreego rejects zero-length sides; pad degenerate boxes.
	lengths := []float64{
		math.Max(bbox.MaxLng-bbox.MinLng, tolerance),
		math.Max(bbox.MaxLat-bbox.MinLat, tolerance),
	}
	rect, err := rtreego.NewRect(rtreego.Point{bbox.MinLng, bbox.MinLat}, lengths)
	if err != nil {
		return nil, eris.Wrap(err, "geo: build search rect")
	}

	var items []*siteItem
	for _, hit := range x.tree.SearchIntersect(rect) {
		item, ok := hit.(*siteItem)
		if !ok || !bbox.Contains(item.coords) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Nearest returns up to k locations ordered by haversine distance from
// (lat, lon). Ties keep dataset order.
func (x *Index) Nearest(lat, lon float64, k int) []Neighbor {
	if k <= 0 || x.Size() == 0 {
		return nil
	}
	k = min(k, x.Size())

	// The tree ranks by planar degrees, which shrinks east-west distances.
	// Its k nearest bound the search radius; every site within that radius
	// on the sphere is then ranked by haversine distance.
	var radius float64
	for _, hit := range x.tree.NearestNeighbors(k, rtreego.Point{lon, lat}) {
		if item, ok := hit.(*siteItem); ok {
			radius = math.Max(radius, Haversine(lat, lon, item.coords.Lat, item.coords.Lon))
		}
	}

	items, err := x.search(boundingBox(lat, lon, radius*(1+tolerance)+tolerance))
	if err != nil {
		return nil
	}

	out := make([]Neighbor, 0, len(items))
	for _, item := range items {
		out = append(out, Neighbor{
			ID:         item.id,
			DistanceKm: Haversine(lat, lon, item.coords.Lat, item.coords.Lon),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm == out[j].DistanceKm {
			return x.order[out[i].ID] < x.order[out[j].ID]
		}
		return out[i].DistanceKm < out[j].DistanceKm
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// boundingBox returns the smallest lat/lon box holding every point within
// radiusKm of (lat, lon) on the sphere. Boxes reaching a pole or the
// antimeridian span all longitudes.
func boundingBox(lat, lon, radiusKm float64) BBox {
	angular := radiusKm / earthRadius
	dLat := angular * 180 / math.Pi

	box := BBox{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	if box.MinLat == -90 || box.MaxLat == 90 {
		return box
	}

	cosLat := math.Cos(lat * math.Pi / 180)
	if math.Sin(angular) >= cosLat {
		return box
	}
	dLon := math.Asin(math.Sin(angular)/cosLat) * 180 / math.Pi
	if lon-dLon < -180 || lon+dLon > 180 {
		return box
	}
	box.MinLng = lon - dLon
	box.MaxLng = lon + dLon
	return box
}

// Clip keeps the locations whose ids are in the index result, preserving the
// order of locations.
func Clip(locations []model.Location, ids []int) []model.Location {
	keep := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}
	out := make([]model.Location, 0, len(locations))
	for _, loc := range locations {
		if _, ok := keep[loc.ID]; ok {
			out = append(out, loc)
		}
	}
	return out
}

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
