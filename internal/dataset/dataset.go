// Package dataset holds the static catalog of candidate sponge sites. A
// Dataset is built once at startup and never mutated afterwards; every
// accessor hands out copies.
package dataset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sponge-spot/internal/model"
)

//go:embed locations.yaml
var embedded []byte

// Dataset is an immutable, ordered collection of locations.
type Dataset struct {
	locations []model.Location
	byID      map[int]int
}

type document struct {
	Locations []model.Location `yaml:"locations" json:"locations"`
}

// New validates locs and builds a Dataset that owns a private copy of them.
func New(locs []model.Location) (*Dataset, error) {
	if len(locs) == 0 {
		return nil, eris.New("dataset: no locations")
	}

	d := &Dataset{
		locations: make([]model.Location, 0, len(locs)),
		byID:      make(map[int]int, len(locs)),
	}
	for _, loc := range locs {
		if err := loc.Validate(); err != nil {
			return nil, eris.Wrap(err, "dataset: invalid location")
		}
		if _, dup := d.byID[loc.ID]; dup {
			return nil, eris.Errorf("dataset: duplicate location id %d", loc.ID)
		}
		d.byID[loc.ID] = len(d.locations)
		d.locations = append(d.locations, loc.Clone())
	}
	return d, nil
}

// Load decodes a YAML document with a top-level "locations" list.
func Load(r io.Reader) (*Dataset, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "dataset: decode yaml")
	}
	return New(doc.Locations)
}

// LoadJSON decodes a JSON document with a top-level "locations" array.
func LoadJSON(r io.Reader) (*Dataset, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "dataset: decode json")
	}
	return New(doc.Locations)
}

// LoadFile loads a dataset from path, as JSON when the extension is .json
// and YAML otherwise. An empty path selects the catalog compiled into the
// binary.
func LoadFile(path string) (*Dataset, error) {
	if path == "" {
		return Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer func() { _ = f.Close() }()

	load := Load
	if strings.EqualFold(filepath.Ext(path), ".json") {
		load = LoadJSON
	}
	d, err := load(f)
	if err != nil {
		return nil, err
	}
	zap.L().Info("dataset loaded", zap.String("path", path), zap.Int("locations", d.Len()))
	return d, nil
}

// Default returns the embedded Toronto catalog.
func Default() (*Dataset, error) {
	return Load(bytes.NewReader(embedded))
}

// Len returns the number of locations.
func (d *Dataset) Len() int {
	return len(d.locations)
}

// All returns a copy of every location in dataset order.
func (d *Dataset) All() []model.Location {
	out := make([]model.Location, len(d.locations))
	for i, loc := range d.locations {
		out[i] = loc.Clone()
	}
	return out
}

// At returns the location at index i.
func (d *Dataset) At(i int) (model.Location, bool) {
	if i < 0 || i >= len(d.locations) {
		return model.Location{}, false
	}
	return d.locations[i].Clone(), true
}

// ByID looks up a location by its identifier.
func (d *Dataset) ByID(id int) (model.Location, bool) {
	i, ok := d.byID[id]
	if !ok {
		return model.Location{}, false
	}
	return d.locations[i].Clone(), true
}

// First returns the default selection.
func (d *Dataset) First() model.Location {
	return d.locations[0].Clone()
}
