package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sponge-spot/internal/model"
)

func TestDefault(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	// Startup re-selection draws from index 1..15, so the catalog must be
	// at least 16 long.
	assert.GreaterOrEqual(t, d.Len(), 16)

	first := d.First()
	assert.Equal(t, 1, first.ID)
	assert.Equal(t, "Grange Park Rain Garden", first.Name)

	seen := map[int]bool{}
	for _, loc := range d.All() {
		assert.False(t, seen[loc.ID], "duplicate id %d", loc.ID)
		seen[loc.ID] = true
		assert.NoError(t, loc.Validate())
	}
}

func TestByIDAndAt(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	loc, ok := d.ByID(3)
	require.True(t, ok)
	assert.Equal(t, model.ZoningIndustrial, loc.Zoning)

	_, ok = d.ByID(9999)
	assert.False(t, ok)

	at, ok := d.At(2)
	require.True(t, ok)
	assert.Equal(t, loc, at)

	_, ok = d.At(-1)
	assert.False(t, ok)
	_, ok = d.At(d.Len())
	assert.False(t, ok)
}

func TestAll_ReturnsCopy(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)

	all := d.All()
	all[0].Name = "mutated"
	all[0].Benefits[0] = "mutated"

	first := d.First()
	assert.NotEqual(t, "mutated", first.Name)
	assert.NotEqual(t, "mutated", first.Benefits[0])
}

func TestNew_RejectsDuplicateIDs(t *testing.T) {
	loc := model.Location{
		ID: 1, Name: "a", Ownership: model.OwnershipPrivate, Zoning: model.ZoningCommercial,
	}
	_, err := New([]model.Location{loc, loc})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate location id 1")
}

func TestNew_RejectsEmpty(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownEnum(t *testing.T) {
	doc := `
locations:
  - id: 1
    name: Somewhere
    coordinates: {lat: 43.6, lon: -79.4}
    ownership: crown
    zoning: commercial
`
	_, err := Load(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown ownership")
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	doc := `
locations:
  - id: 1
    name: Somewhere
    acreage: 12
`
	_, err := Load(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.yaml")
	doc := `
locations:
  - id: 42
    name: Test Site
    coordinates: {lat: 43.7, lon: -79.4}
    score: 50
    benefits: [Water]
    ownership: government
    zoning: residential
    population: 10
    budget: 20
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	d, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, 42, d.First().ID)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_EmptyPathUsesEmbedded(t *testing.T) {
	d, err := LoadFile("")
	require.NoError(t, err)

	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, def.Len(), d.Len())
}
