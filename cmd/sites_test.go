package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sponge-spot/internal/model"
)

func newFilterCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addFilterFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestCriteriaFromFlags_Defaults(t *testing.T) {
	defaults := model.DefaultCriteria()
	defaults.MinPopulation = 100

	c, err := criteriaFromFlags(newFilterCmd(t), defaults)
	require.NoError(t, err)
	assert.Equal(t, 100, c.MinPopulation)
	assert.Equal(t, model.DefaultMaxBudget, c.MaxBudget)
	assert.Empty(t, c.Ownership)
	assert.Empty(t, c.Zoning)
}

func TestCriteriaFromFlags_Overrides(t *testing.T) {
	cmd := newFilterCmd(t,
		"--ownership", "government",
		"--zoning", "green-space,Residential",
		"--min-population", "20000",
		"--max-budget", "3000000",
	)

	c, err := criteriaFromFlags(cmd, model.DefaultCriteria())
	require.NoError(t, err)
	assert.Equal(t, []model.Ownership{model.OwnershipGovernment}, c.Ownership)
	assert.Equal(t, []model.Zoning{model.ZoningGreenSpace, model.ZoningResidential}, c.Zoning)
	assert.Equal(t, 20000, c.MinPopulation)
	assert.Equal(t, int64(3_000_000), c.MaxBudget)
}

func TestCriteriaFromFlags_UnknownValue(t *testing.T) {
	_, err := criteriaFromFlags(newFilterCmd(t, "--zoning", "agricultural"), model.DefaultCriteria())
	assert.Error(t, err)

	_, err = criteriaFromFlags(newFilterCmd(t, "--ownership", "crown"), model.DefaultCriteria())
	assert.Error(t, err)
}

func TestFormatSitesTable(t *testing.T) {
	var buf bytes.Buffer
	formatSitesTable(&buf, []model.Location{{
		ID:         4,
		Name:       "Regent Park Courtyard Wetland",
		Ownership:  model.OwnershipGovernment,
		Zoning:     model.ZoningResidential,
		Population: 31000,
		Budget:     1_600_000,
		Score:      91,
	}})

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "Regent Park Courtyard Wetland")
	assert.Contains(t, out, "31,000")
	assert.Contains(t, out, "$1.6M")
	assert.Contains(t, out, "Residential")
}

func TestFormatCard(t *testing.T) {
	card := model.NewCard(model.Location{
		ID:          1,
		Name:        "Grange Park Rain Garden",
		Description: "Rain garden beside the park.",
		Ownership:   model.OwnershipGovernment,
		Zoning:      model.ZoningGreenSpace,
		Population:  18500,
		Budget:      2_400_000,
		Score:       88,
		Benefits:    []string{"Stormwater capture", "Urban cooling"},
	})

	var buf bytes.Buffer
	formatCard(&buf, card)
	out := buf.String()

	assert.Contains(t, out, "Grange Park Rain Garden (#1)")
	assert.Contains(t, out, "Score: 88")
	assert.Contains(t, out, "Government Owned | Green Space")
	assert.Contains(t, out, "18,500 nearby residents")
	assert.Contains(t, out, "$2.4M budget")
	assert.Contains(t, out, "[water] Stormwater capture")
	assert.Contains(t, out, "[cooling] Urban cooling")
}

func TestWriteJSONOut(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeJSONOut(&buf, map[string]int{"id": 3}))
	assert.JSONEq(t, `{"id":3}`, buf.String())
}
