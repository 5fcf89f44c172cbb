package filter

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sponge-spot/internal/dataset"
	"github.com/sells-group/sponge-spot/internal/model"
)

func sites(t *testing.T) []model.Location {
	t.Helper()
	d, err := dataset.Default()
	require.NoError(t, err)
	return d.All()
}

func isSubsequence(sub, full []int) bool {
	j := 0
	for _, id := range full {
		if j < len(sub) && sub[j] == id {
			j++
		}
	}
	return j == len(sub)
}

func TestApply_DefaultCriteriaReturnsEverything(t *testing.T) {
	all := sites(t)
	got := Apply(all, model.DefaultCriteria())
	assert.Equal(t, all, got)
}

func TestApply_OwnershipPartitions(t *testing.T) {
	all := sites(t)

	gov := model.DefaultCriteria()
	gov.ToggleOwnership(model.OwnershipGovernment)
	for _, loc := range Apply(all, gov) {
		assert.Equal(t, model.OwnershipGovernment, loc.Ownership, "site %d", loc.ID)
	}

	priv := model.DefaultCriteria()
	priv.ToggleOwnership(model.OwnershipPrivate)
	for _, loc := range Apply(all, priv) {
		assert.Equal(t, model.OwnershipPrivate, loc.Ownership, "site %d", loc.ID)
	}

	assert.Equal(t, len(all), len(Apply(all, gov))+len(Apply(all, priv)))
}

func TestApply_ZoningSet(t *testing.T) {
	all := sites(t)

	c := model.DefaultCriteria()
	c.ToggleZoning(model.ZoningIndustrial)
	c.ToggleZoning(model.ZoningResidential)

	got := Apply(all, c)
	require.NotEmpty(t, got)
	for _, loc := range got {
		assert.Contains(t, []model.Zoning{model.ZoningIndustrial, model.ZoningResidential}, loc.Zoning)
	}
}

func TestMatches_PopulationBoundaryInclusive(t *testing.T) {
	loc := model.Location{ID: 1, Ownership: model.OwnershipPrivate, Zoning: model.ZoningCommercial, Population: 5000, Budget: 1}

	c := model.DefaultCriteria()
	c.SetMinPopulation(5000)
	assert.True(t, Matches(loc, c))

	loc.Population = 4999
	assert.False(t, Matches(loc, c))
}

func TestMatches_BudgetBoundaryInclusive(t *testing.T) {
	loc := model.Location{ID: 1, Ownership: model.OwnershipPrivate, Zoning: model.ZoningCommercial, Budget: 3_000_000}

	c := model.DefaultCriteria()
	c.SetMaxBudget(3_000_000)
	assert.True(t, Matches(loc, c))

	loc.Budget = 3_000_001
	assert.False(t, Matches(loc, c))
}

func TestApply_ContradictoryCriteriaYieldEmpty(t *testing.T) {
	c := model.DefaultCriteria()
	c.SetMinPopulation(1_000_000)
	c.SetMaxBudget(0)

	got := Apply(sites(t), c)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApply_UnknownEnumMatchesNothing(t *testing.T) {
	c := model.DefaultCriteria()
	c.Ownership = []model.Ownership{"crown"}

	assert.Empty(t, Apply(sites(t), c))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	all := sites(t)
	before := IDs(all)

	c := model.DefaultCriteria()
	c.ToggleOwnership(model.OwnershipPrivate)
	_ = Apply(all, c)

	assert.Equal(t, before, IDs(all))
}

// Random criteria must always produce an order-preserving subsequence whose
// members all match and whose non-members all fail.
func TestApply_StableSubsequence(t *testing.T) {
	all := sites(t)
	fullIDs := IDs(all)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 500; i++ {
		c := model.DefaultCriteria()
		for _, o := range model.Ownerships {
			if rng.IntN(2) == 0 {
				c.ToggleOwnership(o)
			}
		}
		for _, z := range model.Zonings {
			if rng.IntN(2) == 0 {
				c.ToggleZoning(z)
			}
		}
		c.SetMinPopulation(rng.IntN(50_000))
		c.SetMaxBudget(rng.Int64N(10_000_000))

		got := Apply(all, c)
		require.True(t, isSubsequence(IDs(got), fullIDs), "criteria %+v", c)

		kept := make(map[int]bool, len(got))
		for _, loc := range got {
			kept[loc.ID] = true
		}
		for _, loc := range all {
			assert.Equal(t, kept[loc.ID], Matches(loc, c))
		}
	}
}
