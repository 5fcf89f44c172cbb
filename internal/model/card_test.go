package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyBenefit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		benefit string
		want    []BenefitKind
	}{
		{"Stormwater retention", []BenefitKind{BenefitWater}},
		{"Urban cooling", []BenefitKind{BenefitCooling}},
		{"Biodiversity corridor", []BenefitKind{BenefitBiodiversity}},
		{"Wildlife habitat", []BenefitKind{BenefitBiodiversity}},
		{"Cooler water for wildlife", []BenefitKind{BenefitWater, BenefitCooling, BenefitBiodiversity}},
		{"Community gathering space", []BenefitKind{BenefitGeneral}},
	}

	for _, tt := range tests {
		t.Run(tt.benefit, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ClassifyBenefit(tt.benefit))
		})
	}
}

func TestFormatBudget(t *testing.T) {
	assert.Equal(t, "$2.5M", FormatBudget(2_500_000))
	assert.Equal(t, "$10.0M", FormatBudget(10_000_000))
	assert.Equal(t, "$0.0M", FormatBudget(0))
	assert.Equal(t, "$1.3M", FormatBudget(1_250_001))
}

func TestFormatCount(t *testing.T) {
	assert.Equal(t, "0", FormatCount(0))
	assert.Equal(t, "999", FormatCount(999))
	assert.Equal(t, "12,345", FormatCount(12345))
	assert.Equal(t, "1,234,567", FormatCount(1234567))
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "92", FormatScore(92))
	assert.Equal(t, "87.5", FormatScore(87.5))
}

func TestNewCard(t *testing.T) {
	loc := validLocation()
	loc.Score = 88
	loc.Benefits = []string{"Stormwater capture", "Shade"}

	card := NewCard(loc)

	assert.Equal(t, 7, card.ID)
	assert.Equal(t, "Grange Park", card.Name)
	assert.Equal(t, "Score: 88", card.Score)
	assert.Equal(t, "Government Owned | Green Space", card.Land)
	assert.Equal(t, "1,200 nearby residents", card.Residents)
	assert.Equal(t, "$2.5M budget", card.Budget)
	assert.Len(t, card.Benefits, 2)
	assert.Equal(t, []BenefitKind{BenefitWater}, card.Benefits[0].Kinds)
	assert.Equal(t, []BenefitKind{BenefitGeneral}, card.Benefits[1].Kinds)
}
