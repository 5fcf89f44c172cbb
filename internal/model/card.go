package model

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BenefitKind selects the icon shown next to a benefit on the detail card.
type BenefitKind string

const (
	BenefitWater        BenefitKind = "water"
	BenefitCooling      BenefitKind = "cooling"
	BenefitBiodiversity BenefitKind = "biodiversity"
	BenefitGeneral      BenefitKind = "general"
)

// ClassifyBenefit maps a free-text benefit to its icon classes. A benefit
// mentioning several themes gets several classes; one mentioning none is
// general.
func ClassifyBenefit(benefit string) []BenefitKind {
	lower := strings.ToLower(benefit)

	var kinds []BenefitKind
	if strings.Contains(lower, "water") {
		kinds = append(kinds, BenefitWater)
	}
	if strings.Contains(lower, "cool") {
		kinds = append(kinds, BenefitCooling)
	}
	if strings.Contains(lower, "bio") || strings.Contains(lower, "wildlife") {
		kinds = append(kinds, BenefitBiodiversity)
	}
	if len(kinds) == 0 {
		kinds = append(kinds, BenefitGeneral)
	}
	return kinds
}

// CardBenefit is one line of the card's benefit list.
type CardBenefit struct {
	Text  string        `json:"text"`
	Kinds []BenefitKind `json:"kinds"`
}

// Card is the rendered detail view of a selected location.
type Card struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	ImageURL    string        `json:"image_url"`
	Score       string        `json:"score"`
	Description string        `json:"description"`
	Land        string        `json:"land"`
	Residents   string        `json:"residents"`
	Budget      string        `json:"budget"`
	Benefits    []CardBenefit `json:"benefits"`
}

var printer = message.NewPrinter(language.English)

// NewCard renders the detail card for loc.
func NewCard(loc Location) Card {
	benefits := make([]CardBenefit, 0, len(loc.Benefits))
	for _, b := range loc.Benefits {
		benefits = append(benefits, CardBenefit{Text: b, Kinds: ClassifyBenefit(b)})
	}
	return Card{
		ID:          loc.ID,
		Name:        loc.Name,
		ImageURL:    loc.ImageURL,
		Score:       fmt.Sprintf("Score: %s", FormatScore(loc.Score)),
		Description: loc.Description,
		Land:        fmt.Sprintf("%s Owned | %s", loc.Ownership.Label(), loc.Zoning.Label()),
		Residents:   fmt.Sprintf("%s nearby residents", FormatCount(loc.Population)),
		Budget:      fmt.Sprintf("%s budget", FormatBudget(loc.Budget)),
		Benefits:    benefits,
	}
}

// FormatCount renders n with thousands separators ("12,345").
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatBudget renders a dollar amount in millions with one decimal ("$2.5M").
func FormatBudget(dollars int64) string {
	return fmt.Sprintf("$%.1fM", float64(dollars)/1_000_000)
}

// FormatScore trims a trailing ".0" so integral scores print as integers.
func FormatScore(score float64) string {
	if score == float64(int64(score)) {
		return fmt.Sprintf("%d", int64(score))
	}
	return fmt.Sprintf("%g", score)
}
