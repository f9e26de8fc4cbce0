// Package market derives the daily price matrix and runs the market event
// scheduler.
package market

import (
	"math"
	"math/rand"

	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

// PricingModel generates daily prices from the content tables
type PricingModel struct {
	tables *tables.Tables
	jitter float64
}

// NewPricingModel creates a pricing model with the given jitter half-width
func NewPricingModel(t *tables.Tables, jitter float64) *PricingModel {
	if jitter < 0 {
		jitter = 0
	}
	return &PricingModel{tables: t, jitter: jitter}
}

// GeneratePrices builds a fresh matrix for every city and item. Cities and
// items are visited in table order so a seeded source yields the same matrix.
func (m *PricingModel) GeneratePrices(rng *rand.Rand) types.PriceMatrix {
	prices := make(types.PriceMatrix, len(m.tables.Cities))
	for _, city := range m.tables.Cities {
		row := make(map[string]int, len(m.tables.Items))
		for _, item := range m.tables.Items {
			jitter := (rng.Float64()*2 - 1) * m.jitter
			price := math.Round(float64(item.BasePrice) * m.tables.Modifier(city.Name, item.Name) * (1 + jitter))
			row[item.Name] = floorPrice(price)
		}
		prices[city.Name] = row
	}
	return prices
}

// MaxPrice is the largest price GeneratePrices can produce for an item
func (m *PricingModel) MaxPrice(item string) int {
	base := float64(m.tables.BasePrice(item))
	return int(math.Round(base * m.tables.MaxModifier(item) * (1 + m.jitter)))
}

func floorPrice(p float64) int {
	if p < 1 {
		return 1
	}
	return int(p)
}
