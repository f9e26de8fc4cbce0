// Package risk resolves the chance of a bust when the player travels.
package risk

import (
	"context"
	"math"
	"time"

	"github.com/user/dopewars-engine/internal/content"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
	"go.uber.org/zap"
)

// Penalty fraction bounds
const (
	MinCashFraction      = 0.1
	MaxCashFraction      = 0.5
	MinInventoryFraction = 0.2
	MaxInventoryFraction = 1.0
)

// Resolver asks a content source for a bust outcome and sanitizes the answer
type Resolver struct {
	source  content.Source
	tables  *tables.Tables
	timeout time.Duration
	logger  *zap.Logger
}

// NewResolver creates a resolver. A zero timeout disables the deadline.
func NewResolver(source content.Source, t *tables.Tables, timeout time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		source:  source,
		tables:  t,
		timeout: timeout,
		logger:  logger,
	}
}

// ClassifyTerritory places a destination relative to the player's alliance
func ClassifyTerritory(t *tables.Tables, alliance, destination string) types.Territory {
	if alliance == "" {
		return types.TerritoryNeutral
	}
	own, ok := t.Alliance(alliance)
	if !ok {
		return types.TerritoryNeutral
	}
	if own.HomeCity == destination {
		return types.TerritoryAllied
	}
	if rival, ok := t.Alliance(own.Rival); ok && rival.HomeCity == destination {
		return types.TerritoryRival
	}
	return types.TerritoryNeutral
}

// Request builds the risk context for a trip
func (r *Resolver) Request(destination string, player *types.PlayerState) types.BustRequest {
	city, _ := r.tables.City(destination)
	value := 0
	for item, qty := range player.Inventory {
		value += qty * r.tables.BasePrice(item)
	}
	return types.BustRequest{
		Destination:    destination,
		Cash:           player.Cash,
		InventoryValue: value,
		Overseas:       city.Overseas,
		Territory:      ClassifyTerritory(r.tables, player.Alliance, destination),
	}
}

// Resolve returns a clamped bust outcome, or nil for no incident. Source
// failures and malformed outcomes count as no incident.
func (r *Resolver) Resolve(ctx context.Context, req types.BustRequest) *types.BustOutcome {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	outcome, err := r.source.FetchBustEvent(ctx, req)
	if err != nil {
		r.logger.Warn("Bust resolution failed, treating as no incident",
			zap.String("destination", req.Destination),
			zap.Error(err))
		return nil
	}
	if outcome == nil {
		return nil
	}

	clamped, ok := Clamp(*outcome)
	if !ok {
		r.logger.Warn("Malformed bust outcome, treating as no incident",
			zap.String("destination", req.Destination),
			zap.String("penalty_type", string(outcome.PenaltyType)))
		return nil
	}
	return &clamped
}

// Clamp forces the outcome fractions into range. Fractions that do not
// apply to the penalty type are zeroed; missing ones take the minimum.
func Clamp(o types.BustOutcome) (types.BustOutcome, bool) {
	if !o.PenaltyType.Valid() {
		return o, false
	}

	if o.PenaltyType.TakesCash() {
		o.CashFraction = clampFraction(o.CashFraction, MinCashFraction, MaxCashFraction)
	} else {
		o.CashFraction = 0
	}
	if o.PenaltyType.TakesInventory() {
		o.InventoryFraction = clampFraction(o.InventoryFraction, MinInventoryFraction, MaxInventoryFraction)
	} else {
		o.InventoryFraction = 0
	}
	return o, true
}

func clampFraction(v, min, max float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return min
	}
	return math.Max(min, math.Min(max, v))
}
