package content

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

// Bust probabilities per territory; overseas trips never go below OverseasBustChance
const (
	AlliedBustChance   = 0.015
	NeutralBustChance  = 0.05
	RivalBustChance    = 0.225
	OverseasBustChance = 0.125
)

var (
	shortageTemplates = []string{
		"Cops seized a huge stash of %s",
		"A supplier of %s got whacked",
		"Addicts are buying up all the %s",
		"The %s connect skipped town",
	}
	glutTemplates = []string{
		"A rival gang is dumping cheap %s",
		"A new lab is flooding the streets with %s",
		"A shipment of %s slipped past customs",
	}
	bustDescriptions = map[types.PenaltyType][]string{
		types.PenaltyCash: {
			"Crooked cops shook you down at a checkpoint.",
			"A mugger jumped you outside the station.",
		},
		types.PenaltyInventory: {
			"A drug dog sniffed out part of your load.",
			"You had to ditch some product when the heat showed up.",
		},
		types.PenaltyBoth: {
			"The Feds raided your motel room.",
			"Customs tore your luggage apart.",
		},
	}
)

// OfflineSource generates content locally from templates and fixed odds
type OfflineSource struct {
	tables *tables.Tables

	mu  sync.Mutex
	rng *rand.Rand
}

// NewOfflineSource creates an offline source
func NewOfflineSource(t *tables.Tables, rng *rand.Rand) *OfflineSource {
	return &OfflineSource{tables: t, rng: rng}
}

// FetchEventBatch builds count events from templates
func (o *OfflineSource) FetchEventBatch(ctx context.Context, count int) ([]types.MarketEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	events := make([]types.MarketEvent, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return events, err
		}

		city := o.tables.Cities[o.rng.Intn(len(o.tables.Cities))]
		item := o.tables.Items[o.rng.Intn(len(o.tables.Items))]

		var desc string
		var mult float64
		if o.rng.Intn(2) == 0 {
			desc = fmt.Sprintf(shortageTemplates[o.rng.Intn(len(shortageTemplates))], item.Name)
			mult = 1.5 + o.rng.Float64()*1.5
		} else {
			desc = fmt.Sprintf(glutTemplates[o.rng.Intn(len(glutTemplates))], item.Name)
			mult = 0.2 + o.rng.Float64()*0.5
		}

		events = append(events, types.MarketEvent{
			Description:  desc,
			AffectedItem: item.Name,
			AffectedCity: city.Name,
			Multiplier:   math.Round(mult*100) / 100,
		})
	}
	return events, nil
}

// FetchBustEvent rolls against the territory odds
func (o *OfflineSource) FetchBustEvent(ctx context.Context, req types.BustRequest) (*types.BustOutcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.rng.Float64() >= BustChance(req) {
		return nil, nil
	}

	pts := []types.PenaltyType{types.PenaltyCash, types.PenaltyInventory, types.PenaltyBoth}
	pt := pts[o.rng.Intn(len(pts))]
	descs := bustDescriptions[pt]

	// Rival turf hits harder
	severity := o.rng.Float64()
	if req.Rival() {
		severity = 0.5 + severity*0.5
	} else if req.Allied() {
		severity *= 0.5
	}

	out := &types.BustOutcome{
		Description: descs[o.rng.Intn(len(descs))],
		PenaltyType: pt,
	}
	if pt.TakesCash() {
		out.CashFraction = 0.1 + severity*0.4
	}
	if pt.TakesInventory() {
		out.InventoryFraction = 0.2 + severity*0.8
	}
	return out, nil
}

// BustChance returns the probability of a bust for a trip
func BustChance(req types.BustRequest) float64 {
	var p float64
	switch {
	case req.Rival():
		p = RivalBustChance
	case req.Allied():
		p = AlliedBustChance
	default:
		p = NeutralBustChance
	}
	if req.Overseas {
		p = math.Max(p, OverseasBustChance)
	}
	return p
}
