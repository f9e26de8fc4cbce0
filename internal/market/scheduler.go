package market

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/user/dopewars-engine/internal/types"
)

const (
	// MinMultiplier and MaxMultiplier bound every applied event multiplier
	MinMultiplier = 0.2
	MaxMultiplier = 3.0
)

// SchedulerConfig tunes the event scheduler
type SchedulerConfig struct {
	TriggerChance   float64
	MinDuration     int
	MaxDuration     int
	RefillThreshold int
}

// DefaultSchedulerConfig returns the standard tuning
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		TriggerChance:   0.5,
		MinDuration:     2,
		MaxDuration:     4,
		RefillThreshold: 5,
	}
}

// Scheduler holds the pending event queue, the discovered catalogue and the
// single active event
type Scheduler struct {
	Catalogue []types.MarketEvent
	Pending   []types.MarketEvent
	Active    *types.ActiveEvent

	cfg SchedulerConfig
}

// NewScheduler creates an empty scheduler
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.MaxDuration < cfg.MinDuration {
		cfg.MaxDuration = cfg.MinDuration
	}
	return &Scheduler{cfg: cfg}
}

// Bootstrap seeds the catalogue with an initial batch. The pending queue is
// the whole batch in shuffled order.
func (s *Scheduler) Bootstrap(events []types.MarketEvent, rng *rand.Rand) {
	s.Catalogue = append([]types.MarketEvent(nil), events...)
	s.Pending = append([]types.MarketEvent(nil), events...)
	rng.Shuffle(len(s.Pending), func(i, j int) {
		s.Pending[i], s.Pending[j] = s.Pending[j], s.Pending[i]
	})
	s.Active = nil
}

// Restore replaces the scheduler state from a snapshot
func (s *Scheduler) Restore(catalogue, pending []types.MarketEvent, active *types.ActiveEvent) {
	s.Catalogue = append([]types.MarketEvent(nil), catalogue...)
	s.Pending = append([]types.MarketEvent(nil), pending...)
	if active != nil {
		a := *active
		s.Active = &a
	} else {
		s.Active = nil
	}
}

// NeedsRefill reports whether the pending queue should be topped up
func (s *Scheduler) NeedsRefill() bool {
	return len(s.Pending) < s.cfg.RefillThreshold && len(s.Catalogue) > 0
}

// Extend appends newly fetched events to both the catalogue and the queue
func (s *Scheduler) Extend(events []types.MarketEvent) {
	s.Catalogue = append(s.Catalogue, events...)
	s.Pending = append(s.Pending, events...)
}

// Tick runs the per-day event protocol against freshly generated prices and
// returns the adjusted matrix together with any news lines
func (s *Scheduler) Tick(day int, prices types.PriceMatrix, rng *rand.Rand) (types.PriceMatrix, []string) {
	var news []string

	// Expire
	if s.Active != nil && day > s.Active.ExpiresOnDay {
		news = append(news, fmt.Sprintf("The market returns to normal in %s.", s.Active.AffectedCity))
		s.Active = nil
	}

	// Trigger
	if s.Active == nil && rng.Float64() < s.cfg.TriggerChance && len(s.Pending) > 0 {
		next := s.Pending[0]
		s.Pending = s.Pending[1:]
		duration := s.cfg.MinDuration + rng.Intn(s.cfg.MaxDuration-s.cfg.MinDuration+1)
		s.Active = &types.ActiveEvent{MarketEvent: next, ExpiresOnDay: day + duration}
	}

	// Apply
	if s.Active != nil {
		prices = ApplyEvent(prices, s.Active.MarketEvent)
		news = append(news, fmt.Sprintf("NEWS: %s in %s!", s.Active.Description, s.Active.AffectedCity))
	}

	return prices, news
}

// ApplyEvent returns a copy of prices with the event's cell scaled by its
// clamped multiplier. Events targeting an unknown cell leave prices as is.
func ApplyEvent(prices types.PriceMatrix, ev types.MarketEvent) types.PriceMatrix {
	current, ok := prices.Price(ev.AffectedCity, ev.AffectedItem)
	if !ok {
		return prices
	}
	out := prices.Clone()
	adjusted := math.Round(float64(current) * ClampMultiplier(ev.Multiplier))
	out[ev.AffectedCity][ev.AffectedItem] = floorPrice(adjusted)
	return out
}

// ClampMultiplier bounds an event multiplier to [MinMultiplier, MaxMultiplier]
func ClampMultiplier(m float64) float64 {
	if math.IsNaN(m) {
		return 1.0
	}
	return math.Max(MinMultiplier, math.Min(MaxMultiplier, m))
}
