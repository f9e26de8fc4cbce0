package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/user/dopewars-engine/internal/ledger"
	"github.com/user/dopewars-engine/internal/market"
	"github.com/user/dopewars-engine/internal/types"
)

// Snapshot captures the persisted state of the session
func (s *Session) Snapshot() *types.Snapshot {
	snap := &types.Snapshot{
		SessionID:      s.ID,
		SavedAt:        time.Now().UTC(),
		Day:            s.Day,
		CurrentCity:    s.City,
		Player:         s.player().Clone(),
		Prices:         s.prices.Clone(),
		Log:            s.log.Entries(),
		EventCatalogue: append([]types.MarketEvent(nil), s.scheduler.Catalogue...),
		PendingEvents:  append([]types.MarketEvent(nil), s.scheduler.Pending...),
		MaxDays:        s.MaxDays,
	}
	if s.scheduler.Active != nil {
		ev := *s.scheduler.Active
		snap.ActiveEvent = &ev
	}
	return snap
}

// EncodeSnapshot serializes a snapshot
func EncodeSnapshot(snap *types.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot, overlaying saved fields onto a fresh
// default so older saves missing newer fields still load
func (e *Engine) DecodeSnapshot(data []byte) (*types.Snapshot, error) {
	snap := &types.Snapshot{
		Day:         1,
		CurrentCity: e.Tables.Cities[0].Name,
		Player:      ledger.NewPlayer(e.Config),
		MaxDays:     e.Config.Durations[0],
	}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	if snap.Player == nil {
		return nil, fmt.Errorf("%w: missing player", ErrCorruptSnapshot)
	}
	if _, ok := e.Tables.City(snap.CurrentCity); !ok {
		return nil, fmt.Errorf("%w: unknown city %q", ErrCorruptSnapshot, snap.CurrentCity)
	}
	if snap.Day < 1 {
		snap.Day = 1
	}
	if !e.Config.ValidDuration(snap.MaxDays) {
		snap.MaxDays = e.Config.Durations[0]
	}
	if snap.Player.Inventory == nil {
		snap.Player.Inventory = make(map[string]int)
	}
	for i := range snap.Player.StashHouses {
		if snap.Player.StashHouses[i].Contents == nil {
			snap.Player.StashHouses[i].Contents = make(map[string]int)
		}
		snap.Player.StashHouses[i].Recount()
	}
	snap.Player.RecountInventory()
	return snap, nil
}

// RestoreSession rebuilds a live session from a snapshot. A missing price
// matrix is regenerated.
func RestoreSession(e *Engine, snap *types.Snapshot, generation string, rng *rand.Rand) *Session {
	s := &Session{
		ID:         snap.SessionID,
		Generation: generation,
		Day:        snap.Day,
		MaxDays:    snap.MaxDays,
		City:       snap.CurrentCity,
		Phase:      types.PhaseActive,
		engine:     e,
		ledger:     ledger.New(snap.Player, e.Tables, e.Config),
		scheduler:  market.NewScheduler(e.schedulerConfig()),
		log:        NewLogBook(e.Config.LogLimit, snap.Log),
		rng:        rng,
	}
	s.scheduler.Restore(snap.EventCatalogue, snap.PendingEvents, snap.ActiveEvent)

	if len(snap.Prices) == 0 {
		s.prices = e.Pricing.GeneratePrices(rng)
	} else {
		s.prices = snap.Prices.Clone()
	}
	return s
}
