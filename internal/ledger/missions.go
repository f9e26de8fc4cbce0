package ledger

import (
	"fmt"

	"github.com/user/dopewars-engine/internal/types"
)

// AvailableMissions lists missions the player may accept in city
func (l *Ledger) AvailableMissions(city string) []types.Mission {
	var out []types.Mission
	for _, m := range l.tables.MissionsFrom(city) {
		if !l.player.HasCompleted(m.ID) && m.ID != l.player.ActiveMissionID {
			out = append(out, m)
		}
	}
	return out
}

// ActiveMission returns the active mission, if any
func (l *Ledger) ActiveMission() (types.Mission, bool) {
	if l.player.ActiveMissionID == "" {
		return types.Mission{}, false
	}
	return l.tables.Mission(l.player.ActiveMissionID)
}

// AcceptMission takes on a mission offered in city
func (l *Ledger) AcceptMission(id, city string) error {
	if l.player.ActiveMissionID != "" {
		return ErrMissionActive
	}
	m, ok := l.tables.Mission(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissionUnavailable, id)
	}
	if l.player.HasCompleted(id) {
		return ErrMissionCompleted
	}
	if m.OriginCity != city {
		return fmt.Errorf("%w: offered in %s", ErrWrongCity, m.OriginCity)
	}
	l.player.ActiveMissionID = id
	return nil
}

// AbandonMission drops the active mission without reward
func (l *Ledger) AbandonMission() (types.Mission, error) {
	m, ok := l.ActiveMission()
	if !ok {
		return types.Mission{}, ErrNoActiveMission
	}
	l.player.ActiveMissionID = ""
	return m, nil
}

// CompleteMission checks the active mission's objective in city and pays
// out the reward
func (l *Ledger) CompleteMission(city string) (types.Mission, error) {
	m, ok := l.ActiveMission()
	if !ok {
		return types.Mission{}, ErrNoActiveMission
	}

	switch {
	case m.Deliver != nil:
		obj := m.Deliver
		if city != obj.DestinationCity {
			return m, fmt.Errorf("%w: deliver to %s", ErrObjectivesNotMet, obj.DestinationCity)
		}
		if owned := l.player.Inventory[obj.Item]; owned < obj.Quantity {
			return m, fmt.Errorf("%w: need %d %s, have %d", ErrObjectivesNotMet, obj.Quantity, obj.Item, owned)
		}
		l.removeItem(obj.Item, obj.Quantity)
	case m.AcquireCash != nil:
		if l.player.Cash < m.AcquireCash.TargetCash {
			return m, fmt.Errorf("%w: need $%d cash", ErrObjectivesNotMet, m.AcquireCash.TargetCash)
		}
	}

	l.player.Cash += m.RewardCash
	l.player.ActiveMissionID = ""
	l.player.CompletedMissionIDs = append(l.player.CompletedMissionIDs, m.ID)
	return m, nil
}
