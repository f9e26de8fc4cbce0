package ledger

import (
	"fmt"

	"github.com/user/dopewars-engine/internal/types"
)

// BuyStashHouse buys a stash house in city
func (l *Ledger) BuyStashHouse(city string) error {
	if l.player.StashIn(city) >= 0 {
		return ErrStashExists
	}
	if l.player.Cash < l.cfg.StashHouseCost {
		return fmt.Errorf("%w: a stash house costs $%d", ErrInsufficientCash, l.cfg.StashHouseCost)
	}
	l.player.Cash -= l.cfg.StashHouseCost
	l.player.StashHouses = append(l.player.StashHouses, types.StashHouse{
		City:     city,
		Capacity: l.cfg.StashHouseCapacity,
		Contents: make(map[string]int),
	})
	return nil
}

// MoveToStash moves goods from inventory into the stash house in city
func (l *Ledger) MoveToStash(city, item string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	idx := l.player.StashIn(city)
	if idx < 0 {
		return ErrNoStash
	}
	sh := &l.player.StashHouses[idx]
	if owned := l.player.Inventory[item]; owned < qty {
		return fmt.Errorf("%w: you carry %d %s", ErrInsufficientStock, owned, item)
	}
	if free := sh.Capacity - sh.Used; qty > free {
		return fmt.Errorf("%w: stash has %d free", ErrInsufficientSpace, free)
	}

	if sh.Contents == nil {
		sh.Contents = make(map[string]int)
	}
	sh.Contents[item] += qty
	sh.Recount()
	l.removeItem(item, qty)
	return nil
}

// MoveFromStash moves goods from the stash house in city into inventory
func (l *Ledger) MoveFromStash(city, item string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	idx := l.player.StashIn(city)
	if idx < 0 {
		return ErrNoStash
	}
	sh := &l.player.StashHouses[idx]
	if stored := sh.Contents[item]; stored < qty {
		return fmt.Errorf("%w: stash holds %d %s", ErrInsufficientStock, stored, item)
	}
	if free := l.player.InventorySpace - l.player.InventoryUsed; qty > free {
		return fmt.Errorf("%w: %d free", ErrInsufficientSpace, free)
	}

	sh.Contents[item] -= qty
	if sh.Contents[item] <= 0 {
		delete(sh.Contents, item)
	}
	sh.Recount()
	l.player.Inventory[item] += qty
	l.player.RecountInventory()
	return nil
}

// StashUpgradeCost is the price of the next upgrade of the stash house in
// city; false if there is none
func (l *Ledger) StashUpgradeCost(city string) (int, bool) {
	idx := l.player.StashIn(city)
	if idx < 0 {
		return 0, false
	}
	level := l.player.StashHouses[idx].UpgradeLevel
	return upgradeCost(l.cfg.StashUpgradeBase, l.cfg.StashUpgradeMultiplier, level), true
}

// UpgradeStashHouse raises the capacity of the stash house in city
func (l *Ledger) UpgradeStashHouse(city string) error {
	cost, ok := l.StashUpgradeCost(city)
	if !ok {
		return ErrNoStash
	}
	if l.player.Cash < cost {
		return fmt.Errorf("%w: upgrade costs $%d", ErrInsufficientCash, cost)
	}
	sh := &l.player.StashHouses[l.player.StashIn(city)]
	l.player.Cash -= cost
	sh.Capacity += l.cfg.StashUpgradeAmount
	sh.UpgradeLevel++
	return nil
}
