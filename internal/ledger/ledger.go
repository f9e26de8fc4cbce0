// Package ledger owns the player's economic state and every operation that
// mutates it. Each operation validates first and mutates only on success.
package ledger

import (
	"fmt"
	"math"
	"sort"

	"github.com/user/dopewars-engine/config"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

// Ledger wraps one player's state
type Ledger struct {
	player *types.PlayerState
	tables *tables.Tables
	cfg    config.GameConfig
}

// New wraps an existing player state
func New(player *types.PlayerState, t *tables.Tables, cfg config.GameConfig) *Ledger {
	if player.Inventory == nil {
		player.Inventory = make(map[string]int)
	}
	player.RecountInventory()
	return &Ledger{player: player, tables: t, cfg: cfg}
}

// NewPlayer returns a fresh player state for a new game
func NewPlayer(cfg config.GameConfig) *types.PlayerState {
	return &types.PlayerState{
		Cash:                cfg.StartingCash,
		Inventory:           make(map[string]int),
		InventorySpace:      cfg.InventorySpace,
		StashHouses:         []types.StashHouse{},
		CompletedMissionIDs: []string{},
	}
}

// Player returns the wrapped state
func (l *Ledger) Player() *types.PlayerState {
	return l.player
}

// TradePrice returns the price the player pays or receives for an item in a
// city, applying the alliance discount on the alliance specialty at home
func (l *Ledger) TradePrice(city, item string, marketPrice int) (int, bool) {
	if l.player.Alliance == "" {
		return marketPrice, false
	}
	a, ok := l.tables.Alliance(l.player.Alliance)
	if !ok || a.HomeCity != city || a.SpecialtyItem != item {
		return marketPrice, false
	}
	discounted := int(math.Round(float64(marketPrice) * l.cfg.AllianceDiscount))
	if discounted < 1 {
		discounted = 1
	}
	return discounted, true
}

// Buy purchases qty units of item at price each
func (l *Ledger) Buy(item string, qty, price int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	if _, ok := l.tables.Item(item); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, item)
	}
	// Compare by subtraction and division so huge quantities cannot wrap
	if free := l.player.InventorySpace - l.player.InventoryUsed; qty > free {
		return fmt.Errorf("%w: %d free, need %d", ErrInsufficientSpace, free, qty)
	}
	if qty > l.player.Cash/price {
		return fmt.Errorf("%w: %d %s at $%d each, you have $%d", ErrInsufficientCash, qty, item, price, l.player.Cash)
	}

	l.player.Cash -= qty * price
	l.player.Inventory[item] += qty
	l.player.RecountInventory()
	return nil
}

// Sell sells qty units of item at price each
func (l *Ledger) Sell(item string, qty, price int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	owned := l.player.Inventory[item]
	if owned < qty {
		return fmt.Errorf("%w: you have %d %s", ErrInsufficientStock, owned, item)
	}

	l.player.Cash += qty * price
	l.removeItem(item, qty)
	return nil
}

// Deposit moves cash into the bank
func (l *Ledger) Deposit(amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > l.player.Cash {
		return fmt.Errorf("%w: you have $%d", ErrInsufficientCash, l.player.Cash)
	}
	l.player.Cash -= amount
	l.player.BankBalance += amount
	return nil
}

// Withdraw moves money from the bank into cash
func (l *Ledger) Withdraw(amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > l.player.BankBalance {
		return fmt.Errorf("%w: balance is $%d", ErrInsufficientFunds, l.player.BankBalance)
	}
	l.player.BankBalance -= amount
	l.player.Cash += amount
	return nil
}

// TakeLoan borrows the fixed loan amount. Only one loan per game.
func (l *Ledger) TakeLoan(city string) error {
	if city != l.cfg.LoanSharkCity {
		return fmt.Errorf("%w: the loan shark is in %s", ErrWrongCity, l.cfg.LoanSharkCity)
	}
	if l.player.LoanTaken {
		return ErrLoanTaken
	}
	l.player.Cash += l.cfg.LoanAmount
	l.player.Debt = l.cfg.LoanAmount
	l.player.LoanTaken = true
	return nil
}

// RepayLoan pays off the whole debt
func (l *Ledger) RepayLoan(city string) error {
	if city != l.cfg.LoanSharkCity {
		return fmt.Errorf("%w: the loan shark is in %s", ErrWrongCity, l.cfg.LoanSharkCity)
	}
	if l.player.Debt <= 0 {
		return ErrNoDebt
	}
	if l.player.Cash < l.player.Debt {
		return fmt.Errorf("%w: you owe $%d", ErrInsufficientCash, l.player.Debt)
	}
	l.player.Cash -= l.player.Debt
	l.player.Debt = 0
	return nil
}

// InventoryUpgradeCost is the price of the next inventory upgrade
func (l *Ledger) InventoryUpgradeCost() int {
	return upgradeCost(l.cfg.InventoryUpgradeBase, l.cfg.InventoryUpgradeMultiplier, l.player.InventoryUpgrades)
}

// UpgradeInventory buys more carrying space
func (l *Ledger) UpgradeInventory() error {
	cost := l.InventoryUpgradeCost()
	if l.player.Cash < cost {
		return fmt.Errorf("%w: upgrade costs $%d", ErrInsufficientCash, cost)
	}
	l.player.Cash -= cost
	l.player.InventorySpace += l.cfg.InventoryUpgradeAmount
	l.player.InventoryUpgrades++
	return nil
}

// JoinAlliance pays the join fee and switches membership
func (l *Ledger) JoinAlliance(name string) error {
	a, ok := l.tables.Alliance(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAlliance, name)
	}
	if l.player.Alliance == a.Name {
		return ErrAlreadyMember
	}
	if l.player.Cash < a.JoinFee {
		return fmt.Errorf("%w: joining costs $%d", ErrInsufficientCash, a.JoinFee)
	}
	l.player.Cash -= a.JoinFee
	l.player.Alliance = a.Name
	return nil
}

// NetWorth values the player at base prices, less debt
func (l *Ledger) NetWorth() int {
	worth := l.player.Cash + l.player.BankBalance - l.player.Debt
	for item, qty := range l.player.Inventory {
		worth += qty * l.tables.BasePrice(item)
	}
	for _, sh := range l.player.StashHouses {
		for item, qty := range sh.Contents {
			worth += qty * l.tables.BasePrice(item)
		}
	}
	return worth
}

// InventoryValue values carried goods at base prices
func (l *Ledger) InventoryValue() int {
	value := 0
	for item, qty := range l.player.Inventory {
		value += qty * l.tables.BasePrice(item)
	}
	return value
}

// ApplyBust confiscates cash and goods per a clamped outcome. Each item
// loses ceil(qty * fraction) independently.
func (l *Ledger) ApplyBust(outcome types.BustOutcome) types.BustReport {
	report := types.BustReport{Outcome: outcome, ItemsLost: map[string]int{}}

	if outcome.PenaltyType.TakesCash() {
		lost := int(math.Floor(float64(l.player.Cash) * outcome.CashFraction))
		if lost > l.player.Cash {
			lost = l.player.Cash
		}
		l.player.Cash -= lost
		report.CashLost = lost
	}

	if outcome.PenaltyType.TakesInventory() {
		items := make([]string, 0, len(l.player.Inventory))
		for item, qty := range l.player.Inventory {
			if qty > 0 {
				items = append(items, item)
			}
		}
		sort.Strings(items)

		for _, item := range items {
			qty := l.player.Inventory[item]
			lost := int(math.Ceil(float64(qty) * outcome.InventoryFraction))
			if lost > qty {
				lost = qty
			}
			if lost <= 0 {
				continue
			}
			l.removeItem(item, lost)
			report.ItemsLost[item] = lost
		}
	}

	return report
}

// removeItem decrements an item, dropping empty entries
func (l *Ledger) removeItem(item string, qty int) {
	l.player.Inventory[item] -= qty
	if l.player.Inventory[item] <= 0 {
		delete(l.player.Inventory, item)
	}
	l.player.RecountInventory()
}

func upgradeCost(base int, multiplier float64, level int) int {
	return int(math.Round(float64(base) * math.Pow(multiplier, float64(level))))
}
