package ledger

import (
	"math"

	"github.com/user/dopewars-engine/internal/types"
)

// UpkeepResult reports the outcome of the daily stash upkeep charge
type UpkeepResult struct {
	Charged   int
	Forfeited *types.StashHouse
}

// ChargeUpkeep bills every stash house. If the player cannot pay, the oldest
// stash house is forfeited and all cash is lost.
func (l *Ledger) ChargeUpkeep() UpkeepResult {
	upkeep := len(l.player.StashHouses) * l.cfg.StashHouseUpkeep
	if upkeep == 0 {
		return UpkeepResult{}
	}
	if l.player.Cash >= upkeep {
		l.player.Cash -= upkeep
		return UpkeepResult{Charged: upkeep}
	}

	lost := l.player.StashHouses[0]
	l.player.StashHouses = append([]types.StashHouse(nil), l.player.StashHouses[1:]...)
	l.player.Cash = 0
	return UpkeepResult{Forfeited: &lost}
}

// AccrueBankInterest adds floor(balance * rate) to the bank balance
func (l *Ledger) AccrueBankInterest() int {
	if l.player.BankBalance <= 0 {
		return 0
	}
	interest := int(math.Floor(float64(l.player.BankBalance) * l.cfg.BankInterestRate))
	l.player.BankBalance += interest
	return interest
}

// AccrueLoanInterest adds ceil(debt * rate) to the debt
func (l *Ledger) AccrueLoanInterest() int {
	if l.player.Debt <= 0 {
		return 0
	}
	interest := int(math.Ceil(float64(l.player.Debt) * l.cfg.LoanInterestRate))
	l.player.Debt += interest
	return interest
}
