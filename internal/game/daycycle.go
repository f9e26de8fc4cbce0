package game

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/user/dopewars-engine/internal/risk"
	"github.com/user/dopewars-engine/internal/types"
)

// AdvanceDay runs the end-of-day pipeline for day D and, unless the game
// ends, commits day D+1. Returns the resulting phase.
func (s *Session) AdvanceDay() types.Phase {
	if s.Phase.Terminal() {
		return s.Phase
	}

	next := s.Day + 1
	cfg := s.engine.Config
	p := s.player()

	// Step 1: loan default
	if p.Debt > 0 && next > cfg.LoanRepayDays {
		s.endGame(types.PhaseGameOverByDefault, fmt.Sprintf(
			"GAME OVER. You didn't pay back the loan shark by day %d and he came to collect. Final net worth: %s.",
			cfg.LoanRepayDays, FormatMoney(s.ledger.NetWorth())))
		return s.Phase
	}

	// Step 2: stash upkeep
	upkeep := s.ledger.ChargeUpkeep()
	if upkeep.Forfeited != nil {
		s.log.Add(next, fmt.Sprintf("You couldn't cover stash upkeep. Your stash house in %s was seized and you lost all your cash.",
			upkeep.Forfeited.City))
	} else if upkeep.Charged > 0 {
		s.log.Add(next, fmt.Sprintf("Paid %s in stash house upkeep.", FormatMoney(upkeep.Charged)))
	}

	// Step 3: bank interest
	if interest := s.ledger.AccrueBankInterest(); interest > 0 {
		s.log.Add(next, fmt.Sprintf("Your bank balance earned %s in interest.", FormatMoney(interest)))
	}

	// Step 4: loan interest
	if interest := s.ledger.AccrueLoanInterest(); interest > 0 {
		s.log.Add(next, fmt.Sprintf("Your debt to the loan shark grew by %s.", FormatMoney(interest)))
	}

	// Step 5: duration
	if next > s.MaxDays {
		s.endGame(types.PhaseGameOverByDuration, fmt.Sprintf(
			"You survived %d days! Final net worth: %s.", s.MaxDays, FormatMoney(s.ledger.NetWorth())))
		return s.Phase
	}

	// Step 6: new market
	prices, news := s.scheduler.Tick(next, s.engine.Pricing.GeneratePrices(s.rng), s.rng)
	s.prices = prices
	for _, line := range news {
		s.log.Add(next, line)
	}
	s.Day = next
	return s.Phase
}

func (s *Session) endGame(phase types.Phase, msg string) {
	s.Phase = phase
	s.GameOverMessage = msg
	s.record(msg)
}

// Travel moves the player to another city. The trip may end in a bust,
// which is applied before arrival, and always advances one day.
func (s *Session) Travel(ctx context.Context, destination string) (*types.TravelReport, error) {
	if err := s.ensureActive(); err != nil {
		return nil, err
	}
	if _, ok := s.engine.Tables.City(destination); !ok {
		return nil, s.reject(fmt.Errorf("%w: %s", ErrUnknownCity, destination))
	}
	if destination == s.City {
		return nil, s.reject(ErrSameCity)
	}

	report := &types.TravelReport{From: s.City, To: destination}

	// Risk
	req := s.engine.Resolver.Request(destination, s.player())
	if outcome := s.engine.Resolver.Resolve(ctx, req); outcome != nil {
		bust := s.ledger.ApplyBust(*outcome)
		report.Bust = &bust
		s.record(describeBust(bust))
	}

	s.City = destination
	s.record(fmt.Sprintf("You traveled from %s to %s.", report.From, destination))
	s.territoryNews(destination)

	s.AdvanceDay()

	report.Day = s.Day
	report.Phase = s.Phase
	report.Message = s.GameOverMessage
	report.NetWorth = s.ledger.NetWorth()
	report.Log = s.log.Pending()
	return report, nil
}

func (s *Session) territoryNews(destination string) {
	switch risk.ClassifyTerritory(s.engine.Tables, s.player().Alliance, destination) {
	case types.TerritoryAllied:
		s.record(fmt.Sprintf("You're on home turf. %s has your back here.", s.player().Alliance))
	case types.TerritoryRival:
		s.record("You're in rival territory. Keep your head down.")
	}
}

func describeBust(b types.BustReport) string {
	var lost []string
	if b.CashLost > 0 {
		lost = append(lost, FormatMoney(b.CashLost))
	}
	items := make([]string, 0, len(b.ItemsLost))
	for item := range b.ItemsLost {
		items = append(items, item)
	}
	sort.Strings(items)
	for _, item := range items {
		lost = append(lost, fmt.Sprintf("%d %s", b.ItemsLost[item], item))
	}

	msg := "BUSTED! " + b.Outcome.Description
	if len(lost) > 0 {
		msg += " You lost " + strings.Join(lost, ", ") + "."
	}
	return msg
}
