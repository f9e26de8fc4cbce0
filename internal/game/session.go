package game

import (
	"fmt"
	"math/rand"

	"github.com/user/dopewars-engine/config"
	"github.com/user/dopewars-engine/internal/ledger"
	"github.com/user/dopewars-engine/internal/market"
	"github.com/user/dopewars-engine/internal/risk"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

// Engine bundles the collaborators shared by every session
type Engine struct {
	Tables   *tables.Tables
	Config   config.GameConfig
	Pricing  *market.PricingModel
	Resolver *risk.Resolver
}

// NewEngine creates an engine from tables, tuning and a risk resolver
func NewEngine(t *tables.Tables, cfg config.GameConfig, resolver *risk.Resolver) *Engine {
	return &Engine{
		Tables:   t,
		Config:   cfg,
		Pricing:  market.NewPricingModel(t, cfg.PriceJitter),
		Resolver: resolver,
	}
}

func (e *Engine) schedulerConfig() market.SchedulerConfig {
	return market.SchedulerConfig{
		TriggerChance:   e.Config.EventTriggerChance,
		MinDuration:     e.Config.EventMinDuration,
		MaxDuration:     e.Config.EventMaxDuration,
		RefillThreshold: e.Config.RefillThreshold,
	}
}

// Session is one game in progress. It is not safe for concurrent use; the
// Manager serializes access.
type Session struct {
	ID              string
	Generation      string
	Day             int
	MaxDays         int
	City            string
	Phase           types.Phase
	GameOverMessage string

	engine    *Engine
	ledger    *ledger.Ledger
	prices    types.PriceMatrix
	scheduler *market.Scheduler
	log       *LogBook
	rng       *rand.Rand
}

// NewSession starts a fresh game on day 1 in a random starting city
func NewSession(e *Engine, id, generation string, maxDays int, events []types.MarketEvent, rng *rand.Rand) *Session {
	starts := e.Tables.StartingCities()
	start := starts[rng.Intn(len(starts))]

	s := &Session{
		ID:         id,
		Generation: generation,
		Day:        1,
		MaxDays:    maxDays,
		City:       start.Name,
		Phase:      types.PhaseActive,
		engine:     e,
		ledger:     ledger.New(ledger.NewPlayer(e.Config), e.Tables, e.Config),
		scheduler:  market.NewScheduler(e.schedulerConfig()),
		log:        NewLogBook(e.Config.LogLimit, nil),
		rng:        rng,
	}
	s.scheduler.Bootstrap(events, rng)
	s.prices = e.Pricing.GeneratePrices(rng)

	s.record(fmt.Sprintf("You arrive in %s with %s. You have %d days to make your fortune.",
		s.City, FormatMoney(s.player().Cash), maxDays))
	return s
}

func (s *Session) player() *types.PlayerState {
	return s.ledger.Player()
}

// Prices returns the current price matrix
func (s *Session) Prices() types.PriceMatrix {
	return s.prices
}

// Scheduler exposes the event scheduler
func (s *Session) Scheduler() *market.Scheduler {
	return s.scheduler
}

// Ledger exposes the player ledger
func (s *Session) Ledger() *ledger.Ledger {
	return s.ledger
}

// Log exposes the game log
func (s *Session) Log() *LogBook {
	return s.log
}

func (s *Session) record(msg string) string {
	s.log.Add(s.Day, msg)
	return msg
}

// reject logs a validation failure and hands the error back
func (s *Session) reject(err error) error {
	s.log.Add(s.Day, capitalize(err.Error())+".")
	return err
}

func (s *Session) ensureActive() error {
	if s.Phase.Terminal() {
		return ErrGameOver
	}
	return nil
}

// quote returns the trade price of an item in the current city
func (s *Session) quote(item string) (int, error) {
	price, ok := s.prices.Price(s.City, item)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ledger.ErrUnknownItem, item)
	}
	price, _ = s.ledger.TradePrice(s.City, item, price)
	return price, nil
}

// Buy purchases goods at the current city's price
func (s *Session) Buy(item string, qty int) (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	price, err := s.quote(item)
	if err != nil {
		return "", s.reject(err)
	}
	if err := s.ledger.Buy(item, qty, price); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("Bought %d %s for %s.", qty, item, FormatMoney(qty*price))), nil
}

// Sell sells goods at the current city's price
func (s *Session) Sell(item string, qty int) (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	price, err := s.quote(item)
	if err != nil {
		return "", s.reject(err)
	}
	if err := s.ledger.Sell(item, qty, price); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("Sold %d %s for %s.", qty, item, FormatMoney(qty*price))), nil
}

// Deposit moves cash into the bank
func (s *Session) Deposit(amount int) (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	if err := s.ledger.Deposit(amount); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("Deposited %s into the bank.", FormatMoney(amount))), nil
}

// Withdraw moves money out of the bank
func (s *Session) Withdraw(amount int) (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	if err := s.ledger.Withdraw(amount); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("Withdrew %s from the bank.", FormatMoney(amount))), nil
}

// TakeLoan borrows from the loan shark
func (s *Session) TakeLoan() (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	if err := s.ledger.TakeLoan(s.City); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("The loan shark hands you %s. Pay it back before day %d or else.",
		FormatMoney(s.engine.Config.LoanAmount), s.engine.Config.LoanRepayDays+1)), nil
}

// RepayLoan pays off the loan shark
func (s *Session) RepayLoan() (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	debt := s.player().Debt
	if err := s.ledger.RepayLoan(s.City); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("You paid the loan shark %s. You're off the hook.", FormatMoney(debt))), nil
}

// BuyStashHouse buys a stash house in the current city
func (s *Session) BuyStashHouse() (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	if err := s.ledger.BuyStashHouse(s.City); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("You bought a stash house in %s for %s.", s.City, FormatMoney(s.engine.Config.StashHouseCost))), nil
}

// MoveToStash stores goods in the local stash house
func (s *Session) MoveToStash(item string, qty int) (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	if err := s.ledger.MoveToStash(s.City, item, qty); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("Stashed %d %s in %s.", qty, item, s.City)), nil
}

// MoveFromStash takes goods out of the local stash house
func (s *Session) MoveFromStash(item string, qty int) (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	if err := s.ledger.MoveFromStash(s.City, item, qty); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("Took %d %s from your stash in %s.", qty, item, s.City)), nil
}

// UpgradeInventory buys more carrying space
func (s *Session) UpgradeInventory() (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	cost := s.ledger.InventoryUpgradeCost()
	if err := s.ledger.UpgradeInventory(); err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("Upgraded your carrying space to %d for %s.", s.player().InventorySpace, FormatMoney(cost))), nil
}

// UpgradeStashHouse enlarges the local stash house
func (s *Session) UpgradeStashHouse() (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	cost, _ := s.ledger.StashUpgradeCost(s.City)
	if err := s.ledger.UpgradeStashHouse(s.City); err != nil {
		return "", s.reject(err)
	}
	sh := s.player().StashHouses[s.player().StashIn(s.City)]
	return s.record(fmt.Sprintf("Upgraded your stash house in %s to hold %d for %s.", s.City, sh.Capacity, FormatMoney(cost))), nil
}

// JoinAlliance pays to join an alliance
func (s *Session) JoinAlliance(name string) (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	if err := s.ledger.JoinAlliance(name); err != nil {
		return "", s.reject(err)
	}
	a, _ := s.engine.Tables.Alliance(name)
	return s.record(fmt.Sprintf("You joined %s. Watch your back in %s.", a.Name, s.rivalHome(a))), nil
}

func (s *Session) rivalHome(a types.Alliance) string {
	rival, ok := s.engine.Tables.Alliance(a.Rival)
	if !ok {
		return "rival territory"
	}
	return rival.HomeCity
}

// AcceptMission takes a mission offered in the current city
func (s *Session) AcceptMission(id string) (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	if err := s.ledger.AcceptMission(id, s.City); err != nil {
		return "", s.reject(err)
	}
	m, _ := s.engine.Tables.Mission(id)
	return s.record(fmt.Sprintf("Mission accepted: %s.", m.Title)), nil
}

// AbandonMission drops the active mission
func (s *Session) AbandonMission() (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	m, err := s.ledger.AbandonMission()
	if err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("Mission abandoned: %s.", m.Title)), nil
}

// CompleteMission turns in the active mission
func (s *Session) CompleteMission() (string, error) {
	if err := s.ensureActive(); err != nil {
		return "", err
	}
	m, err := s.ledger.CompleteMission(s.City)
	if err != nil {
		return "", s.reject(err)
	}
	return s.record(fmt.Sprintf("Mission complete: %s! You earned %s.", m.Title, FormatMoney(m.RewardCash))), nil
}

// Status builds a read-only view of the session
func (s *Session) Status() *types.StatusView {
	p := s.player()
	view := &types.StatusView{
		SessionID:            s.ID,
		Day:                  s.Day,
		MaxDays:              s.MaxDays,
		City:                 s.City,
		Phase:                s.Phase,
		GameOverMessage:      s.GameOverMessage,
		Player:               p.Clone(),
		NetWorth:             s.ledger.NetWorth(),
		AvailableMissions:    s.ledger.AvailableMissions(s.City),
		InventoryUpgradeCost: s.ledger.InventoryUpgradeCost(),
		LoanShark:            s.City == s.engine.Config.LoanSharkCity,
		Log:                  s.log.Entries(),
	}

	for _, item := range s.engine.Tables.Items {
		price, ok := s.prices.Price(s.City, item.Name)
		if !ok {
			continue
		}
		price, discounted := s.ledger.TradePrice(s.City, item.Name, price)
		view.Market = append(view.Market, types.MarketQuote{
			Item:       item.Name,
			Price:      price,
			Discounted: discounted,
			Owned:      p.Inventory[item.Name],
		})
	}

	if active := s.scheduler.Active; active != nil {
		ev := *active
		view.ActiveEvent = &ev
	}
	if m, ok := s.ledger.ActiveMission(); ok {
		view.ActiveMission = &m
	}
	if cost, ok := s.ledger.StashUpgradeCost(s.City); ok {
		view.StashUpgradeCost = cost
	}
	return view
}
