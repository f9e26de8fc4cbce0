package game

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/dopewars-engine/config"
	"github.com/user/dopewars-engine/internal/content"
	"github.com/user/dopewars-engine/internal/interfaces"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
	"go.uber.org/zap"
)

var (
	ErrNoSession       = errors.New("no game in progress")
	ErrGameOver        = errors.New("the game is over, start a new one")
	ErrNoSnapshot      = errors.New("no saved game")
	ErrCorruptSnapshot = errors.New("saved game is corrupt")
	ErrInvalidDuration = errors.New("invalid game length")
	ErrUnknownCity     = errors.New("unknown city")
	ErrSameCity        = errors.New("you are already there")
)

// sessionEntry serializes everything that touches one player's session
type sessionEntry struct {
	mu        sync.Mutex
	session   *Session
	refillGen string
}

// GameManager owns one session per player
type GameManager struct {
	engine   *Engine
	config   config.Config
	store    SnapshotStore
	source   content.Source
	notifier interfaces.Notifier
	Logger   *zap.Logger

	sessions  map[string]*sessionEntry
	stateLock sync.RWMutex

	seeds    *rand.Rand
	seedLock sync.Mutex

	refills sync.WaitGroup
}

// Ensure GameManager satisfies the interfaces.GameManager interface
var _ interfaces.GameManager = (*GameManager)(nil)

// NewGameManager creates a new game manager
func NewGameManager(cfg config.Config, engine *Engine, store SnapshotStore, source content.Source) *GameManager {
	return &GameManager{
		engine:   engine,
		config:   cfg,
		store:    store,
		source:   source,
		Logger:   zap.NewNop(), // Will be set by the server
		sessions: make(map[string]*sessionEntry),
		seeds:    NewRand(cfg.Game.Seed),
	}
}

// SetNotifier sets the receiver of new log lines
func (gm *GameManager) SetNotifier(n interfaces.Notifier) {
	gm.notifier = n
}

// Tables returns the content tables
func (gm *GameManager) Tables() *tables.Tables {
	return gm.engine.Tables
}

// Wait blocks until in-flight event refills finish
func (gm *GameManager) Wait() {
	gm.refills.Wait()
}

func (gm *GameManager) sessionRand() *rand.Rand {
	gm.seedLock.Lock()
	defer gm.seedLock.Unlock()
	return rand.New(rand.NewSource(gm.seeds.Int63()))
}

// entry returns the player's entry, creating it if needed
func (gm *GameManager) entry(playerID string) *sessionEntry {
	gm.stateLock.Lock()
	defer gm.stateLock.Unlock()

	e, exists := gm.sessions[playerID]
	if !exists {
		e = &sessionEntry{}
		gm.sessions[playerID] = e
	}
	return e
}

func (gm *GameManager) lookup(playerID string) (*sessionEntry, bool) {
	gm.stateLock.RLock()
	defer gm.stateLock.RUnlock()

	e, exists := gm.sessions[playerID]
	return e, exists
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// StartNewGame begins a fresh game lasting days
func (gm *GameManager) StartNewGame(ctx context.Context, playerID string, days int) (*types.StatusView, error) {
	if !gm.engine.Config.ValidDuration(days) {
		return nil, ErrInvalidDuration
	}

	e := gm.entry(playerID)
	e.mu.Lock()
	defer e.mu.Unlock()

	return gm.start(ctx, playerID, e, days), nil
}

// start must be called with e.mu held
func (gm *GameManager) start(ctx context.Context, playerID string, e *sessionEntry, days int) *types.StatusView {
	events := gm.initialEvents(ctx)

	s := NewSession(gm.engine, uuid.New().String(), uuid.New().String(), days, events, gm.sessionRand())
	e.session = s
	e.refillGen = ""

	// A new game replaces any previous save
	if err := gm.store.Delete(ctx, playerID); err != nil {
		gm.Logger.Error("Failed to delete previous save", zap.String("player_id", playerID), zap.Error(err))
	}

	gm.Logger.Info("Started new game",
		zap.String("player_id", playerID),
		zap.String("session_id", s.ID),
		zap.Int("days", days),
		zap.String("city", s.City),
		zap.Int("events", len(events)))

	gm.publish(playerID, s)
	return s.Status()
}

// initialEvents fetches the first event batch, falling back to the static set
func (gm *GameManager) initialEvents(ctx context.Context) []types.MarketEvent {
	ctx, cancel := withTimeout(ctx, gm.config.Content.BatchTimeoutDuration())
	defer cancel()

	events, err := gm.source.FetchEventBatch(ctx, gm.engine.Config.InitialEventBatch)
	if err != nil || len(events) == 0 {
		gm.Logger.Warn("Using fallback market events", zap.Error(err))
		return append([]types.MarketEvent(nil), gm.engine.Tables.FallbackEvents...)
	}
	return events
}

// LoadGame restores the player's saved game
func (gm *GameManager) LoadGame(ctx context.Context, playerID string) (*types.StatusView, error) {
	e := gm.entry(playerID)
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := gm.store.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	snap, err := gm.engine.DecodeSnapshot(data)
	if err != nil {
		gm.Logger.Warn("Discarding corrupt save", zap.String("player_id", playerID), zap.Error(err))
		if delErr := gm.store.Delete(ctx, playerID); delErr != nil {
			gm.Logger.Error("Failed to delete corrupt save", zap.String("player_id", playerID), zap.Error(delErr))
		}
		e.session = nil
		return nil, ErrCorruptSnapshot
	}

	s := RestoreSession(gm.engine, snap, uuid.New().String(), gm.sessionRand())
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	e.session = s
	e.refillGen = ""

	gm.Logger.Info("Loaded game",
		zap.String("player_id", playerID),
		zap.String("session_id", s.ID),
		zap.Int("day", s.Day))

	gm.maybeRefill(playerID, e)
	return s.Status(), nil
}

// SaveGame writes the current session to the store
func (gm *GameManager) SaveGame(ctx context.Context, playerID string) error {
	e, ok := gm.lookup(playerID)
	if !ok {
		return ErrNoSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoSession
	}
	if e.session.Phase.Terminal() {
		return ErrGameOver
	}
	return gm.save(ctx, playerID, e.session)
}

func (gm *GameManager) save(ctx context.Context, playerID string, s *Session) error {
	data, err := EncodeSnapshot(s.Snapshot())
	if err != nil {
		return err
	}
	return gm.store.Put(ctx, playerID, data)
}

// ResetGame restarts with the same game length
func (gm *GameManager) ResetGame(ctx context.Context, playerID string) (*types.StatusView, error) {
	e, ok := gm.lookup(playerID)
	if !ok {
		return nil, ErrNoSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, ErrNoSession
	}
	return gm.start(ctx, playerID, e, e.session.MaxDays), nil
}

// EndGame discards the session and its save
func (gm *GameManager) EndGame(ctx context.Context, playerID string) error {
	e, ok := gm.lookup(playerID)
	if !ok {
		return ErrNoSession
	}
	e.mu.Lock()
	hadSession := e.session != nil
	e.session = nil
	e.refillGen = ""
	e.mu.Unlock()

	if !hadSession {
		return ErrNoSession
	}

	if err := gm.store.Delete(ctx, playerID); err != nil {
		gm.Logger.Error("Failed to delete save", zap.String("player_id", playerID), zap.Error(err))
	}
	gm.Logger.Info("Ended game", zap.String("player_id", playerID))
	return nil
}

// Status returns a view of the player's session
func (gm *GameManager) Status(playerID string) (*types.StatusView, error) {
	e, ok := gm.lookup(playerID)
	if !ok {
		return nil, ErrNoSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, ErrNoSession
	}
	return e.session.Status(), nil
}

// Travel moves the player to another city, advancing one day
func (gm *GameManager) Travel(ctx context.Context, playerID, city string) (*types.TravelReport, error) {
	e, ok := gm.lookup(playerID)
	if !ok {
		return nil, ErrNoSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return nil, ErrNoSession
	}

	report, err := s.Travel(ctx, city)
	if err == nil {
		gm.Logger.Info("Player traveled",
			zap.String("player_id", playerID),
			zap.String("from", report.From),
			zap.String("to", report.To),
			zap.Int("day", report.Day),
			zap.Bool("busted", report.Bust != nil),
			zap.String("phase", string(report.Phase)))

		gm.persist(ctx, playerID, s)
		gm.maybeRefill(playerID, e)
	}
	gm.publish(playerID, s)
	return report, err
}

// act runs a ledger operation against the player's session
func (gm *GameManager) act(ctx context.Context, playerID, op string, fn func(s *Session) (string, error)) (string, error) {
	e, ok := gm.lookup(playerID)
	if !ok {
		return "", ErrNoSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return "", ErrNoSession
	}

	msg, err := fn(s)
	if err != nil {
		gm.Logger.Debug("Action rejected",
			zap.String("player_id", playerID),
			zap.String("op", op),
			zap.Error(err))
	} else {
		gm.persist(ctx, playerID, s)
	}
	gm.publish(playerID, s)
	return msg, err
}

// persist autosaves an active session and drops the save of a finished one
func (gm *GameManager) persist(ctx context.Context, playerID string, s *Session) {
	if s.Phase.Terminal() {
		if err := gm.store.Delete(ctx, playerID); err != nil {
			gm.Logger.Error("Failed to delete finished save", zap.String("player_id", playerID), zap.Error(err))
		}
		gm.Logger.Info("Game finished",
			zap.String("player_id", playerID),
			zap.String("phase", string(s.Phase)),
			zap.Int("net_worth", s.ledger.NetWorth()))
		return
	}
	if err := gm.save(ctx, playerID, s); err != nil {
		gm.Logger.Error("Failed to autosave", zap.String("player_id", playerID), zap.Error(err))
	}
}

// publish forwards new log lines to the notifier
func (gm *GameManager) publish(playerID string, s *Session) {
	lines := s.log.Drain()
	if gm.notifier == nil || len(lines) == 0 {
		return
	}
	gm.notifier.Notify(playerID, lines)
}

// maybeRefill starts a background event fetch when the queue runs low.
// Must be called with e.mu held.
func (gm *GameManager) maybeRefill(playerID string, e *sessionEntry) {
	s := e.session
	if s == nil || s.Phase.Terminal() || !s.scheduler.NeedsRefill() || e.refillGen == s.Generation {
		return
	}

	gen := s.Generation
	e.refillGen = gen
	gm.refills.Add(1)

	go func() {
		defer gm.refills.Done()

		ctx, cancel := withTimeout(context.Background(), gm.config.Content.BatchTimeoutDuration())
		defer cancel()
		events, err := gm.source.FetchEventBatch(ctx, gm.engine.Config.RefillEventBatch)

		e.mu.Lock()
		defer e.mu.Unlock()

		if e.refillGen == gen {
			e.refillGen = ""
		}
		if e.session == nil || e.session.Generation != gen {
			gm.Logger.Debug("Discarding stale event batch", zap.String("player_id", playerID))
			return
		}
		if err != nil || len(events) == 0 {
			gm.Logger.Warn("Event refill returned nothing", zap.String("player_id", playerID), zap.Error(err))
			return
		}

		e.session.scheduler.Extend(events)
		gm.Logger.Debug("Extended event queue",
			zap.String("player_id", playerID),
			zap.Int("added", len(events)),
			zap.Int("pending", len(e.session.scheduler.Pending)))
	}()
}

// Buy purchases goods in the current city
func (gm *GameManager) Buy(ctx context.Context, playerID, item string, qty int) (string, error) {
	return gm.act(ctx, playerID, "buy", func(s *Session) (string, error) { return s.Buy(item, qty) })
}

// Sell sells goods in the current city
func (gm *GameManager) Sell(ctx context.Context, playerID, item string, qty int) (string, error) {
	return gm.act(ctx, playerID, "sell", func(s *Session) (string, error) { return s.Sell(item, qty) })
}

// Deposit moves cash into the bank
func (gm *GameManager) Deposit(ctx context.Context, playerID string, amount int) (string, error) {
	return gm.act(ctx, playerID, "deposit", func(s *Session) (string, error) { return s.Deposit(amount) })
}

// Withdraw moves money out of the bank
func (gm *GameManager) Withdraw(ctx context.Context, playerID string, amount int) (string, error) {
	return gm.act(ctx, playerID, "withdraw", func(s *Session) (string, error) { return s.Withdraw(amount) })
}

// TakeLoan borrows from the loan shark
func (gm *GameManager) TakeLoan(ctx context.Context, playerID string) (string, error) {
	return gm.act(ctx, playerID, "loan", func(s *Session) (string, error) { return s.TakeLoan() })
}

// RepayLoan pays off the loan shark
func (gm *GameManager) RepayLoan(ctx context.Context, playerID string) (string, error) {
	return gm.act(ctx, playerID, "repay", func(s *Session) (string, error) { return s.RepayLoan() })
}

// BuyStashHouse buys a stash house in the current city
func (gm *GameManager) BuyStashHouse(ctx context.Context, playerID string) (string, error) {
	return gm.act(ctx, playerID, "stash_buy", func(s *Session) (string, error) { return s.BuyStashHouse() })
}

// MoveToStash stores goods in the local stash house
func (gm *GameManager) MoveToStash(ctx context.Context, playerID, item string, qty int) (string, error) {
	return gm.act(ctx, playerID, "stash_put", func(s *Session) (string, error) { return s.MoveToStash(item, qty) })
}

// MoveFromStash takes goods out of the local stash house
func (gm *GameManager) MoveFromStash(ctx context.Context, playerID, item string, qty int) (string, error) {
	return gm.act(ctx, playerID, "stash_take", func(s *Session) (string, error) { return s.MoveFromStash(item, qty) })
}

// UpgradeInventory buys more carrying space
func (gm *GameManager) UpgradeInventory(ctx context.Context, playerID string) (string, error) {
	return gm.act(ctx, playerID, "upgrade", func(s *Session) (string, error) { return s.UpgradeInventory() })
}

// UpgradeStashHouse enlarges the local stash house
func (gm *GameManager) UpgradeStashHouse(ctx context.Context, playerID string) (string, error) {
	return gm.act(ctx, playerID, "stash_upgrade", func(s *Session) (string, error) { return s.UpgradeStashHouse() })
}

// JoinAlliance joins an alliance
func (gm *GameManager) JoinAlliance(ctx context.Context, playerID, alliance string) (string, error) {
	return gm.act(ctx, playerID, "join", func(s *Session) (string, error) { return s.JoinAlliance(alliance) })
}

// AcceptMission accepts a mission offered in the current city
func (gm *GameManager) AcceptMission(ctx context.Context, playerID, missionID string) (string, error) {
	return gm.act(ctx, playerID, "mission_accept", func(s *Session) (string, error) { return s.AcceptMission(missionID) })
}

// AbandonMission drops the active mission
func (gm *GameManager) AbandonMission(ctx context.Context, playerID string) (string, error) {
	return gm.act(ctx, playerID, "mission_abandon", func(s *Session) (string, error) { return s.AbandonMission() })
}

// CompleteMission turns in the active mission
func (gm *GameManager) CompleteMission(ctx context.Context, playerID string) (string, error) {
	return gm.act(ctx, playerID, "mission_complete", func(s *Session) (string, error) { return s.CompleteMission() })
}
