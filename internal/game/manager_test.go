package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/dopewars-engine/config"
	"github.com/user/dopewars-engine/internal/ledger"
	"github.com/user/dopewars-engine/internal/risk"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

// stubSource serves a fixed event batch and bust outcome. Refill-sized
// requests block on gate when it is set.
type stubSource struct {
	mu        sync.Mutex
	events    []types.MarketEvent
	batchErr  error
	bust      *types.BustOutcome
	gate      chan struct{}
	gateCount int
	calls     int
}

func (s *stubSource) FetchEventBatch(ctx context.Context, count int) ([]types.MarketEvent, error) {
	s.mu.Lock()
	s.calls++
	gate := s.gate
	if count != s.gateCount {
		gate = nil
	}
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if s.batchErr != nil {
		return nil, s.batchErr
	}
	return append([]types.MarketEvent(nil), s.events...), nil
}

func (s *stubSource) FetchBustEvent(ctx context.Context, req types.BustRequest) (*types.BustOutcome, error) {
	if s.bust == nil {
		return nil, nil
	}
	out := *s.bust
	return &out, nil
}

// recordingNotifier collects published log lines
type recordingNotifier struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (n *recordingNotifier) Notify(playerID string, lines []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lines == nil {
		n.lines = make(map[string][]string)
	}
	n.lines[playerID] = append(n.lines[playerID], lines...)
}

func (n *recordingNotifier) all(playerID string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.lines[playerID]...)
}

func testEvents() []types.MarketEvent {
	return []types.MarketEvent{
		{Description: "Cops raided a Weed warehouse", AffectedItem: "Weed", AffectedCity: "Miami", Multiplier: 2.5},
		{Description: "Cheap Speed floods the streets", AffectedItem: "Speed", AffectedCity: "Chicago", Multiplier: 0.4},
	}
}

func newTestManager(t *testing.T, source *stubSource, store SnapshotStore) *GameManager {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Game.Seed = 42
	cfg.Content.BatchTimeout = 5

	tbl := tables.Default()
	resolver := risk.NewResolver(source, tbl, time.Second, nil)
	engine := NewEngine(tbl, cfg.Game, resolver)
	source.gateCount = cfg.Game.RefillEventBatch

	store = storeOrTemp(t, store)
	return NewGameManager(cfg, engine, store, source)
}

func storeOrTemp(t *testing.T, store SnapshotStore) SnapshotStore {
	if store != nil {
		return store
	}
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return fs
}

// session returns the live session for white-box checks
func (gm *GameManager) session(t *testing.T, playerID string) *Session {
	t.Helper()
	e, ok := gm.lookup(playerID)
	require.True(t, ok)
	e.mu.Lock()
	defer e.mu.Unlock()
	require.NotNil(t, e.session)
	return e.session
}

func otherCity(gm *GameManager, current string) string {
	for _, c := range gm.Tables().Cities {
		if c.Name != current && !c.Overseas {
			return c.Name
		}
	}
	return ""
}

func TestStartNewGame(t *testing.T) {
	source := &stubSource{events: testEvents()}
	gm := newTestManager(t, source, nil)
	ctx := context.Background()

	// Test case 1: Invalid duration
	_, err := gm.StartNewGame(ctx, "p1", 45)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	// Test case 2: Fresh game
	view, err := gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Day)
	assert.Equal(t, 30, view.MaxDays)
	assert.Equal(t, types.PhaseActive, view.Phase)
	assert.Equal(t, 2000, view.Player.Cash)
	assert.Equal(t, 100, view.Player.InventorySpace)
	assert.Len(t, view.Market, len(gm.Tables().Items))
	assert.NotEmpty(t, view.SessionID)

	starting := gm.Tables().StartingCities()
	names := make([]string, 0, len(starting))
	for _, c := range starting {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, view.City)

	s := gm.session(t, "p1")
	assert.Len(t, s.Scheduler().Catalogue, 2)
}

func TestStartNewGameFallsBackToStaticEvents(t *testing.T) {
	source := &stubSource{batchErr: errors.New("quota exceeded")}
	gm := newTestManager(t, source, nil)

	_, err := gm.StartNewGame(context.Background(), "p1", 60)
	require.NoError(t, err)

	s := gm.session(t, "p1")
	assert.Equal(t, gm.Tables().FallbackEvents, s.Scheduler().Catalogue)
}

func TestOperationsWithoutSession(t *testing.T) {
	gm := newTestManager(t, &stubSource{events: testEvents()}, nil)
	ctx := context.Background()

	_, err := gm.Status("nobody")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = gm.Buy(ctx, "nobody", "Weed", 1)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = gm.Travel(ctx, "nobody", "Miami")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, gm.SaveGame(ctx, "nobody"), ErrNoSession)
	assert.ErrorIs(t, gm.EndGame(ctx, "nobody"), ErrNoSession)
	_, err = gm.LoadGame(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestAutosaveAfterAction(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	gm := newTestManager(t, &stubSource{events: testEvents()}, store)
	ctx := context.Background()

	_, err = gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)

	// A new game is not saved until the first action
	_, err = store.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	msg, err := gm.Deposit(ctx, "p1", 500)
	require.NoError(t, err)
	assert.Equal(t, "Deposited $500 into the bank.", msg)

	data, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	snap, err := gm.engine.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, 500, snap.Player.BankBalance)
	assert.Equal(t, 1500, snap.Player.Cash)
}

func TestRejectedActionIsLoggedNotSaved(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	gm := newTestManager(t, &stubSource{events: testEvents()}, store)
	notifier := &recordingNotifier{}
	gm.SetNotifier(notifier)
	ctx := context.Background()

	_, err = gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)

	_, err = gm.Deposit(ctx, "p1", 999999)
	assert.ErrorIs(t, err, ledger.ErrInsufficientCash)

	lines := notifier.all("p1")
	require.NotEmpty(t, lines)
	assert.Equal(t, "[Day 1] Not enough cash: you have $2000.", lines[len(lines)-1])

	_, err = store.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	view, err := gm.Status("p1")
	require.NoError(t, err)
	assert.Equal(t, 2000, view.Player.Cash)
	assert.Equal(t, "[Day 1] Not enough cash: you have $2000.", view.Log[0])
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	source := &stubSource{events: testEvents()}
	gm := newTestManager(t, source, store)
	ctx := context.Background()

	started, err := gm.StartNewGame(ctx, "p1", 90)
	require.NoError(t, err)
	_, err = gm.Deposit(ctx, "p1", 700)
	require.NoError(t, err)
	require.NoError(t, gm.SaveGame(ctx, "p1"))

	before := gm.session(t, "p1")

	// A second manager over the same store picks the game up
	other := newTestManager(t, &stubSource{events: testEvents()}, store)
	view, err := other.LoadGame(ctx, "p1")
	require.NoError(t, err)
	other.Wait()

	assert.Equal(t, started.SessionID, view.SessionID)
	assert.Equal(t, before.Day, view.Day)
	assert.Equal(t, before.City, view.City)
	assert.Equal(t, 90, view.MaxDays)
	assert.Equal(t, 700, view.Player.BankBalance)
	assert.Equal(t, 1300, view.Player.Cash)
	assert.Equal(t, before.Prices(), other.session(t, "p1").Prices())
	assert.Equal(t, before.Log().Entries(), view.Log)
}

func TestLoadCorruptSnapshot(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	gm := newTestManager(t, &stubSource{events: testEvents()}, store)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "p1", []byte("{not json")))

	_, err = gm.LoadGame(ctx, "p1")
	assert.ErrorIs(t, err, ErrCorruptSnapshot)

	// The bad save is gone
	_, err = store.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	// Unknown city is corrupt too
	require.NoError(t, store.Put(ctx, "p1", []byte(`{"day":3,"current_city":"Atlantis","player":{"cash":10}}`)))
	_, err = gm.LoadGame(ctx, "p1")
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestLoadFillsMissingFields(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	gm := newTestManager(t, &stubSource{events: testEvents()}, store)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "p1", []byte(`{"day":4,"current_city":"Miami","player":{"cash":1234,"inventory":{"Weed":3}}}`)))

	view, err := gm.LoadGame(ctx, "p1")
	require.NoError(t, err)
	gm.Wait()

	assert.Equal(t, 4, view.Day)
	assert.Equal(t, "Miami", view.City)
	assert.Equal(t, 30, view.MaxDays)
	assert.Equal(t, 1234, view.Player.Cash)
	assert.Equal(t, 3, view.Player.InventoryUsed)
	assert.Len(t, view.Market, len(gm.Tables().Items))
}

func TestTravelAdvancesDay(t *testing.T) {
	gm := newTestManager(t, &stubSource{events: testEvents()}, nil)
	ctx := context.Background()

	view, err := gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)

	// Same city is rejected
	_, err = gm.Travel(ctx, "p1", view.City)
	assert.ErrorIs(t, err, ErrSameCity)

	_, err = gm.Travel(ctx, "p1", "Atlantis")
	assert.ErrorIs(t, err, ErrUnknownCity)

	dest := otherCity(gm, view.City)
	report, err := gm.Travel(ctx, "p1", dest)
	require.NoError(t, err)
	gm.Wait()

	assert.Equal(t, view.City, report.From)
	assert.Equal(t, dest, report.To)
	assert.Equal(t, 2, report.Day)
	assert.Equal(t, types.PhaseActive, report.Phase)
	assert.Nil(t, report.Bust)

	status, err := gm.Status("p1")
	require.NoError(t, err)
	assert.Equal(t, dest, status.City)
	assert.Equal(t, 2, status.Day)
}

func TestTravelBust(t *testing.T) {
	source := &stubSource{
		events: testEvents(),
		bust: &types.BustOutcome{
			Description:  "Crooked cops shook you down.",
			PenaltyType:  types.PenaltyCash,
			CashFraction: 0.5,
		},
	}
	gm := newTestManager(t, source, nil)
	ctx := context.Background()

	view, err := gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)

	report, err := gm.Travel(ctx, "p1", otherCity(gm, view.City))
	require.NoError(t, err)
	gm.Wait()

	require.NotNil(t, report.Bust)
	assert.Equal(t, 1000, report.Bust.CashLost)

	status, err := gm.Status("p1")
	require.NoError(t, err)
	assert.Equal(t, 1000, status.Player.Cash)

	found := false
	for _, line := range status.Log {
		if strings.Contains(line, "BUSTED! Crooked cops shook you down. You lost $1,000.") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLoanDefaultEndsGame(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	gm := newTestManager(t, &stubSource{events: testEvents()}, store)
	ctx := context.Background()

	view, err := gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)
	require.NoError(t, gm.SaveGame(ctx, "p1"))

	// Cash covers the debt; default applies anyway
	s := gm.session(t, "p1")
	s.Day = 15
	p := s.player()
	p.Cash = 8000
	p.BankBalance = 1000
	p.Debt = 5000
	p.LoanTaken = true
	p.StashHouses = []types.StashHouse{{City: "Miami", Capacity: 250, Contents: map[string]int{"Weed": 10}, Used: 10}}

	report, err := gm.Travel(ctx, "p1", otherCity(gm, view.City))
	require.NoError(t, err)

	assert.Equal(t, types.PhaseGameOverByDefault, report.Phase)
	assert.Equal(t, 15, report.Day)
	assert.Contains(t, report.Message, "GAME OVER")

	// Upkeep and interest are not charged on the default tick
	status, err := gm.Status("p1")
	require.NoError(t, err)
	assert.Equal(t, 8000, status.Player.Cash)
	assert.Equal(t, 1000, status.Player.BankBalance)
	assert.Equal(t, 5000, status.Player.Debt)
	assert.Len(t, status.Player.StashHouses, 1)

	// The finished game's save is removed
	_, err = store.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = gm.Buy(ctx, "p1", "Weed", 1)
	assert.ErrorIs(t, err, ErrGameOver)
	assert.ErrorIs(t, gm.SaveGame(ctx, "p1"), ErrGameOver)
}

func TestSurvivingTheFullDuration(t *testing.T) {
	gm := newTestManager(t, &stubSource{events: testEvents()}, nil)
	ctx := context.Background()

	view, err := gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)

	s := gm.session(t, "p1")
	s.Day = 30

	report, err := gm.Travel(ctx, "p1", otherCity(gm, view.City))
	require.NoError(t, err)

	assert.Equal(t, types.PhaseGameOverByDuration, report.Phase)
	assert.Equal(t, "You survived 30 days! Final net worth: $2,000.", report.Message)
	assert.Equal(t, 30, report.Day)
}

func TestUpkeepForfeitsStashWhenBroke(t *testing.T) {
	gm := newTestManager(t, &stubSource{events: testEvents()}, nil)
	ctx := context.Background()

	view, err := gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)

	s := gm.session(t, "p1")
	p := s.player()
	p.Cash = 50
	p.StashHouses = []types.StashHouse{{City: "Miami", Capacity: 250, Contents: map[string]int{"Weed": 10}, Used: 10}}

	_, err = gm.Travel(ctx, "p1", otherCity(gm, view.City))
	require.NoError(t, err)
	gm.Wait()

	status, err := gm.Status("p1")
	require.NoError(t, err)
	assert.Equal(t, 0, status.Player.Cash)
	assert.Empty(t, status.Player.StashHouses)
	assert.Equal(t, types.PhaseActive, status.Phase)
}

func TestRefillExtendsQueue(t *testing.T) {
	source := &stubSource{events: testEvents(), gate: make(chan struct{})}
	gm := newTestManager(t, source, nil)
	ctx := context.Background()

	view, err := gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)

	_, err = gm.Travel(ctx, "p1", otherCity(gm, view.City))
	require.NoError(t, err)

	e, _ := gm.lookup("p1")
	e.mu.Lock()
	pending := len(e.session.Scheduler().Pending)
	assert.Equal(t, e.session.Generation, e.refillGen)
	e.mu.Unlock()

	close(source.gate)
	gm.Wait()

	s := gm.session(t, "p1")
	assert.Len(t, s.Scheduler().Pending, pending+2)
}

func TestStaleRefillIsDiscarded(t *testing.T) {
	source := &stubSource{events: testEvents(), gate: make(chan struct{})}
	gm := newTestManager(t, source, nil)
	ctx := context.Background()

	view, err := gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)
	oldGen := gm.session(t, "p1").Generation

	_, err = gm.Travel(ctx, "p1", otherCity(gm, view.City))
	require.NoError(t, err)

	// Reset while the refill is in flight
	_, err = gm.ResetGame(ctx, "p1")
	require.NoError(t, err)

	s := gm.session(t, "p1")
	assert.NotEqual(t, oldGen, s.Generation)
	assert.Equal(t, 1, s.Day)

	close(source.gate)
	gm.Wait()

	s = gm.session(t, "p1")
	assert.Len(t, s.Scheduler().Pending, 2)
}

func TestEndGameDeletesSave(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	gm := newTestManager(t, &stubSource{events: testEvents()}, store)
	ctx := context.Background()

	_, err = gm.StartNewGame(ctx, "p1", 30)
	require.NoError(t, err)
	_, err = gm.Deposit(ctx, "p1", 10)
	require.NoError(t, err)

	require.NoError(t, gm.EndGame(ctx, "p1"))

	_, err = store.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, err = gm.Status("p1")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestResetKeepsDuration(t *testing.T) {
	gm := newTestManager(t, &stubSource{events: testEvents()}, nil)
	ctx := context.Background()

	first, err := gm.StartNewGame(ctx, "p1", 60)
	require.NoError(t, err)
	_, err = gm.Deposit(ctx, "p1", 100)
	require.NoError(t, err)

	view, err := gm.ResetGame(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 60, view.MaxDays)
	assert.Equal(t, 0, view.Player.BankBalance)
	assert.NotEqual(t, first.SessionID, view.SessionID)
}

func TestPlayersAreIsolated(t *testing.T) {
	gm := newTestManager(t, &stubSource{events: testEvents()}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := gm.StartNewGame(ctx, id, 30)
			assert.NoError(t, err)
			for i := 0; i < 10; i++ {
				_, err := gm.Deposit(ctx, id, 10)
				assert.NoError(t, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range []string{"a", "b", "c", "d"} {
		view, err := gm.Status(id)
		require.NoError(t, err)
		assert.Equal(t, 100, view.Player.BankBalance)
	}
}
