package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/user/dopewars-engine/internal/game"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

func init() {
	color.NoColor = true
}

// MockSessions is a mock implementation of sessions
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) LoadGame(ctx context.Context, playerID string) (*types.StatusView, error) {
	args := m.Called(playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.StatusView), args.Error(1)
}

func (m *MockSessions) Status(playerID string) (*types.StatusView, error) {
	args := m.Called(playerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.StatusView), args.Error(1)
}

// MockCommandHandler is a mock implementation of interfaces.CommandHandler
type MockCommandHandler struct {
	mock.Mock
}

func (m *MockCommandHandler) Handle(ctx context.Context, playerID, input string) string {
	return m.Called(playerID, input).String(0)
}

func testView() *types.StatusView {
	return &types.StatusView{
		Day:     3,
		MaxDays: 30,
		City:    "Miami",
		Phase:   types.PhaseActive,
		Player: &types.PlayerState{
			Cash:           1500,
			BankBalance:    250,
			Inventory:      map[string]int{"Weed": 10, "Acid": 2},
			InventorySpace: 100,
			InventoryUsed:  12,
			StashHouses:    []types.StashHouse{{City: "Miami", Capacity: 250, Used: 40}},
		},
		NetWorth: 5750,
		Market: []types.MarketQuote{
			{Item: "Weed", Price: 420, Owned: 10},
			{Item: "Cocaine", Price: 15250, Discounted: true},
		},
	}
}

func TestRenderMarket(t *testing.T) {
	var buf bytes.Buffer
	renderMarket(&buf, testView())
	out := buf.String()

	assert.Contains(t, out, "Miami, day 3/30")
	assert.Contains(t, out, "Weed")
	assert.Contains(t, out, "$420")
	assert.Contains(t, out, "$15,250 *")
	assert.Contains(t, out, "Cash $1,500, space 12/100")
	assert.NotContains(t, out, "loan shark")
}

func TestRenderStatus(t *testing.T) {
	view := testView()
	view.Phase = types.PhaseGameOverByDuration
	view.GameOverMessage = "You survived 30 days! Final net worth: $5,750."

	var buf bytes.Buffer
	renderStatus(&buf, view)
	out := buf.String()

	assert.Contains(t, out, "Day 3/30 in Miami")
	assert.Contains(t, out, "$5,750")
	assert.Less(t, strings.Index(out, "Acid"), strings.Index(out, "Weed"))
	assert.Contains(t, out, "Space 12/100")
	assert.Contains(t, out, "250")
	assert.Contains(t, out, "You survived 30 days!")
}

func TestRenderTables(t *testing.T) {
	var buf bytes.Buffer
	tbl := tables.Default()
	renderTables(&buf, tbl)

	for _, c := range tbl.Cities {
		assert.Contains(t, buf.String(), c.Name)
	}
	for _, it := range tbl.Items {
		assert.Contains(t, buf.String(), it.Name)
	}
}

func TestREPL(t *testing.T) {
	sessions := new(MockSessions)
	handler := new(MockCommandHandler)
	sessions.On("LoadGame", "local").Return(nil, game.ErrNoSnapshot)
	sessions.On("Status", "local").Return(testView(), nil).Once()
	handler.On("Handle", "local", "new 30").Return("✅ *Welcome to Bronx*")
	handler.On("Handle", "local", "/travel miami").Return("✈️ *Bronx → Miami*")

	var out bytes.Buffer
	r := &repl{
		ctx:        context.Background(),
		player:     "local",
		manager:    sessions,
		dispatcher: handler,
		out:        &out,
	}

	in := strings.NewReader("new 30\n\n/travel miami\nmarket\nexit\nstatus\n")
	require.NoError(t, r.run(in))

	text := out.String()
	assert.Contains(t, text, "No saved game")
	assert.Contains(t, text, "✅ Welcome to Bronx")
	assert.Contains(t, text, "✈️ Bronx → Miami")
	assert.Contains(t, text, "$15,250 *")

	// Nothing after exit runs
	sessions.AssertNumberOfCalls(t, "Status", 1)
	handler.AssertExpectations(t)
}

func TestREPLFallsBackToDispatcher(t *testing.T) {
	sessions := new(MockSessions)
	handler := new(MockCommandHandler)
	sessions.On("Status", "local").Return(nil, game.ErrNoSession)
	handler.On("Handle", "local", "status").Return("No game in progress. Start one with /new 30.")

	var out bytes.Buffer
	r := &repl{ctx: context.Background(), player: "local", manager: sessions, dispatcher: handler, out: &out}

	assert.True(t, r.execute("status"))
	assert.Contains(t, out.String(), "No game in progress")
	assert.False(t, r.execute("q"))
}
