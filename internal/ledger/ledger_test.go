package ledger

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/dopewars-engine/config"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
)

func newLedger(t *testing.T) *Ledger {
	t.Helper()
	cfg := config.DefaultGameConfig()
	return New(NewPlayer(cfg), tables.Default(), cfg)
}

func assertInvariants(t *testing.T, p *types.PlayerState) {
	t.Helper()
	sum := 0
	for _, qty := range p.Inventory {
		assert.GreaterOrEqual(t, qty, 0)
		assert.LessOrEqual(t, qty, p.InventorySpace)
		sum += qty
	}
	assert.Equal(t, sum, p.InventoryUsed)
	assert.LessOrEqual(t, p.InventoryUsed, p.InventorySpace)
	assert.GreaterOrEqual(t, p.Cash, 0)
	assert.GreaterOrEqual(t, p.BankBalance, 0)
	assert.GreaterOrEqual(t, p.Debt, 0)

	cities := map[string]bool{}
	for _, sh := range p.StashHouses {
		assert.False(t, cities[sh.City], "duplicate stash house in %s", sh.City)
		cities[sh.City] = true
		assert.LessOrEqual(t, sh.Used, sh.Capacity)
	}
}

func TestBuyScenario(t *testing.T) {
	l := newLedger(t)

	require.NoError(t, l.Buy("Weed", 5, 100))
	p := l.Player()
	assert.Equal(t, 1500, p.Cash)
	assert.Equal(t, 5, p.Inventory["Weed"])
	assert.Equal(t, 5, p.InventoryUsed)
}

func TestBuyRejectionsLeaveStateUnchanged(t *testing.T) {
	l := newLedger(t)
	before := l.Player().Clone()

	assert.ErrorIs(t, l.Buy("Weed", 0, 100), ErrInvalidQuantity)
	assert.ErrorIs(t, l.Buy("Weed", 1, 0), ErrInvalidPrice)
	assert.ErrorIs(t, l.Buy("Water", 1, 10), ErrUnknownItem)
	assert.ErrorIs(t, l.Buy("Weed", 30, 100), ErrInsufficientCash)
	assert.ErrorIs(t, l.Buy("Speed", 101, 1), ErrInsufficientSpace)
	assert.ErrorIs(t, l.Buy("Speed", math.MaxInt, 2), ErrInsufficientSpace)

	assert.Equal(t, before, l.Player())

	// Test case: quantities that would wrap qty*price
	require.NoError(t, l.Buy("Weed", 1, 100))
	before = l.Player().Clone()
	assert.ErrorIs(t, l.Buy("Speed", math.MaxInt, 2), ErrInsufficientSpace)
	assert.ErrorIs(t, l.Buy("Speed", math.MaxInt-1, math.MaxInt), ErrInsufficientSpace)
	assert.Equal(t, before, l.Player())

	l.Player().InventorySpace = math.MaxInt
	before = l.Player().Clone()
	assert.ErrorIs(t, l.Buy("Speed", math.MaxInt/2, 3), ErrInsufficientCash)
	assert.ErrorIs(t, l.Buy("Speed", 2, math.MaxInt), ErrInsufficientCash)
	assert.Equal(t, before, l.Player())
	assertInvariants(t, l.Player())

	// Exactly the cash on hand is still allowed
	require.NoError(t, l.Buy("Speed", 19, 100))
	assert.Equal(t, 0, l.Player().Cash)
	assert.Equal(t, 20, l.Player().InventoryUsed)
}

func TestSell(t *testing.T) {
	l := newLedger(t)
	require.NoError(t, l.Buy("Weed", 10, 100))

	assert.ErrorIs(t, l.Sell("Weed", 11, 100), ErrInsufficientStock)
	assert.ErrorIs(t, l.Sell("Coke", 1, 100), ErrInsufficientStock)

	require.NoError(t, l.Sell("Weed", 10, 150))
	assert.Equal(t, 2500, l.Player().Cash)
	assert.Equal(t, 0, l.Player().InventoryUsed)
	assert.NotContains(t, l.Player().Inventory, "Weed")
}

func TestBanking(t *testing.T) {
	l := newLedger(t)

	assert.ErrorIs(t, l.Deposit(0), ErrInvalidAmount)
	assert.ErrorIs(t, l.Deposit(2001), ErrInsufficientCash)
	require.NoError(t, l.Deposit(2000))
	assert.Equal(t, 0, l.Player().Cash)
	assert.Equal(t, 2000, l.Player().BankBalance)

	assert.ErrorIs(t, l.Withdraw(-1), ErrInvalidAmount)
	assert.ErrorIs(t, l.Withdraw(2001), ErrInsufficientFunds)
	require.NoError(t, l.Withdraw(500))
	assert.Equal(t, 500, l.Player().Cash)
	assert.Equal(t, 1500, l.Player().BankBalance)
}

func TestLoanLifecycle(t *testing.T) {
	l := newLedger(t)

	assert.ErrorIs(t, l.TakeLoan("Miami"), ErrWrongCity)
	assert.ErrorIs(t, l.RepayLoan("Las Vegas"), ErrNoDebt)

	require.NoError(t, l.TakeLoan("Las Vegas"))
	assert.Equal(t, 7000, l.Player().Cash)
	assert.Equal(t, 5000, l.Player().Debt)

	assert.ErrorIs(t, l.TakeLoan("Las Vegas"), ErrLoanTaken)

	l.Player().Cash = 100
	assert.ErrorIs(t, l.RepayLoan("Las Vegas"), ErrInsufficientCash)
	l.Player().Cash = 6000
	require.NoError(t, l.RepayLoan("Las Vegas"))
	assert.Equal(t, 1000, l.Player().Cash)
	assert.Equal(t, 0, l.Player().Debt)

	// The flag is sticky
	assert.ErrorIs(t, l.TakeLoan("Las Vegas"), ErrLoanTaken)
}

func TestUpgradeInventoryCostGrows(t *testing.T) {
	l := newLedger(t)
	l.Player().Cash = 100000

	assert.Equal(t, 5000, l.InventoryUpgradeCost())
	require.NoError(t, l.UpgradeInventory())
	assert.Equal(t, 150, l.Player().InventorySpace)
	assert.Equal(t, 95000, l.Player().Cash)

	// round(5000 * 1.8)
	assert.Equal(t, 9000, l.InventoryUpgradeCost())
	require.NoError(t, l.UpgradeInventory())
	// round(5000 * 1.8^2)
	assert.Equal(t, 16200, l.InventoryUpgradeCost())

	l.Player().Cash = 10
	assert.ErrorIs(t, l.UpgradeInventory(), ErrInsufficientCash)
	assert.Equal(t, 2, l.Player().InventoryUpgrades)
}

func TestStashHouses(t *testing.T) {
	l := newLedger(t)
	p := l.Player()

	assert.ErrorIs(t, l.BuyStashHouse("Miami"), ErrInsufficientCash)
	p.Cash = 200000
	require.NoError(t, l.BuyStashHouse("Miami"))
	assert.ErrorIs(t, l.BuyStashHouse("Miami"), ErrStashExists)
	assert.Equal(t, 150000, p.Cash)

	require.NoError(t, l.Buy("Weed", 80, 10))
	assert.ErrorIs(t, l.MoveToStash("Erie", "Weed", 1), ErrNoStash)
	assert.ErrorIs(t, l.MoveToStash("Miami", "Weed", 81), ErrInsufficientStock)
	require.NoError(t, l.MoveToStash("Miami", "Weed", 60))

	sh := p.StashHouses[0]
	assert.Equal(t, 60, sh.Used)
	assert.Equal(t, 20, p.InventoryUsed)

	assert.ErrorIs(t, l.MoveFromStash("Miami", "Weed", 61), ErrInsufficientStock)
	require.NoError(t, l.MoveFromStash("Miami", "Weed", 60))
	assert.Equal(t, 0, p.StashHouses[0].Used)
	assert.Equal(t, 80, p.InventoryUsed)

	// Stash capacity
	p.StashHouses[0].Capacity = 10
	assert.ErrorIs(t, l.MoveToStash("Miami", "Weed", 11), ErrInsufficientSpace)

	// Inventory capacity on the way out
	require.NoError(t, l.MoveToStash("Miami", "Weed", 10))
	require.NoError(t, l.Buy("Speed", 30, 1))
	assert.ErrorIs(t, l.MoveFromStash("Miami", "Weed", 10), ErrInsufficientSpace)

	assertInvariants(t, p)
}

func TestUpgradeStashHouse(t *testing.T) {
	l := newLedger(t)
	p := l.Player()
	p.Cash = 200000

	assert.ErrorIs(t, l.UpgradeStashHouse("Miami"), ErrNoStash)
	require.NoError(t, l.BuyStashHouse("Miami"))

	cost, ok := l.StashUpgradeCost("Miami")
	require.True(t, ok)
	assert.Equal(t, 25000, cost)

	require.NoError(t, l.UpgradeStashHouse("Miami"))
	assert.Equal(t, 350, p.StashHouses[0].Capacity)
	assert.Equal(t, 1, p.StashHouses[0].UpgradeLevel)

	cost, _ = l.StashUpgradeCost("Miami")
	assert.Equal(t, 50000, cost)
}

func TestAlliances(t *testing.T) {
	l := newLedger(t)
	p := l.Player()

	assert.ErrorIs(t, l.JoinAlliance("The Nobodies"), ErrUnknownAlliance)
	assert.ErrorIs(t, l.JoinAlliance("The Bayou Boys"), ErrInsufficientCash)

	p.Cash = 30000
	require.NoError(t, l.JoinAlliance("The Bayou Boys"))
	assert.Equal(t, 22500, p.Cash)
	assert.ErrorIs(t, l.JoinAlliance("The Bayou Boys"), ErrAlreadyMember)

	// Switching is allowed and never refunded
	require.NoError(t, l.JoinAlliance("The Desert Scorpions"))
	assert.Equal(t, 15000, p.Cash)
	assert.Equal(t, "The Desert Scorpions", p.Alliance)
}

func TestTradePriceDiscount(t *testing.T) {
	l := newLedger(t)
	l.Player().Alliance = "The East Coast Kings"

	price, discounted := l.TradePrice("New York", "Coke", 1000)
	assert.True(t, discounted)
	assert.Equal(t, 850, price)

	price, discounted = l.TradePrice("Miami", "Coke", 1000)
	assert.False(t, discounted)
	assert.Equal(t, 1000, price)

	price, discounted = l.TradePrice("New York", "Weed", 1000)
	assert.False(t, discounted)
	assert.Equal(t, 1000, price)
}

func TestDeliverMission(t *testing.T) {
	l := newLedger(t)
	p := l.Player()

	assert.ErrorIs(t, l.AcceptMission("ny_coke_run", "Miami"), ErrWrongCity)
	assert.ErrorIs(t, l.AcceptMission("nope", "Miami"), ErrMissionUnavailable)
	require.NoError(t, l.AcceptMission("ny_coke_run", "New York"))
	assert.ErrorIs(t, l.AcceptMission("ny_coke_run", "New York"), ErrMissionActive)

	p.Inventory["Coke"] = 12
	p.RecountInventory()

	_, err := l.CompleteMission("New York")
	assert.ErrorIs(t, err, ErrObjectivesNotMet)

	m, err := l.CompleteMission("Miami")
	require.NoError(t, err)
	assert.Equal(t, "ny_coke_run", m.ID)
	assert.Equal(t, 2, p.Inventory["Coke"])
	assert.Equal(t, 2, p.InventoryUsed)
	assert.Equal(t, 2000+25000, p.Cash)
	assert.Empty(t, p.ActiveMissionID)
	assert.True(t, p.HasCompleted("ny_coke_run"))

	assert.ErrorIs(t, l.AcceptMission("ny_coke_run", "New York"), ErrMissionCompleted)
	assert.Empty(t, l.AvailableMissions("New York"))
}

func TestCashMissionAndAbandon(t *testing.T) {
	l := newLedger(t)
	p := l.Player()

	_, err := l.AbandonMission()
	assert.ErrorIs(t, err, ErrNoActiveMission)

	require.NoError(t, l.AcceptMission("chicago_cash_up", "Chicago"))
	_, err = l.CompleteMission("Chicago")
	assert.ErrorIs(t, err, ErrObjectivesNotMet)

	m, err := l.AbandonMission()
	require.NoError(t, err)
	assert.Equal(t, "chicago_cash_up", m.ID)
	assert.Len(t, l.AvailableMissions("Chicago"), 1)

	require.NoError(t, l.AcceptMission("chicago_cash_up", "Chicago"))
	p.Cash = 50000
	// Cash objectives complete anywhere
	_, err = l.CompleteMission("Erie")
	require.NoError(t, err)
	assert.Equal(t, 60000, p.Cash)
}

func TestApplyBustScenario(t *testing.T) {
	l := newLedger(t)
	p := l.Player()
	p.Cash = 1000
	p.Inventory["Weed"] = 10
	p.RecountInventory()

	report := l.ApplyBust(types.BustOutcome{
		Description:       "Raid",
		PenaltyType:       types.PenaltyBoth,
		CashFraction:      0.3,
		InventoryFraction: 0.5,
	})

	assert.Equal(t, 300, report.CashLost)
	assert.Equal(t, 5, report.ItemsLost["Weed"])
	assert.Equal(t, 700, p.Cash)
	assert.Equal(t, 5, p.Inventory["Weed"])
	assert.Equal(t, 5, p.InventoryUsed)
}

func TestApplyBustPerItemCeil(t *testing.T) {
	l := newLedger(t)
	p := l.Player()
	p.Inventory["Weed"] = 3
	p.Inventory["Speed"] = 1
	p.RecountInventory()

	report := l.ApplyBust(types.BustOutcome{PenaltyType: types.PenaltyInventory, InventoryFraction: 0.2})
	assert.Equal(t, 0, report.CashLost)
	assert.Equal(t, map[string]int{"Weed": 1, "Speed": 1}, report.ItemsLost)
	assert.Equal(t, 2, p.InventoryUsed)
	assert.Equal(t, 2000, p.Cash)

	l.ApplyBust(types.BustOutcome{PenaltyType: types.PenaltyInventory, InventoryFraction: 1.0})
	assert.Equal(t, 0, p.InventoryUsed)
	assert.Empty(t, p.Inventory)
}

func TestNetWorthUsesBasePrices(t *testing.T) {
	l := newLedger(t)
	p := l.Player()
	p.Cash = 1000
	p.BankBalance = 500
	p.Debt = 300
	p.Inventory["Weed"] = 2
	p.StashHouses = []types.StashHouse{{City: "Miami", Capacity: 250, Contents: map[string]int{"Speed": 4}}}

	assert.Equal(t, 1000+500-300+2*400+4*150, l.NetWorth())
	assert.Equal(t, 800, l.InventoryValue())
}

func TestChargeUpkeep(t *testing.T) {
	l := newLedger(t)
	p := l.Player()

	assert.Equal(t, UpkeepResult{}, l.ChargeUpkeep())

	p.StashHouses = []types.StashHouse{
		{City: "Miami", Capacity: 250, Contents: map[string]int{}},
		{City: "Erie", Capacity: 250, Contents: map[string]int{}},
	}
	p.Cash = 500
	res := l.ChargeUpkeep()
	assert.Equal(t, 200, res.Charged)
	assert.Nil(t, res.Forfeited)
	assert.Equal(t, 300, p.Cash)

	// Insolvent: oldest house lost and cash zeroed
	p.Cash = 150
	res = l.ChargeUpkeep()
	require.NotNil(t, res.Forfeited)
	assert.Equal(t, "Miami", res.Forfeited.City)
	assert.Equal(t, 0, p.Cash)
	require.Len(t, p.StashHouses, 1)
	assert.Equal(t, "Erie", p.StashHouses[0].City)
}

func TestInterest(t *testing.T) {
	l := newLedger(t)
	p := l.Player()

	assert.Equal(t, 0, l.AccrueBankInterest())
	assert.Equal(t, 0, l.AccrueLoanInterest())

	p.BankBalance = 1999
	assert.Equal(t, 1, l.AccrueBankInterest())
	assert.Equal(t, 2000, p.BankBalance)

	p.Debt = 5001
	assert.Equal(t, 501, l.AccrueLoanInterest())
	assert.Equal(t, 5502, p.Debt)
}

func TestInvariantsHoldUnderRandomOperations(t *testing.T) {
	l := newLedger(t)
	p := l.Player()
	rng := rand.New(rand.NewSource(99))
	items := tables.Default().ItemNames()
	cities := []string{"Miami", "Las Vegas", "Erie"}

	for i := 0; i < 2000; i++ {
		item := items[rng.Intn(len(items))]
		city := cities[rng.Intn(len(cities))]
		qty := rng.Intn(40) - 5
		amount := rng.Intn(5000) - 100

		switch rng.Intn(12) {
		case 0:
			_ = l.Buy(item, qty, 1+rng.Intn(500))
		case 1:
			_ = l.Sell(item, qty, 1+rng.Intn(500))
		case 2:
			_ = l.Deposit(amount)
		case 3:
			_ = l.Withdraw(amount)
		case 4:
			_ = l.TakeLoan(city)
		case 5:
			_ = l.RepayLoan(city)
		case 6:
			p.Cash += 60000
			_ = l.BuyStashHouse(city)
		case 7:
			_ = l.MoveToStash(city, item, qty)
		case 8:
			_ = l.MoveFromStash(city, item, qty)
		case 9:
			_ = l.UpgradeInventory()
		case 10:
			l.ApplyBust(types.BustOutcome{PenaltyType: types.PenaltyBoth, CashFraction: 0.5, InventoryFraction: 0.2 + rng.Float64()*0.8})
		case 11:
			l.ChargeUpkeep()
			l.AccrueBankInterest()
			l.AccrueLoanInterest()
		}
		assertInvariants(t, p)
	}
}
