package types

import "time"

// Item is a tradeable commodity
type Item struct {
	Name      string `json:"name" yaml:"name"`
	BasePrice int    `json:"base_price" yaml:"base_price"`
}

// City is a travel destination with its own market
type City struct {
	Name     string `json:"name" yaml:"name"`
	Overseas bool   `json:"overseas,omitempty" yaml:"overseas,omitempty"`
}

// PriceMatrix maps city name -> item name -> current price
type PriceMatrix map[string]map[string]int

// Clone returns a deep copy of the matrix
func (pm PriceMatrix) Clone() PriceMatrix {
	out := make(PriceMatrix, len(pm))
	for city, items := range pm {
		row := make(map[string]int, len(items))
		for item, price := range items {
			row[item] = price
		}
		out[city] = row
	}
	return out
}

// Price returns the price of an item in a city
func (pm PriceMatrix) Price(city, item string) (int, bool) {
	row, ok := pm[city]
	if !ok {
		return 0, false
	}
	price, ok := row[item]
	return price, ok
}

// MarketEvent is a template that perturbs one item's price in one city
type MarketEvent struct {
	Description  string  `json:"description" yaml:"description"`
	AffectedItem string  `json:"affected_item" yaml:"affected_item"`
	AffectedCity string  `json:"affected_city" yaml:"affected_city"`
	Multiplier   float64 `json:"multiplier" yaml:"multiplier"`
}

// ActiveEvent is the single market event currently in effect
type ActiveEvent struct {
	MarketEvent
	ExpiresOnDay int `json:"expires_on_day"`
}

// StashHouse is a storage location owned by the player in one city
type StashHouse struct {
	City         string         `json:"city"`
	Capacity     int            `json:"capacity"`
	Used         int            `json:"used"`
	Contents     map[string]int `json:"contents"`
	UpgradeLevel int            `json:"upgrade_level"`
}

// Recount recomputes Used from the contents
func (sh *StashHouse) Recount() {
	used := 0
	for _, qty := range sh.Contents {
		used += qty
	}
	sh.Used = used
}

// PlayerState is the economic ledger of a single player
type PlayerState struct {
	Cash                int            `json:"cash"`
	BankBalance         int            `json:"bank_balance"`
	Debt                int            `json:"debt"`
	Inventory           map[string]int `json:"inventory"`
	InventorySpace      int            `json:"inventory_space"`
	InventoryUsed       int            `json:"inventory_used"`
	InventoryUpgrades   int            `json:"inventory_upgrades"`
	StashHouses         []StashHouse   `json:"stash_houses"`
	Alliance            string         `json:"alliance,omitempty"`
	ActiveMissionID     string         `json:"active_mission_id,omitempty"`
	CompletedMissionIDs []string       `json:"completed_mission_ids"`
	LoanTaken           bool           `json:"loan_taken"`
}

// RecountInventory recomputes InventoryUsed from the inventory
func (p *PlayerState) RecountInventory() {
	used := 0
	for _, qty := range p.Inventory {
		used += qty
	}
	p.InventoryUsed = used
}

// StashIn returns the index of the stash house in a city, or -1
func (p *PlayerState) StashIn(city string) int {
	for i := range p.StashHouses {
		if p.StashHouses[i].City == city {
			return i
		}
	}
	return -1
}

// HasCompleted reports whether a mission id was already completed
func (p *PlayerState) HasCompleted(missionID string) bool {
	for _, id := range p.CompletedMissionIDs {
		if id == missionID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the player state
func (p *PlayerState) Clone() *PlayerState {
	out := *p
	out.Inventory = make(map[string]int, len(p.Inventory))
	for k, v := range p.Inventory {
		out.Inventory[k] = v
	}
	out.StashHouses = make([]StashHouse, len(p.StashHouses))
	for i, sh := range p.StashHouses {
		sh.Contents = make(map[string]int, len(p.StashHouses[i].Contents))
		for k, v := range p.StashHouses[i].Contents {
			sh.Contents[k] = v
		}
		out.StashHouses[i] = sh
	}
	out.CompletedMissionIDs = make([]string, len(p.CompletedMissionIDs))
	copy(out.CompletedMissionIDs, p.CompletedMissionIDs)
	return &out
}

// MissionKind discriminates the mission objective
type MissionKind string

const (
	MissionDeliver     MissionKind = "DELIVER"
	MissionAcquireCash MissionKind = "ACQUIRE_CASH"
)

// DeliverObjective requires carrying goods to a destination city
type DeliverObjective struct {
	DestinationCity string `json:"destination_city" yaml:"destination_city"`
	Item            string `json:"item" yaml:"item"`
	Quantity        int    `json:"quantity" yaml:"quantity"`
}

// CashObjective requires holding a target amount of cash
type CashObjective struct {
	TargetCash int `json:"target_cash" yaml:"target_cash"`
}

// Mission is a contract offered in its origin city. Exactly one of
// Deliver and AcquireCash is set.
type Mission struct {
	ID          string            `json:"id" yaml:"id"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description" yaml:"description"`
	OriginCity  string            `json:"origin_city" yaml:"origin_city"`
	RewardCash  int               `json:"reward_cash" yaml:"reward_cash"`
	Deliver     *DeliverObjective `json:"deliver,omitempty" yaml:"deliver,omitempty"`
	AcquireCash *CashObjective    `json:"acquire_cash,omitempty" yaml:"acquire_cash,omitempty"`
}

// Kind returns the mission kind derived from its objective
func (m Mission) Kind() MissionKind {
	if m.Deliver != nil {
		return MissionDeliver
	}
	return MissionAcquireCash
}

// Alliance is a faction with a home city and a rival
type Alliance struct {
	Name          string `json:"name" yaml:"name"`
	HomeCity      string `json:"home_city" yaml:"home_city"`
	SpecialtyItem string `json:"specialty_item" yaml:"specialty_item"`
	JoinFee       int    `json:"join_fee" yaml:"join_fee"`
	Rival         string `json:"rival" yaml:"rival"`
}

// PenaltyType selects what a bust confiscates
type PenaltyType string

const (
	PenaltyCash      PenaltyType = "cash"
	PenaltyInventory PenaltyType = "inventory"
	PenaltyBoth      PenaltyType = "both"
)

// Valid reports whether the penalty type is known
func (pt PenaltyType) Valid() bool {
	return pt == PenaltyCash || pt == PenaltyInventory || pt == PenaltyBoth
}

// TakesCash reports whether the penalty confiscates cash
func (pt PenaltyType) TakesCash() bool {
	return pt == PenaltyCash || pt == PenaltyBoth
}

// TakesInventory reports whether the penalty confiscates inventory
func (pt PenaltyType) TakesInventory() bool {
	return pt == PenaltyInventory || pt == PenaltyBoth
}

// BustOutcome is a travel incident penalty
type BustOutcome struct {
	Description       string      `json:"description"`
	PenaltyType       PenaltyType `json:"penalty_type"`
	CashFraction      float64     `json:"cash_fraction"`
	InventoryFraction float64     `json:"inventory_fraction"`
}

// Territory classifies a destination relative to the player's alliance
type Territory string

const (
	TerritoryNeutral Territory = "neutral"
	TerritoryAllied  Territory = "allied"
	TerritoryRival   Territory = "rival"
)

// BustRequest is the context handed to the risk source for one trip
type BustRequest struct {
	Destination    string    `json:"destination"`
	Cash           int       `json:"cash"`
	InventoryValue int       `json:"inventory_value"`
	Overseas       bool      `json:"overseas"`
	Territory      Territory `json:"territory"`
}

// Rival reports whether the destination is rival territory
func (r BustRequest) Rival() bool { return r.Territory == TerritoryRival }

// Allied reports whether the destination is allied territory
func (r BustRequest) Allied() bool { return r.Territory == TerritoryAllied }

// Phase is the state of the day-advancement state machine
type Phase string

const (
	PhaseActive             Phase = "active"
	PhaseGameOverByDefault  Phase = "game_over_default"
	PhaseGameOverByDuration Phase = "game_over_duration"
)

// Terminal reports whether the phase ends the session
func (p Phase) Terminal() bool {
	return p == PhaseGameOverByDefault || p == PhaseGameOverByDuration
}

// Snapshot is the persisted record of one session
type Snapshot struct {
	SessionID      string        `json:"session_id"`
	SavedAt        time.Time     `json:"saved_at"`
	Day            int           `json:"day"`
	CurrentCity    string        `json:"current_city"`
	Player         *PlayerState  `json:"player"`
	Prices         PriceMatrix   `json:"prices"`
	Log            []string      `json:"log"`
	ActiveEvent    *ActiveEvent  `json:"active_event"`
	EventCatalogue []MarketEvent `json:"event_catalogue"`
	PendingEvents  []MarketEvent `json:"pending_events"`
	MaxDays        int           `json:"max_days"`
}

// BustReport describes what a bust took from the player
type BustReport struct {
	Outcome   BustOutcome    `json:"outcome"`
	CashLost  int            `json:"cash_lost"`
	ItemsLost map[string]int `json:"items_lost"`
}

// TravelReport is the result of one travel action
type TravelReport struct {
	From     string      `json:"from"`
	To       string      `json:"to"`
	Bust     *BustReport `json:"bust,omitempty"`
	Day      int         `json:"day"`
	Phase    Phase       `json:"phase"`
	Message  string      `json:"message,omitempty"`
	NetWorth int         `json:"net_worth"`
	Log      []string    `json:"log"`
}

// MarketQuote is the tradeable price of one item in the current city
type MarketQuote struct {
	Item       string `json:"item"`
	Price      int    `json:"price"`
	Discounted bool   `json:"discounted"`
	Owned      int    `json:"owned"`
}

// StatusView is a read-only view of a session
type StatusView struct {
	SessionID            string        `json:"session_id"`
	Day                  int           `json:"day"`
	MaxDays              int           `json:"max_days"`
	City                 string        `json:"city"`
	Phase                Phase         `json:"phase"`
	GameOverMessage      string        `json:"game_over_message,omitempty"`
	Player               *PlayerState  `json:"player"`
	NetWorth             int           `json:"net_worth"`
	Market               []MarketQuote `json:"market"`
	ActiveEvent          *ActiveEvent  `json:"active_event,omitempty"`
	ActiveMission        *Mission      `json:"active_mission,omitempty"`
	AvailableMissions    []Mission     `json:"available_missions"`
	InventoryUpgradeCost int           `json:"inventory_upgrade_cost"`
	StashUpgradeCost     int           `json:"stash_upgrade_cost,omitempty"`
	LoanShark            bool          `json:"loan_shark"`
	Log                  []string      `json:"log"`
}
