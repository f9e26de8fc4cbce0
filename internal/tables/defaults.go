package tables

import "github.com/user/dopewars-engine/internal/types"

// Default returns the built-in tables
func Default() *Tables {
	t := &Tables{
		Cities:         defaultCities(),
		Items:          defaultItems(),
		PriceModifiers: defaultModifiers(),
		Alliances:      defaultAlliances(),
		Missions:       defaultMissions(),
		FallbackEvents: defaultFallbackEvents(),
	}
	return Must(t, t.index())
}

func defaultCities() []types.City {
	return []types.City{
		{Name: "New York"},
		{Name: "Miami"},
		{Name: "Chicago"},
		{Name: "Los Angeles"},
		{Name: "Houston"},
		{Name: "Las Vegas"},
		{Name: "Erie"},
		{Name: "Boston"},
		{Name: "Pittsburgh"},
		{Name: "Atlanta"},
		{Name: "Bogotá", Overseas: true},
		{Name: "Amsterdam", Overseas: true},
		{Name: "Kabul", Overseas: true},
		{Name: "Medellín", Overseas: true},
		{Name: "Tijuana", Overseas: true},
		{Name: "Shanghai", Overseas: true},
	}
}

func defaultItems() []types.Item {
	return []types.Item{
		{Name: "Speed", BasePrice: 150},
		{Name: "Weed", BasePrice: 400},
		{Name: "Mushrooms", BasePrice: 800},
		{Name: "Ecstasy", BasePrice: 2000},
		{Name: "Acid", BasePrice: 3000},
		{Name: "LSD", BasePrice: 3500},
		{Name: "PCP", BasePrice: 4500},
		{Name: "Heroin", BasePrice: 10000},
		{Name: "Opium", BasePrice: 12000},
		{Name: "Fentanyl", BasePrice: 18000},
		{Name: "Coke", BasePrice: 25000},
		{Name: "Meth", BasePrice: 30000},
	}
}

// Domestic markets are mildly expensive; overseas markets are the cheap sources.
func defaultModifiers() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"New York":    {"Coke": 1.5, "Heroin": 1.4, "Acid": 1.2, "Meth": 1.6, "LSD": 1.3, "Mushrooms": 1.1, "Opium": 1.5, "Ecstasy": 1.3, "PCP": 1.7, "Fentanyl": 1.9},
		"Miami":       {"Coke": 1.3, "Weed": 1.1, "Meth": 1.2, "LSD": 1.0, "Mushrooms": 0.8, "Opium": 1.6, "Ecstasy": 1.5, "PCP": 1.1, "Fentanyl": 1.6},
		"Los Angeles": {"Weed": 1.0, "Acid": 1.3, "Coke": 1.2, "Meth": 0.9, "LSD": 0.8, "Mushrooms": 1.2, "Opium": 1.4, "Ecstasy": 1.2, "PCP": 0.8, "Fentanyl": 1.5},
		"Chicago":     {"Heroin": 1.5, "Speed": 0.9, "Meth": 1.4, "LSD": 1.4, "Mushrooms": 1.0, "Opium": 1.7, "Ecstasy": 1.1, "PCP": 1.5, "Fentanyl": 2.0},
		"Houston":     {"Weed": 1.2, "Speed": 0.8, "Meth": 0.7, "LSD": 1.1, "Mushrooms": 0.7, "Opium": 1.5, "Ecstasy": 0.9, "PCP": 1.4, "Fentanyl": 1.7},
		"Las Vegas":   {"Acid": 1.4, "Coke": 1.4, "Speed": 1.1, "Meth": 0.8, "LSD": 1.5, "Mushrooms": 1.3, "Opium": 1.3, "Ecstasy": 1.6, "PCP": 1.2, "Fentanyl": 1.4},
		"Erie":        {"Weed": 0.9, "Heroin": 1.1, "Speed": 1.0, "Meth": 1.1, "LSD": 1.2, "Mushrooms": 0.9, "Opium": 1.2, "Ecstasy": 0.8, "PCP": 1.0, "Fentanyl": 2.2},
		"Boston":      {"Weed": 1.1, "Acid": 1.2, "Speed": 0.9, "Meth": 1.5, "LSD": 1.3, "Mushrooms": 1.1, "Opium": 1.6, "Ecstasy": 1.2, "PCP": 1.6, "Fentanyl": 1.8},
		"Pittsburgh":  {"Weed": 1.0, "Heroin": 1.2, "Speed": 1.1, "Meth": 1.2, "LSD": 1.3, "Mushrooms": 1.0, "Opium": 1.3, "Ecstasy": 0.9, "PCP": 1.1, "Fentanyl": 2.1, "Coke": 1.4},
		"Atlanta":     {"Coke": 1.4, "Weed": 1.1, "Speed": 0.9, "Meth": 1.3, "LSD": 1.2, "Mushrooms": 0.9, "Opium": 1.5, "Ecstasy": 1.4, "PCP": 1.2, "Fentanyl": 1.7},

		"Bogotá":    {"Coke": 0.15, "Weed": 0.5, "Heroin": 1.8, "Meth": 2.0, "LSD": 1.9, "Mushrooms": 0.4, "Opium": 2.2, "Ecstasy": 2.0, "PCP": 2.5, "Fentanyl": 3.0},
		"Amsterdam": {"Acid": 0.2, "Speed": 0.4, "Weed": 0.4, "Meth": 1.8, "LSD": 0.3, "Mushrooms": 0.6, "Opium": 1.7, "Ecstasy": 0.3, "PCP": 1.8, "Fentanyl": 2.5},
		"Kabul":     {"Heroin": 0.1, "Coke": 2.0, "Weed": 0.8, "Meth": 2.2, "LSD": 2.5, "Mushrooms": 1.5, "Opium": 0.15, "Ecstasy": 2.5, "PCP": 3.0, "Fentanyl": 0.2},
		"Medellín":  {"Coke": 0.18, "Weed": 0.6, "Heroin": 1.9, "Meth": 2.1, "LSD": 2.0, "Mushrooms": 0.5, "Opium": 2.3, "Ecstasy": 2.1, "PCP": 2.6, "Fentanyl": 3.1},
		"Tijuana":   {"Meth": 0.25, "Weed": 0.3, "Coke": 1.5, "Heroin": 1.7, "Speed": 0.7, "LSD": 1.8, "Mushrooms": 0.8, "Ecstasy": 1.5, "PCP": 1.9, "Fentanyl": 2.4},
		"Shanghai":  {"Fentanyl": 0.15, "PCP": 0.3, "Meth": 0.4, "Speed": 0.5, "Ecstasy": 0.4, "LSD": 2.2, "Acid": 2.0, "Coke": 2.5, "Heroin": 2.8, "Opium": 2.5, "Weed": 2.0, "Mushrooms": 2.1},
	}
}

func defaultAlliances() []types.Alliance {
	return []types.Alliance{
		{Name: "The East Coast Kings", HomeCity: "New York", SpecialtyItem: "Coke", JoinFee: 15000, Rival: "The Silicon Syndicate"},
		{Name: "The Silicon Syndicate", HomeCity: "Los Angeles", SpecialtyItem: "LSD", JoinFee: 10000, Rival: "The East Coast Kings"},
		{Name: "The Bayou Boys", HomeCity: "Houston", SpecialtyItem: "Mushrooms", JoinFee: 7500, Rival: "The Desert Scorpions"},
		{Name: "The Desert Scorpions", HomeCity: "Las Vegas", SpecialtyItem: "Speed", JoinFee: 7500, Rival: "The Bayou Boys"},
		{Name: "The Chicago Outfit", HomeCity: "Chicago", SpecialtyItem: "Heroin", JoinFee: 12000, Rival: "The Boston Bulldogs"},
		{Name: "The Boston Bulldogs", HomeCity: "Boston", SpecialtyItem: "Speed", JoinFee: 8000, Rival: "The Chicago Outfit"},
	}
}

func deliver(dest, item string, qty int) *types.DeliverObjective {
	return &types.DeliverObjective{DestinationCity: dest, Item: item, Quantity: qty}
}

func defaultMissions() []types.Mission {
	return []types.Mission{
		{
			ID:          "ny_coke_run",
			Title:       "Urgent Delivery to Miami",
			Description: "A client in Miami needs a package, no questions asked. The payout is good if you can get it there fast.",
			OriginCity:  "New York",
			RewardCash:  25000,
			Deliver:     deliver("Miami", "Coke", 10),
		},
		{
			ID:          "la_weed_supply",
			Title:       "Vegas High Rollers",
			Description: "Some high rollers in Vegas need to relax. Bring them some of that famous LA green.",
			OriginCity:  "Los Angeles",
			RewardCash:  15000,
			Deliver:     deliver("Las Vegas", "Weed", 50),
		},
		{
			ID:          "chicago_cash_up",
			Title:       "Prove Your Worth",
			Description: "The Outfit is watching you. Come back when you're holding at least $50,000.",
			OriginCity:  "Chicago",
			RewardCash:  10000,
			AcquireCash: &types.CashObjective{TargetCash: 50000},
		},
		{
			ID:          "houston_speed_demon",
			Title:       "Cross-Country Rush",
			Description: "A trucker group in New York needs to stay awake for a long haul. They're paying top dollar for Speed.",
			OriginCity:  "Houston",
			RewardCash:  20000,
			Deliver:     deliver("New York", "Speed", 100),
		},
		{
			ID:          "bogota_export",
			Title:       "International Man of Mystery",
			Description: "Partners in Miami are waiting for a large shipment directly from the source. High risk, high reward.",
			OriginCity:  "Bogotá",
			RewardCash:  150000,
			Deliver:     deliver("Miami", "Coke", 50),
		},
		{
			ID:          "amsterdam_acid_trip",
			Title:       "Mind Expansion",
			Description: "A group of tech-bros in Los Angeles want to unlock their potential. Deliver the goods from Amsterdam.",
			OriginCity:  "Amsterdam",
			RewardCash:  75000,
			Deliver:     deliver("Los Angeles", "Acid", 20),
		},
		{
			ID:          "tijuana_meth_run",
			Title:       "Baja Blast",
			Description: "Some bikers in LA need a fresh batch of crystal from south of the border.",
			OriginCity:  "Tijuana",
			RewardCash:  80000,
			Deliver:     deliver("Los Angeles", "Meth", 30),
		},
		{
			ID:          "atlanta_hustle",
			Title:       "The ATL Grind",
			Description: "Atlanta is all about the hustle. Show the players here you can move weight by stacking $75,000.",
			OriginCity:  "Atlanta",
			RewardCash:  15000,
			AcquireCash: &types.CashObjective{TargetCash: 75000},
		},
		{
			ID:          "medellin_shipment",
			Title:       "The Silver Route",
			Description: "A classic run. Get this package from Medellín to our associates in Miami.",
			OriginCity:  "Medellín",
			RewardCash:  120000,
			Deliver:     deliver("Miami", "Coke", 40),
		},
		{
			ID:          "pittsburgh_pharma",
			Title:       "Steel City Special",
			Description: "Some folks in Chicago need a pick-me-up. Deliver this Speed from Pittsburgh.",
			OriginCity:  "Pittsburgh",
			RewardCash:  18000,
			Deliver:     deliver("Chicago", "Speed", 80),
		},
		{
			ID:          "shanghai_pharma_deal",
			Title:       "The Dragon's Dose",
			Description: "The Triads have a surplus of high-grade Fentanyl and the East Coast Kings will pay a fortune for it.",
			OriginCity:  "Shanghai",
			RewardCash:  200000,
			Deliver:     deliver("New York", "Fentanyl", 25),
		},
	}
}

func defaultFallbackEvents() []types.MarketEvent {
	return []types.MarketEvent{
		{Description: "The Feds raided a major Coke warehouse", AffectedItem: "Coke", AffectedCity: "Miami", Multiplier: 2.5},
		{Description: "A rival crew dumped a truckload of Weed", AffectedItem: "Weed", AffectedCity: "Los Angeles", Multiplier: 0.3},
		{Description: "Festival season has everyone looking for Ecstasy", AffectedItem: "Ecstasy", AffectedCity: "Las Vegas", Multiplier: 2.2},
		{Description: "A Heroin shipment got seized at the docks", AffectedItem: "Heroin", AffectedCity: "New York", Multiplier: 2.8},
		{Description: "A lab bust dried up the local Meth supply", AffectedItem: "Meth", AffectedCity: "Houston", Multiplier: 2.4},
		{Description: "Cheap Speed is flooding the truck stops", AffectedItem: "Speed", AffectedCity: "Pittsburgh", Multiplier: 0.4},
		{Description: "College kids are throwing LSD parties", AffectedItem: "LSD", AffectedCity: "Boston", Multiplier: 1.9},
		{Description: "Local growers had a record Mushroom harvest", AffectedItem: "Mushrooms", AffectedCity: "Atlanta", Multiplier: 0.35},
		{Description: "The cartel cut off Fentanyl shipments", AffectedItem: "Fentanyl", AffectedCity: "Chicago", Multiplier: 3.0},
		{Description: "Customs is asleep at the wheel, Opium is everywhere", AffectedItem: "Opium", AffectedCity: "Kabul", Multiplier: 0.25},
		{Description: "A new Acid chemist set up shop", AffectedItem: "Acid", AffectedCity: "Amsterdam", Multiplier: 0.5},
		{Description: "PCP addicts are out in force", AffectedItem: "PCP", AffectedCity: "Erie", Multiplier: 2.0},
	}
}
