// Package tables holds the immutable content tables: cities, items, price
// modifiers, alliances, missions and the fallback market events.
package tables

import (
	"errors"
	"fmt"
	"os"

	"github.com/user/dopewars-engine/internal/types"
	"gopkg.in/yaml.v3"
)

// Tables is the read-only content consumed by the engine
type Tables struct {
	Cities         []types.City                  `yaml:"cities"`
	Items          []types.Item                  `yaml:"items"`
	PriceModifiers map[string]map[string]float64 `yaml:"price_modifiers"`
	Alliances      []types.Alliance              `yaml:"alliances"`
	Missions       []types.Mission               `yaml:"missions"`
	FallbackEvents []types.MarketEvent           `yaml:"fallback_events"`

	cityIndex     map[string]int
	itemIndex     map[string]int
	allianceIndex map[string]int
	missionIndex  map[string]int
}

// Load reads tables from a YAML file. Sections missing from the file keep
// their built-in defaults.
func Load(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables file: %w", err)
	}

	t := Default()
	var raw Tables
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse tables file: %w", err)
	}

	if len(raw.Cities) > 0 {
		t.Cities = raw.Cities
	}
	if len(raw.Items) > 0 {
		t.Items = raw.Items
	}
	if raw.PriceModifiers != nil {
		t.PriceModifiers = raw.PriceModifiers
	}
	if len(raw.Alliances) > 0 {
		t.Alliances = raw.Alliances
	}
	if len(raw.Missions) > 0 {
		t.Missions = raw.Missions
	}
	if len(raw.FallbackEvents) > 0 {
		t.FallbackEvents = raw.FallbackEvents
	}

	if err := t.index(); err != nil {
		return nil, err
	}
	return t, nil
}

// Must panics if err is non-nil; used for the built-in defaults
func Must(t *Tables, err error) *Tables {
	if err != nil {
		panic(err)
	}
	return t
}

// index builds the lookup maps and validates cross references
func (t *Tables) index() error {
	t.cityIndex = make(map[string]int, len(t.Cities))
	for i, c := range t.Cities {
		if _, dup := t.cityIndex[c.Name]; dup {
			return fmt.Errorf("duplicate city: %s", c.Name)
		}
		t.cityIndex[c.Name] = i
	}

	t.itemIndex = make(map[string]int, len(t.Items))
	for i, it := range t.Items {
		if it.BasePrice <= 0 {
			return fmt.Errorf("item %s has non-positive base price", it.Name)
		}
		if _, dup := t.itemIndex[it.Name]; dup {
			return fmt.Errorf("duplicate item: %s", it.Name)
		}
		t.itemIndex[it.Name] = i
	}

	if len(t.Cities) == 0 || len(t.Items) == 0 {
		return errors.New("tables need at least one city and one item")
	}

	t.allianceIndex = make(map[string]int, len(t.Alliances))
	homes := make(map[string]string, len(t.Alliances))
	for i, a := range t.Alliances {
		if _, ok := t.cityIndex[a.HomeCity]; !ok {
			return fmt.Errorf("alliance %s has unknown home city %s", a.Name, a.HomeCity)
		}
		if other, dup := homes[a.HomeCity]; dup {
			return fmt.Errorf("alliances %s and %s share home city %s", other, a.Name, a.HomeCity)
		}
		homes[a.HomeCity] = a.Name
		t.allianceIndex[a.Name] = i
	}
	for _, a := range t.Alliances {
		rival, ok := t.Alliance(a.Rival)
		if !ok {
			return fmt.Errorf("alliance %s has unknown rival %s", a.Name, a.Rival)
		}
		if rival.Rival != a.Name {
			return fmt.Errorf("rivalry between %s and %s is not symmetric", a.Name, a.Rival)
		}
	}

	t.missionIndex = make(map[string]int, len(t.Missions))
	for i, m := range t.Missions {
		if (m.Deliver == nil) == (m.AcquireCash == nil) {
			return fmt.Errorf("mission %s must have exactly one objective", m.ID)
		}
		if m.Deliver != nil {
			if _, ok := t.itemIndex[m.Deliver.Item]; !ok {
				return fmt.Errorf("mission %s delivers unknown item %s", m.ID, m.Deliver.Item)
			}
		}
		t.missionIndex[m.ID] = i
	}

	return nil
}

// City looks up a city by name
func (t *Tables) City(name string) (types.City, bool) {
	i, ok := t.cityIndex[name]
	if !ok {
		return types.City{}, false
	}
	return t.Cities[i], true
}

// Item looks up an item by name
func (t *Tables) Item(name string) (types.Item, bool) {
	i, ok := t.itemIndex[name]
	if !ok {
		return types.Item{}, false
	}
	return t.Items[i], true
}

// BasePrice returns the base price of an item, or 0 if unknown
func (t *Tables) BasePrice(name string) int {
	it, ok := t.Item(name)
	if !ok {
		return 0
	}
	return it.BasePrice
}

// Modifier returns the city price modifier for an item, defaulting to 1.0
func (t *Tables) Modifier(city, item string) float64 {
	if row, ok := t.PriceModifiers[city]; ok {
		if m, ok := row[item]; ok && m > 0 {
			return m
		}
	}
	return 1.0
}

// MaxModifier returns the largest modifier for an item across all cities
func (t *Tables) MaxModifier(item string) float64 {
	max := 1.0
	for _, c := range t.Cities {
		if m := t.Modifier(c.Name, item); m > max {
			max = m
		}
	}
	return max
}

// Alliance looks up an alliance by name
func (t *Tables) Alliance(name string) (types.Alliance, bool) {
	i, ok := t.allianceIndex[name]
	if !ok {
		return types.Alliance{}, false
	}
	return t.Alliances[i], true
}

// Mission looks up a mission by id
func (t *Tables) Mission(id string) (types.Mission, bool) {
	i, ok := t.missionIndex[id]
	if !ok {
		return types.Mission{}, false
	}
	return t.Missions[i], true
}

// MissionsFrom returns the missions offered in a city
func (t *Tables) MissionsFrom(city string) []types.Mission {
	var out []types.Mission
	for _, m := range t.Missions {
		if m.OriginCity == city {
			out = append(out, m)
		}
	}
	return out
}

// StartingCities returns the cities a new game may start in: the list
// without its last three entries
func (t *Tables) StartingCities() []types.City {
	if len(t.Cities) <= 3 {
		return t.Cities[:1]
	}
	return t.Cities[:len(t.Cities)-3]
}

// CityNames returns all city names in table order
func (t *Tables) CityNames() []string {
	out := make([]string, len(t.Cities))
	for i, c := range t.Cities {
		out[i] = c.Name
	}
	return out
}

// ItemNames returns all item names in table order
func (t *Tables) ItemNames() []string {
	out := make([]string, len(t.Items))
	for i, it := range t.Items {
		out[i] = it.Name
	}
	return out
}

// AllianceNames returns all alliance names in table order
func (t *Tables) AllianceNames() []string {
	out := make([]string, len(t.Alliances))
	for i, a := range t.Alliances {
		out[i] = a.Name
	}
	return out
}
