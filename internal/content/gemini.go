package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/user/dopewars-engine/internal/market"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var (
	ErrNoAPIKey      = errors.New("content api key is not set")
	ErrEmptyResponse = errors.New("content source returned an empty response")
)

// generator is the slice of the genai client used here
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSource asks a Gemini model for market events and bust outcomes
type GeminiSource struct {
	models generator
	model  string
	tables *tables.Tables
	retry  RetryPolicy
	logger *zap.Logger
}

// NewGeminiSource creates a Gemini backed source
func NewGeminiSource(ctx context.Context, apiKey, model string, t *tables.Tables, retry RetryPolicy, logger *zap.Logger) (*GeminiSource, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return newGeminiSource(client.Models, model, t, retry, logger), nil
}

func newGeminiSource(models generator, model string, t *tables.Tables, retry RetryPolicy, logger *zap.Logger) *GeminiSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiSource{
		models: models,
		model:  model,
		tables: t,
		retry:  retry,
		logger: logger,
	}
}

type eventPayload struct {
	Description  string  `json:"description"`
	AffectedItem string  `json:"affected_item"`
	AffectedCity string  `json:"affected_city"`
	Multiplier   float64 `json:"multiplier"`
}

type bustPayload struct {
	Incident          bool    `json:"incident"`
	Description       string  `json:"description"`
	PenaltyType       string  `json:"penalty_type"`
	CashFraction      float64 `json:"cash_fraction"`
	InventoryFraction float64 `json:"inventory_fraction"`
}

// FetchEventBatch requests count market events. Entries naming unknown
// cities or items are dropped.
func (g *GeminiSource) FetchEventBatch(ctx context.Context, count int) ([]types.MarketEvent, error) {
	if count <= 0 {
		return nil, nil
	}

	prompt := g.eventPrompt(count)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   eventBatchSchema(),
	}

	raw, err := withRetry(ctx, g.retry, g.logger, "event_batch", func(ctx context.Context) ([]eventPayload, error) {
		text, err := g.generate(ctx, prompt, config)
		if err != nil {
			return nil, err
		}
		var payload []eventPayload
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return nil, fmt.Errorf("failed to parse event batch: %w", err)
		}
		return payload, nil
	})
	if err != nil {
		g.logger.Error("Failed to fetch event batch", zap.Error(err))
		return nil, err
	}

	events := make([]types.MarketEvent, 0, len(raw))
	for _, p := range raw {
		if _, ok := g.tables.City(p.AffectedCity); !ok {
			continue
		}
		if _, ok := g.tables.Item(p.AffectedItem); !ok {
			continue
		}
		if strings.TrimSpace(p.Description) == "" || p.Multiplier <= 0 {
			continue
		}
		events = append(events, types.MarketEvent{
			Description:  p.Description,
			AffectedItem: p.AffectedItem,
			AffectedCity: p.AffectedCity,
			Multiplier:   market.ClampMultiplier(p.Multiplier),
		})
	}

	g.logger.Info("Fetched event batch",
		zap.Int("requested", count),
		zap.Int("received", len(raw)),
		zap.Int("accepted", len(events)))
	return events, nil
}

// FetchBustEvent asks the model whether the trip ends in a bust. Fractions
// are returned as given; callers clamp them.
func (g *GeminiSource) FetchBustEvent(ctx context.Context, req types.BustRequest) (*types.BustOutcome, error) {
	prompt := g.bustPrompt(req)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   bustSchema(),
	}

	payload, err := withRetry(ctx, g.retry, g.logger, "bust_event", func(ctx context.Context) (*bustPayload, error) {
		text, err := g.generate(ctx, prompt, config)
		if err != nil {
			return nil, err
		}
		var p bustPayload
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("failed to parse bust event: %w", err)
		}
		return &p, nil
	})
	if err != nil {
		return nil, err
	}

	if !payload.Incident {
		return nil, nil
	}

	pt := types.PenaltyType(strings.ToLower(payload.PenaltyType))
	if !pt.Valid() {
		return nil, fmt.Errorf("invalid penalty type %q", payload.PenaltyType)
	}
	if strings.TrimSpace(payload.Description) == "" {
		return nil, errors.New("bust event has no description")
	}

	return &types.BustOutcome{
		Description:       payload.Description,
		PenaltyType:       pt,
		CashFraction:      payload.CashFraction,
		InventoryFraction: payload.InventoryFraction,
	}, nil
}

func (g *GeminiSource) generate(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *GeminiSource) eventPrompt(count int) string {
	return fmt.Sprintf(`You write news for a gritty street trading game.
Generate %d short market events. Each event hits one item in one city.
A multiplier below 1 makes the item cheap (a glut), above 1 makes it expensive (a shortage).
Keep multipliers between 0.2 and 3.0 and descriptions under 80 characters.
Cities: %s.
Items: %s.`,
		count,
		strings.Join(g.tables.CityNames(), ", "),
		strings.Join(g.tables.ItemNames(), ", "))
}

func (g *GeminiSource) bustPrompt(req types.BustRequest) string {
	var risk string
	switch {
	case req.Rival():
		risk = "This city is rival gang territory. Risk is very high, about 20 to 25 percent."
	case req.Allied():
		risk = "This city is allied territory. Risk is very low, about 1 to 2 percent."
	default:
		risk = "This city is neutral. Risk is low, about 3 to 7 percent."
	}
	if req.Overseas {
		risk += " The trip is overseas, so customs raise the risk to at least 10 to 15 percent."
	}

	return fmt.Sprintf(`You are the risk engine of a street trading game.
The player is travelling to %s carrying $%d in cash and goods worth $%d.
%s
Decide whether the player gets busted on this trip.
If not, answer {"incident": false}.
If so, describe what happened in one sentence and pick a penalty:
penalty_type is "cash", "inventory" or "both";
cash_fraction between 0.1 and 0.5 when cash is taken, otherwise 0;
inventory_fraction between 0.2 and 1.0 when goods are taken, otherwise 0.`,
		req.Destination, req.Cash, req.InventoryValue, risk)
}

func eventBatchSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"description":   {Type: genai.TypeString},
				"affected_item": {Type: genai.TypeString},
				"affected_city": {Type: genai.TypeString},
				"multiplier":    {Type: genai.TypeNumber},
			},
			Required: []string{"description", "affected_item", "affected_city", "multiplier"},
		},
	}
}

func bustSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"incident":           {Type: genai.TypeBoolean},
			"description":        {Type: genai.TypeString},
			"penalty_type":       {Type: genai.TypeString, Enum: []string{"cash", "inventory", "both"}},
			"cash_fraction":      {Type: genai.TypeNumber},
			"inventory_fraction": {Type: genai.TypeNumber},
		},
		Required: []string{"incident"},
	}
}
