// Package content provides the generative content and risk sources that
// supply market events and travel busts to the engine.
package content

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/user/dopewars-engine/config"
	"github.com/user/dopewars-engine/internal/tables"
	"github.com/user/dopewars-engine/internal/types"
	"go.uber.org/zap"
)

// Source produces market events and resolves travel busts.
//
// FetchEventBatch may return fewer events than requested, or none. A nil
// outcome from FetchBustEvent means no incident.
type Source interface {
	FetchEventBatch(ctx context.Context, count int) ([]types.MarketEvent, error)
	FetchBustEvent(ctx context.Context, req types.BustRequest) (*types.BustOutcome, error)
}

// FromConfig builds the configured source. The gemini provider falls back
// to the offline source when no API key is set.
func FromConfig(ctx context.Context, cfg config.ContentConfig, t *tables.Tables, rng *rand.Rand, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "offline":
		return NewOfflineSource(t, rng), nil

	case "", "gemini":
		apiKey := cfg.APIKey()
		if apiKey == "" {
			logger.Warn("No content API key set, using offline content",
				zap.String("env", cfg.APIKeyEnv))
			return NewOfflineSource(t, rng), nil
		}
		retry := RetryPolicy{MaxAttempts: cfg.MaxRetries, InitialDelay: cfg.RetryDelay()}
		return NewGeminiSource(ctx, apiKey, cfg.Model, t, retry, logger)

	default:
		return nil, fmt.Errorf("unknown content provider: %s", cfg.Provider)
	}
}
