package content

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// RetryPolicy bounds retries of rate-limited calls
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultRetryPolicy returns three attempts starting at one second
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialDelay: time.Second}
}

// delay returns the wait before the attempt following attempt n (0 based)
func (p RetryPolicy) delay(n int) time.Duration {
	return p.InitialDelay * time.Duration(1<<uint(n))
}

// withRetry calls fn until it succeeds, fails with a non rate-limit error,
// runs out of attempts or ctx is done
func withRetry[T any](ctx context.Context, p RetryPolicy, logger *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRateLimited(err) || attempt == attempts-1 {
			break
		}

		wait := p.delay(attempt)
		logger.Warn("Content source rate limited, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// isRateLimited reports whether err is a transient quota error
func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Status == "RESOURCE_EXHAUSTED"
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
