package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	apiRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_api_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	apiQuotaWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "github_api_quota_wait_seconds",
		Help:    "Computed wait duration before retrying after quota exhaustion",
		Buckets: []float64{1, 5, 10, 30, 60, 300, 900, 3600},
	})

	apiRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_api_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// attemptFunc performs a single request attempt and returns the decoded body.
// Errors must be classified as *APIError where a response was received.
type attemptFunc func(ctx context.Context) (json.RawMessage, error)

// withRetry runs fn up to MaxRetries times, applying the wait policy per
// error class: auth fails immediately, quota exhaustion sleeps until the
// window resets, everything else backs off exponentially. A quota wait
// consumes a retry attempt but does not advance the exponential backoff.
func (c *Client) withRetry(ctx context.Context, endpoint string, fn attemptFunc) (json.RawMessage, error) {
	maxAttempts := c.config.MaxRetries
	backoffStep := 0

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}

		data, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				c.logger.Info().
					Str("endpoint", endpoint).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return data, nil
		}

		if errors.Is(err, ErrAuthentication) {
			c.logger.Error().
				Str("endpoint", endpoint).
				Msg("Authentication rejected - not retrying")
			return nil, err
		}

		lastErr = err
		class := classOf(err)

		if attempt >= maxAttempts-1 {
			break
		}

		apiRetriesTotal.WithLabelValues(string(class)).Inc()

		var wait time.Duration
		if class == ErrorClassRateLimit {
			wait = c.quotaWait(ctx)
			apiQuotaWaitSeconds.Observe(wait.Seconds())
			c.logger.Info().
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Msg("Rate limit exhausted - waiting for quota reset")
		} else {
			wait = c.config.Backoff * (1 << backoffStep)
			backoffStep++
			c.logger.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Str("error_class", string(class)).
				Int("attempt", attempt+1).
				Dur("wait", wait).
				Msg("Request failed - backing off before retry")
		}

		if err := c.sleep(ctx, wait); err != nil {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt+1).
				Msg("Context cancelled during retry wait")
			return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
	}

	apiRetryExhaustedTotal.WithLabelValues(string(classOf(lastErr))).Inc()
	c.logger.Error().
		Str("endpoint", endpoint).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return nil, fmt.Errorf("%w: %s failed after %d attempts: %v", ErrRetryExhausted, endpoint, maxAttempts, lastErr)
}

// sleepContext waits for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
