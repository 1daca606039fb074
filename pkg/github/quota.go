package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// quotaResetBuffer is added to the computed wait so the first request
	// after a reset does not race the window boundary.
	quotaResetBuffer = 5 * time.Second

	// defaultQuotaWait is used when the quota-status lookup itself fails.
	defaultQuotaWait = 60 * time.Second
)

// QuotaStatus is the core rate-limit state reported by the rate_limit
// endpoint. It is queried on demand per exhaustion event, never cached.
type QuotaStatus struct {
	Remaining int
	Reset     time.Time
}

// QuotaStatus queries the rate_limit REST endpoint directly, bypassing the
// retry loop so an exhausted quota cannot recurse into another quota lookup.
func (c *Client) QuotaStatus(ctx context.Context) (*QuotaStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/rate_limit", nil)
	if err != nil {
		return nil, fmt.Errorf("create quota request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("quota request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quota request: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read quota response: %w", err)
	}

	var payload struct {
		Resources struct {
			Core *struct {
				Remaining int   `json:"remaining"`
				Reset     int64 `json:"reset"`
			} `json:"core"`
		} `json:"resources"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode quota response: %w", err)
	}
	if payload.Resources.Core == nil {
		return nil, fmt.Errorf("quota response missing resources.core")
	}

	return &QuotaStatus{
		Remaining: payload.Resources.Core.Remaining,
		Reset:     time.Unix(payload.Resources.Core.Reset, 0),
	}, nil
}

// quotaWait computes how long to sleep before retrying after quota
// exhaustion: time until the reset epoch plus a small buffer. The lookup is
// best-effort; on failure a conservative default is used instead of failing
// the outer call.
func (c *Client) quotaWait(ctx context.Context) time.Duration {
	status, err := c.QuotaStatus(ctx)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Dur("wait", defaultQuotaWait).
			Msg("Quota status lookup failed - using default wait")
		return defaultQuotaWait
	}

	wait := time.Until(status.Reset)
	if wait < 0 {
		wait = 0
	}
	return wait + quotaResetBuffer
}
