package prodsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HealthStatus represents the aggregated system health.
type HealthStatus struct {
	Status       string            `json:"status"` // "ok", "degraded"
	Checks       map[string]string `json:"checks"` // component → "ok"/"error"
	ProductCount int               `json:"product_count"`
	IndexVersion uint64            `json:"index_version"`
}

// Healthy reports whether every component check passed.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

// Health checks the health of all server components. A degraded server
// answers 503 with a full report, which is returned without error.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	status, _, body, err := c.roundTrip(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	if status != http.StatusOK && status != http.StatusServiceUnavailable {
		return HealthStatus{}, decodeAPIError(status, body)
	}
	if jsonErr := json.Unmarshal(body, &hs); jsonErr != nil || hs.Status == "" {
		if status != http.StatusOK {
			return HealthStatus{}, decodeAPIError(status, body)
		}
		return HealthStatus{}, fmt.Errorf("prodsearch: decode health: %q", body)
	}
	return hs, nil
}
