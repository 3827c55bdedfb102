package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HealthChecker handles health check requests
type HealthChecker struct {
	discoveryURL string
	client       *http.Client
}

// NewHealthChecker creates a health checker that probes the identity
// provider's discovery endpoint in extended mode.
func NewHealthChecker(providerBaseURL string) *HealthChecker {
	return &HealthChecker{
		discoveryURL: strings.TrimSuffix(providerBaseURL, "/") + "/.well-known/openid-configuration",
		client:       &http.Client{Timeout: 5 * time.Second},
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /api/health endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if mode == "extended" {
		checks := make(map[string]string)
		if err := h.checkProvider(r.Context()); err != nil {
			response.Status = "unhealthy"
			checks["identity_provider"] = "unhealthy: " + err.Error()
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["identity_provider"] = "healthy"
		}
		response.Checks = checks
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// checkProvider verifies the identity provider's discovery endpoint responds
func (h *HealthChecker) checkProvider(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.discoveryURL, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
