package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// HealthCheckTimeout bounds each named check.
const HealthCheckTimeout = 2 * time.Second

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthCheck is one named dependency probe run by GET /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Check statuses.
const (
	CheckOK    = "ok"
	CheckError = "error"
)

// checkFailedMessage is reported for a failing check unless errors are exposed.
const checkFailedMessage = "Check failed"

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]checkResult `json:"checks"`
}

// HandleHealth handles GET /health.
// Any failing check marks the service unhealthy and answers 503. Check errors
// are logged; their text is only returned when expose is set (development).
func HandleHealth(service, version string, checks []HealthCheck, logger *slog.Logger, expose bool) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{
			Status:    StatusHealthy,
			Service:   service,
			Version:   version,
			Timestamp: time.Now().UTC(),
			Checks:    make(map[string]checkResult, len(checks)),
		}

		for _, hc := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), HealthCheckTimeout)
			err := hc.Check(ctx)
			cancel()
			if err != nil {
				logger.WarnContext(r.Context(), "health check failed", "check", hc.Name, "error", err)
				result := checkResult{Status: CheckError, Message: checkFailedMessage}
				if expose {
					result.Message = err.Error()
				}
				resp.Checks[hc.Name] = result
				resp.Status = StatusUnhealthy
				continue
			}
			resp.Checks[hc.Name] = checkResult{Status: CheckOK}
		}

		status := http.StatusOK
		if resp.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
