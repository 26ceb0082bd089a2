// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"deeproof/internal/platform/metrics"
	"deeproof/internal/platform/middleware"
	"deeproof/internal/transport/http/shared"
)

// HealthCheck probes one backing dependency for the /health endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handlers groups the feature handlers the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Identity *IdentityHandler
	Kyc      *KycHandler
	Protocol *ProtocolHandler
}

// NewRouter wires the shared middleware chain and all public endpoints.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, h Handlers, health ...HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(m))

	if h.Auth != nil {
		h.Auth.Register(r)
	}
	if h.Identity != nil {
		h.Identity.Register(r)
	}
	if h.Kyc != nil {
		h.Kyc.Register(r)
	}
	if h.Protocol != nil {
		h.Protocol.Register(r)
	}

	r.Get("/health", handleHealth(health))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		result := healthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]string, len(checks)),
		}
		for _, check := range checks {
			if err := check.Check(r.Context()); err != nil {
				result.Checks[check.Name] = "down"
				result.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			result.Checks[check.Name] = "up"
		}
		shared.WriteJSON(w, status, result)
	}
}
