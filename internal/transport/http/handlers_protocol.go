package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"deeproof/internal/kyc"
	"deeproof/internal/transport/http/shared"
)

// CheckService defines the interface for the external protocol check.
type CheckService interface {
	ExternalCheck(ctx context.Context, walletAddress string) (*kyc.CheckResult, error)
}

// ProtocolHandler serves the reduced verification view for third-party
// integrators.
type ProtocolHandler struct {
	checks CheckService
	logger *slog.Logger
}

func NewProtocolHandler(checks CheckService, logger *slog.Logger) *ProtocolHandler {
	return &ProtocolHandler{checks: checks, logger: logger}
}

func (h *ProtocolHandler) Register(r chi.Router) {
	r.Get("/protocol/check/{walletAddress}", h.handleCheck)
}

func (h *ProtocolHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.checks.ExternalCheck(r.Context(), chi.URLParam(r, "walletAddress"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}
