package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"deeproof/internal/identity"
	"deeproof/internal/transport/http/shared"
	dErrors "deeproof/pkg/domain-errors"
)

// IdentityService defines the interface for identity operations.
type IdentityService interface {
	Bind(ctx context.Context, input identity.BindInput) (*identity.Identity, error)
	Get(ctx context.Context, walletAddress string) (*identity.Identity, error)
}

// IdentityHandler handles identity endpoints.
type IdentityHandler struct {
	identities IdentityService
	logger     *slog.Logger
}

func NewIdentityHandler(identities IdentityService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{identities: identities, logger: logger}
}

func (h *IdentityHandler) Register(r chi.Router) {
	r.Post("/identity/bind", h.handleBind)
	r.Get("/identity/{walletAddress}", h.handleGet)
}

type bindRequest struct {
	WalletAddress      string `json:"walletAddress"`
	IdentityCommitment string `json:"identityCommitment"`
}

type identityResponse struct {
	WalletAddress      string  `json:"walletAddress"`
	IdentityCommitment *string `json:"identityCommitment"`
	CreatedAt          string  `json:"createdAt"`
}

func (h *IdentityHandler) handleBind(w http.ResponseWriter, r *http.Request) {
	var req bindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.IdentityCommitment != "" && !govalidator.StringLength(req.IdentityCommitment, "1", "256") {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid identity commitment"))
		return
	}

	ident, err := h.identities.Bind(r.Context(), identity.BindInput{
		WalletAddress:      req.WalletAddress,
		IdentityCommitment: req.IdentityCommitment,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "identity bind failed",
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toIdentityResponse(ident))
}

func (h *IdentityHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	walletAddress := chi.URLParam(r, "walletAddress")
	ident, err := h.identities.Get(r.Context(), walletAddress)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toIdentityResponse(ident))
}

func toIdentityResponse(ident *identity.Identity) identityResponse {
	return identityResponse{
		WalletAddress:      ident.WalletAddress.String(),
		IdentityCommitment: ident.IdentityCommitment,
		CreatedAt:          ident.CreatedAt.UTC().Format(time.RFC3339),
	}
}
