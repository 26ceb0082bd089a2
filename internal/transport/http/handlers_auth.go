package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"deeproof/internal/transport/http/shared"
	"deeproof/internal/walletauth"
	dErrors "deeproof/pkg/domain-errors"
)

// WalletAuthService defines the interface for wallet sign-in operations.
type WalletAuthService interface {
	NewChallenge(ctx context.Context, walletAddress string) (*walletauth.Challenge, error)
	Verify(ctx context.Context, walletAddress string, signature string) (*walletauth.Session, error)
}

// AuthHandler handles wallet sign-in endpoints.
type AuthHandler struct {
	auth   WalletAuthService
	logger *slog.Logger
}

func NewAuthHandler(auth WalletAuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/auth/challenge", h.handleChallenge)
	r.Post("/auth/verify", h.handleVerify)
}

type challengeRequest struct {
	WalletAddress string `json:"walletAddress"`
}

func (h *AuthHandler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	challenge, err := h.auth.NewChallenge(r.Context(), req.WalletAddress)
	if err != nil {
		h.logger.WarnContext(r.Context(), "challenge issuance failed",
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, challenge)
}

type verifyRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
}

func (h *AuthHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if !govalidator.StringLength(req.Signature, "1", "1024") {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid signature"))
		return
	}

	session, err := h.auth.Verify(r.Context(), req.WalletAddress, req.Signature)
	if err != nil {
		h.logger.WarnContext(r.Context(), "wallet sign-in failed",
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, session)
}
