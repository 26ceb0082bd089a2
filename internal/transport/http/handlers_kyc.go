package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"deeproof/internal/kyc"
	"deeproof/internal/platform/middleware"
	"deeproof/internal/transport/http/shared"
	"deeproof/pkg/domain"
	dErrors "deeproof/pkg/domain-errors"
)

//go:generate mockgen -source=handlers_kyc.go -destination=mocks/mocks.go -package=mocks

// KycService defines the interface for verification operations.
type KycService interface {
	Submit(ctx context.Context, input kyc.SubmitInput) (*kyc.Record, error)
	Status(ctx context.Context, walletAddress string) (*kyc.StatusResult, error)
	IsVerified(ctx context.Context, walletAddress string) (bool, error)
	UpdateStatus(ctx context.Context, walletAddress string, status kyc.Status, txHash string) (*kyc.Record, error)
}

// KycHandler handles verification endpoints.
type KycHandler struct {
	kyc          KycService
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
	adminAPIKey  string
}

func NewKycHandler(service KycService, logger *slog.Logger, jwtValidator middleware.JWTValidator, adminAPIKey string) *KycHandler {
	return &KycHandler{
		kyc:          service,
		logger:       logger,
		jwtValidator: jwtValidator,
		adminAPIKey:  adminAPIKey,
	}
}

func (h *KycHandler) Register(r chi.Router) {
	r.With(middleware.RequireAuth(h.jwtValidator, h.logger)).
		Post("/kyc/submit", h.handleSubmit)
	r.Get("/kyc/status/{walletAddress}", h.handleStatus)
	r.Get("/kyc/verified/{walletAddress}", h.handleVerified)
	r.With(middleware.RequireAdminKey(h.adminAPIKey, h.logger)).
		Patch("/kyc/status/{walletAddress}", h.handleUpdateStatus)
}

type submitRequest struct {
	WalletAddress  string              `json:"walletAddress"`
	ProofReference string              `json:"proofReference"`
	Commitment     string              `json:"commitment"`
	Provider       string              `json:"provider"`
	TxHash         string              `json:"txHash"`
	KycScore       *int                `json:"kycScore"`
	ProofTimestamp *time.Time          `json:"proofTimestamp"`
	SolidityParams *kyc.SolidityParams `json:"solidityParams"`
}

// recordResponse projects a record for clients. PendingProof is always
// present so callers can rely on null meaning "nothing awaiting
// finalization".
type recordResponse struct {
	Status         string            `json:"status"`
	KycScore       int               `json:"kycScore"`
	Provider       *string           `json:"provider,omitempty"`
	TxHash         *string           `json:"txHash,omitempty"`
	ProofExpiresAt *time.Time        `json:"proofExpiresAt,omitempty"`
	VerifiedAt     *time.Time        `json:"verifiedAt,omitempty"`
	PendingProof   *kyc.PendingProof `json:"pendingProof"`
}

func (h *KycHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// The middleware has already validated the JWT and set the wallet in context
	authenticatedWallet := middleware.GetWalletAddress(ctx)
	if authenticatedWallet == "" {
		h.logger.ErrorContext(ctx, "wallet missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validateSubmitRequest(req); err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.kyc.Submit(ctx, kyc.SubmitInput{
		WalletAddress:       req.WalletAddress,
		ProofReference:      req.ProofReference,
		Commitment:          req.Commitment,
		Provider:            req.Provider,
		TxHash:              req.TxHash,
		KycScore:            req.KycScore,
		ProofTimestamp:      req.ProofTimestamp,
		SolidityParams:      req.SolidityParams,
		AuthenticatedWallet: authenticatedWallet,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "kyc submission rejected",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

func (h *KycHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.kyc.Status(r.Context(), chi.URLParam(r, "walletAddress"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, status)
}

type verifiedResponse struct {
	WalletAddress string `json:"walletAddress"`
	IsVerified    bool   `json:"isVerified"`
}

func (h *KycHandler) handleVerified(w http.ResponseWriter, r *http.Request) {
	wallet, err := domain.ParseWalletAddress(chi.URLParam(r, "walletAddress"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	verified, err := h.kyc.IsVerified(r.Context(), wallet.String())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, verifiedResponse{
		WalletAddress: wallet.String(),
		IsVerified:    verified,
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
	TxHash string `json:"txHash"`
}

func (h *KycHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	status, ok := kyc.ParseStatus(req.Status)
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid status"))
		return
	}
	if req.TxHash != "" && !govalidator.Matches(req.TxHash, txHashPattern) {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid txHash"))
		return
	}

	record, err := h.kyc.UpdateStatus(ctx, chi.URLParam(r, "walletAddress"), status, req.TxHash)
	if err != nil {
		h.logger.WarnContext(ctx, "admin status update failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toRecordResponse(record))
}

const txHashPattern = `^0x[0-9a-fA-F]{64}$`

func validateSubmitRequest(req submitRequest) error {
	if !govalidator.StringLength(req.ProofReference, "1", "512") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid proofReference")
	}
	if !govalidator.StringLength(req.Commitment, "1", "256") {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid commitment")
	}
	if len(req.Provider) > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, "provider too long")
	}
	if req.TxHash != "" && !govalidator.Matches(req.TxHash, txHashPattern) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid txHash")
	}
	return nil
}

func toRecordResponse(record *kyc.Record) recordResponse {
	return recordResponse{
		Status:         string(record.Status),
		KycScore:       record.KycScore,
		Provider:       record.Provider,
		TxHash:         record.TxHash,
		ProofExpiresAt: record.ProofExpiresAt,
		VerifiedAt:     record.VerifiedAt,
		PendingProof:   record.PendingProof,
	}
}
