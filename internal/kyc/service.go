package kyc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"deeproof/internal/identity"
	kycmetrics "deeproof/internal/kyc/metrics"
	"deeproof/pkg/domain"
	dErrors "deeproof/pkg/domain-errors"
	"deeproof/pkg/platform/audit"
	"deeproof/pkg/platform/sentinel"
	"deeproof/pkg/requestcontext"
)

// DefaultProcessingWindow is the soft-lock horizon for in-flight
// finalizations. It expires on its own, so a crash mid-processing never
// wedges a wallet.
const DefaultProcessingWindow = 60 * time.Second

// Service is the submission coordinator: the sole writer of verification
// state transitions. Every write happens inside one wallet-serialized
// transaction, so correctness holds across server processes sharing a store.
type Service struct {
	tx         TxRunner
	identities identity.Store
	records    Store
	logger     *slog.Logger
	metrics    *kycmetrics.Metrics
	audit      audit.Store
	cache      CheckCache
	tracer     trace.Tracer

	validityWindow   time.Duration
	processingWindow time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics collector.
func WithMetrics(m *kycmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit sets the audit event store.
func WithAudit(store audit.Store) Option {
	return func(s *Service) { s.audit = store }
}

// WithCheckCache sets the protocol check cache.
func WithCheckCache(cache CheckCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithValidityWindow overrides the proof freshness window.
func WithValidityWindow(window time.Duration) Option {
	return func(s *Service) { s.validityWindow = window }
}

// WithProcessingWindow overrides the in-progress soft-lock window.
func WithProcessingWindow(window time.Duration) Option {
	return func(s *Service) { s.processingWindow = window }
}

func NewService(tx TxRunner, identities identity.Store, records Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		tx:               tx,
		identities:       identities,
		records:          records,
		logger:           logger,
		tracer:           otel.Tracer("deeproof/internal/kyc"),
		validityWindow:   DefaultProofValidityWindow,
		processingWindow: DefaultProcessingWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInput carries one proof submission. TxHash distinguishes the two
// legs of the flow: absent, the call parks proof metadata as PENDING;
// present, it finalizes the record as VERIFIED.
type SubmitInput struct {
	WalletAddress  string
	ProofReference string
	Commitment     string
	Provider       string
	TxHash         string
	KycScore       *int
	ProofTimestamp *time.Time
	SolidityParams *SolidityParams

	// AuthenticatedWallet is the wallet proven by the bearer token. When set,
	// it must match WalletAddress; holders of one wallet cannot submit proofs
	// for another even if they know its address.
	AuthenticatedWallet string
}

// Submit drives the proof-lifecycle state machine for one wallet:
// ownership and freshness guards, then a wallet-serialized transaction that
// creates or transitions the identity and its verification record.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*Record, error) {
	ctx, span := s.tracer.Start(ctx, "kyc.Submit")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.ObserveSubmit(time.Since(start)) }()

	wallet, err := domain.ParseWalletAddress(input.WalletAddress)
	if err != nil {
		s.metrics.RecordSubmission("invalid")
		return nil, err
	}
	span.SetAttributes(attribute.String("wallet.address", wallet.String()))

	if input.ProofReference == "" {
		s.metrics.RecordSubmission("invalid")
		return nil, dErrors.New(dErrors.CodeBadRequest, "proof reference is required")
	}
	if input.Commitment == "" {
		s.metrics.RecordSubmission("invalid")
		return nil, dErrors.New(dErrors.CodeBadRequest, "commitment is required")
	}
	if input.KycScore != nil && (*input.KycScore < 0 || *input.KycScore > 100) {
		s.metrics.RecordSubmission("invalid")
		return nil, dErrors.New(dErrors.CodeBadRequest, "kyc score must be between 0 and 100")
	}

	if input.AuthenticatedWallet != "" {
		authenticated, err := domain.ParseWalletAddress(input.AuthenticatedWallet)
		if err != nil {
			s.metrics.RecordSubmission("invalid")
			return nil, err
		}
		if authenticated != wallet {
			s.metrics.RecordSubmission("wallet_mismatch")
			s.emit(ctx, audit.ActionAuthFailed, wallet, "submission wallet does not match authenticated wallet")
			return nil, dErrors.New(dErrors.CodeForbidden, "cannot submit verification for a different wallet")
		}
	}

	now := requestcontext.Now(ctx)
	if err := ValidateFreshness(input.ProofTimestamp, now, s.validityWindow); err != nil {
		s.metrics.RecordSubmission("stale_proof")
		return nil, err
	}

	var result *Record
	err = s.tx.RunInWalletTx(ctx, wallet, func(ctx context.Context, stores TxStores) error {
		ident, err := s.ensureIdentity(ctx, stores, wallet, input.Commitment, now)
		if err != nil {
			return err
		}

		existing, err := stores.Records.FindByIdentity(ctx, ident.ID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
		}

		if existing == nil {
			record := s.buildRecord(ident.ID, input, now)
			if err := stores.Records.Create(ctx, record); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification record")
			}
			result = record
			return nil
		}

		// A VERIFIED record is terminal for submissions; resubmission is
		// rejected, never merged back into PENDING.
		if existing.IsVerified() {
			return dErrors.New(dErrors.CodeConflict, "verification already completed for this wallet")
		}

		if existing.ProcessedAt != nil && existing.TxHash == nil && now.Sub(*existing.ProcessedAt) < s.processingWindow {
			return dErrors.New(dErrors.CodeConflict, "a submission is already being processed, retry shortly")
		}

		s.applySubmission(existing, input, now)
		if err := stores.Records.Update(ctx, existing); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update verification record")
		}
		result = existing
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.RecordSubmission("conflict")
		} else if dErrors.CodeOf(err) == dErrors.CodeInternal {
			s.metrics.RecordSubmission("error")
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("kyc.status", string(result.Status)))
	if result.IsVerified() {
		s.metrics.RecordSubmission("verified")
		s.metrics.RecordVerification()
		s.emit(ctx, audit.ActionKycVerified, wallet, "")
	} else {
		s.metrics.RecordSubmission("pending")
		s.emit(ctx, audit.ActionKycSubmitted, wallet, "")
	}
	s.invalidateCheck(ctx, wallet)
	return result, nil
}

// ensureIdentity resolves the identity row under the wallet lock, creating
// it on first submission and seeding the set-once commitment. A commitment
// differing from the stored one is deliberately ignored, not an error.
func (s *Service) ensureIdentity(ctx context.Context, stores TxStores, wallet domain.WalletAddress, commitment string, now time.Time) (*identity.Identity, error) {
	seed := &identity.Identity{
		ID:            uuid.New(),
		WalletAddress: wallet,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if commitment != "" {
		c := commitment
		seed.IdentityCommitment = &c
	}

	ident, err := stores.Identities.CreateIfAbsent(ctx, seed)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve identity")
	}
	if ident.ID == seed.ID {
		s.emit(ctx, audit.ActionIdentityCreated, wallet, "")
		return ident, nil
	}

	if !ident.HasCommitment() && commitment != "" {
		set, err := stores.Identities.SetCommitmentIfEmpty(ctx, ident.ID, commitment, now)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind identity commitment")
		}
		if set {
			c := commitment
			ident.IdentityCommitment = &c
			ident.UpdatedAt = now
			s.emit(ctx, audit.ActionCommitmentBound, wallet, "")
		}
	}
	return ident, nil
}

func (s *Service) buildRecord(identityID uuid.UUID, input SubmitInput, now time.Time) *Record {
	proofTS := now
	if input.ProofTimestamp != nil {
		proofTS = *input.ProofTimestamp
	}
	expiresAt := proofTS.Add(s.validityWindow)

	score := defaultScore(input.Provider)
	if input.KycScore != nil {
		score = *input.KycScore
	}

	record := &Record{
		ID:             uuid.New(),
		IdentityID:     identityID,
		Status:         StatusPending,
		KycScore:       score,
		Provider:       optString(input.Provider),
		ProofReference: optString(input.ProofReference),
		TxHash:         optString(input.TxHash),
		ProofTimestamp: &proofTS,
		ProofExpiresAt: &expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if input.TxHash != "" {
		record.Status = StatusVerified
		record.ProcessedAt = timePtr(now)
		record.VerifiedAt = timePtr(now)
	} else {
		record.PendingProof = pendingPayload(input)
	}
	return record
}

// applySubmission merges a resubmission into a non-verified record: explicit
// values override stored ones, omitted values preserve prior state.
func (s *Service) applySubmission(record *Record, input SubmitInput, now time.Time) {
	record.ProofReference = optString(input.ProofReference)
	if input.Provider != "" {
		record.Provider = optString(input.Provider)
	}
	if input.TxHash != "" {
		record.TxHash = optString(input.TxHash)
	}
	if input.KycScore != nil {
		record.KycScore = *input.KycScore
	}

	proofTS := now
	if input.ProofTimestamp != nil {
		proofTS = *input.ProofTimestamp
	}
	expiresAt := proofTS.Add(s.validityWindow)
	record.ProofTimestamp = &proofTS
	record.ProofExpiresAt = &expiresAt

	if input.TxHash != "" {
		record.Status = StatusVerified
		record.ProcessedAt = timePtr(now)
		record.VerifiedAt = timePtr(now)
		record.PendingProof = nil
	} else {
		record.Status = StatusPending
		record.ProcessedAt = nil
		record.VerifiedAt = nil
		record.PendingProof = pendingPayload(input)
	}
	record.UpdatedAt = now
}

func pendingPayload(input SubmitInput) *PendingProof {
	return &PendingProof{
		ProofReference: input.ProofReference,
		SolidityParams: input.SolidityParams,
		Provider:       input.Provider,
		Commitment:     input.Commitment,
		Timestamp:      input.ProofTimestamp,
	}
}

// EnsureDefault creates the initial PENDING record for a freshly connected
// identity. Safe to repeat; a creation race with a concurrent submission is
// benign.
func (s *Service) EnsureDefault(ctx context.Context, identityID uuid.UUID) error {
	_, err := s.records.FindByIdentity(ctx, identityID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}

	now := requestcontext.Now(ctx)
	record := &Record{
		ID:         uuid.New(),
		IdentityID: identityID,
		Status:     StatusPending,
		KycScore:   0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.records.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return err
	}
	return nil
}

// StatusResult is the full status projection for the wallet's own client.
// PendingProof is included so the client can resume an interrupted
// finalization; it never contains raw KYC data.
type StatusResult struct {
	WalletAddress string        `json:"walletAddress"`
	Status        Status        `json:"status"`
	KycScore      int           `json:"kycScore"`
	Provider      *string       `json:"provider"`
	VerifiedAt    *time.Time    `json:"verifiedAt"`
	PendingProof  *PendingProof `json:"pendingProof"`
}

// Status returns the verification status for a wallet.
func (s *Service) Status(ctx context.Context, walletAddress string) (*StatusResult, error) {
	wallet, err := domain.ParseWalletAddress(walletAddress)
	if err != nil {
		return nil, err
	}

	record, ident, err := s.findRecordByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	return &StatusResult{
		WalletAddress: ident.WalletAddress.String(),
		Status:        record.Status,
		KycScore:      record.KycScore,
		Provider:      record.Provider,
		VerifiedAt:    record.VerifiedAt,
		PendingProof:  record.PendingProof,
	}, nil
}

// IsVerified reports whether a wallet holds a VERIFIED record. Unknown
// wallets are simply not verified.
func (s *Service) IsVerified(ctx context.Context, walletAddress string) (bool, error) {
	status, err := s.Status(ctx, walletAddress)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return status.Status == StatusVerified, nil
}

// CheckResult is the reduced, PII-free projection for third-party
// integrators: no provider, no proof payload, no commitment.
type CheckResult struct {
	WalletAddress string     `json:"walletAddress"`
	IsVerified    bool       `json:"isVerified"`
	KycScore      int        `json:"kycScore"`
	VerifiedAt    *time.Time `json:"verifiedAt"`
}

// ExternalCheck is the protocol query for RWA/DeFi integrators. It is total
// over well-formed addresses: unknown wallets come back unverified with a
// zero score instead of erroring.
func (s *Service) ExternalCheck(ctx context.Context, walletAddress string) (*CheckResult, error) {
	wallet, err := domain.ParseWalletAddress(walletAddress)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, wallet)
		if err == nil {
			s.metrics.RecordCacheHit()
			s.metrics.RecordExternalCheck(checkOutcome(cached.IsVerified))
			return cached, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "protocol check cache read failed", "error", err)
		}
		s.metrics.RecordCacheMiss()
	}

	result := &CheckResult{WalletAddress: wallet.String()}
	record, _, err := s.findRecordByWallet(ctx, wallet)
	switch {
	case err == nil:
		result.IsVerified = record.Status == StatusVerified
		result.KycScore = record.KycScore
		result.VerifiedAt = record.VerifiedAt
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		// Unknown wallet degrades to the unverified default.
	default:
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, wallet, result); err != nil {
			s.logger.WarnContext(ctx, "protocol check cache write failed", "error", err)
		}
	}
	s.metrics.RecordExternalCheck(checkOutcome(result.IsVerified))
	return result, nil
}

func checkOutcome(verified bool) string {
	if verified {
		return "verified"
	}
	return "unverified"
}

// UpdateStatus is the administrative transition. It bypasses the
// coordinator's race guards on purpose: operators use it to reconcile
// records after manual on-chain inspection.
func (s *Service) UpdateStatus(ctx context.Context, walletAddress string, status Status, txHash string) (*Record, error) {
	wallet, err := domain.ParseWalletAddress(walletAddress)
	if err != nil {
		return nil, err
	}

	record, _, err := s.findRecordByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	record.Status = status
	if txHash != "" {
		record.TxHash = optString(txHash)
	}
	if status == StatusVerified {
		record.VerifiedAt = timePtr(now)
		record.PendingProof = nil
	}
	record.UpdatedAt = now

	if err := s.records.Update(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update verification record")
	}

	if status == StatusVerified {
		s.metrics.RecordVerification()
	}
	s.emit(ctx, audit.ActionKycStatusUpdated, wallet, string(status))
	s.invalidateCheck(ctx, wallet)
	return record, nil
}

func (s *Service) findRecordByWallet(ctx context.Context, wallet domain.WalletAddress) (*Record, *identity.Identity, error) {
	ident, err := s.identities.FindByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "no verification record found for this wallet")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	record, err := s.records.FindByIdentity(ctx, ident.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "no verification record found for this wallet")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	return record, ident, nil
}

func (s *Service) invalidateCheck(ctx context.Context, wallet domain.WalletAddress) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, wallet); err != nil {
		s.logger.WarnContext(ctx, "protocol check cache invalidation failed", "error", err)
	}
}

func (s *Service) emit(ctx context.Context, action audit.Action, wallet domain.WalletAddress, detail string) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Action:        action,
		Timestamp:     requestcontext.Now(ctx),
		WalletAddress: wallet.String(),
		Detail:        detail,
		RequestID:     requestcontext.RequestID(ctx),
	}
	if err := s.audit.Append(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to append audit event",
			"action", string(action),
			"error", err,
		)
	}
}

func optString(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}

func timePtr(t time.Time) *time.Time { return &t }
