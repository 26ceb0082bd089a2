package identity

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"deeproof/pkg/domain"
	dErrors "deeproof/pkg/domain-errors"
	"deeproof/pkg/platform/audit"
	"deeproof/pkg/platform/sentinel"
	"deeproof/pkg/requestcontext"
)

// KycSeeder ensures a default verification record exists for an identity.
// Implemented by the kyc service; declared here so identity stays free of a
// dependency on the kyc package.
type KycSeeder interface {
	EnsureDefault(ctx context.Context, identityID uuid.UUID) error
}

// Service owns identity creation and lookup. It never deletes identities;
// removal is an admin concern outside this service.
type Service struct {
	store  Store
	seeder KycSeeder
	logger *slog.Logger
	audit  audit.Store
}

func NewService(store Store, seeder KycSeeder, logger *slog.Logger, auditStore audit.Store) *Service {
	return &Service{store: store, seeder: seeder, logger: logger, audit: auditStore}
}

// BindInput carries the bind-identity request payload.
type BindInput struct {
	WalletAddress      string
	IdentityCommitment string
}

// Bind creates a new identity for an unbound wallet. One wallet maps to
// exactly one identity; binding an already-bound wallet is a conflict.
func (s *Service) Bind(ctx context.Context, input BindInput) (*Identity, error) {
	wallet, err := domain.ParseWalletAddress(input.WalletAddress)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	ident := &Identity{
		ID:            uuid.New(),
		WalletAddress: wallet,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if input.IdentityCommitment != "" {
		commitment := input.IdentityCommitment
		ident.IdentityCommitment = &commitment
	}

	if err := s.store.Create(ctx, ident); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "wallet is already bound to an identity")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create identity")
	}

	s.emit(ctx, audit.ActionIdentityCreated, wallet)
	return ident, nil
}

// Get looks up an identity by wallet address.
func (s *Service) Get(ctx context.Context, walletAddress string) (*Identity, error) {
	wallet, err := domain.ParseWalletAddress(walletAddress)
	if err != nil {
		return nil, err
	}
	ident, err := s.store.FindByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "identity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load identity")
	}
	return ident, nil
}

// Connect ensures an identity and its default verification record exist for
// a wallet. Called on first successful wallet sign-in; safe to repeat.
func (s *Service) Connect(ctx context.Context, walletAddress string) (*Identity, error) {
	wallet, err := domain.ParseWalletAddress(walletAddress)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	ident, err := s.store.CreateIfAbsent(ctx, &Identity{
		ID:            uuid.New(),
		WalletAddress: wallet,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to connect identity")
	}

	if s.seeder != nil {
		if err := s.seeder.EnsureDefault(ctx, ident.ID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed verification record")
		}
	}
	return ident, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, wallet domain.WalletAddress) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Action:        action,
		Timestamp:     requestcontext.Now(ctx),
		WalletAddress: wallet.String(),
		RequestID:     requestcontext.RequestID(ctx),
	}
	if err := s.audit.Append(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to append audit event",
			"action", string(action),
			"error", err,
		)
	}
}
