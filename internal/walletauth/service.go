package walletauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"deeproof/internal/identity"
	"deeproof/internal/jwttoken"
	"deeproof/pkg/domain"
	dErrors "deeproof/pkg/domain-errors"
	"deeproof/pkg/platform/audit"
	"deeproof/pkg/platform/sentinel"
	"deeproof/pkg/requestcontext"
)

// IdentityConnector provisions the identity and its default verification
// record on first sign-in. Implemented by the identity service.
type IdentityConnector interface {
	Connect(ctx context.Context, walletAddress string) (*identity.Identity, error)
}

// TokenIssuer mints access tokens for authenticated wallets.
type TokenIssuer interface {
	GenerateAccessToken(walletAddress string, expiresIn time.Duration) (string, error)
}

// Service implements challenge/response wallet sign-in. Possession of the
// wallet's private key, proven by signing a one-time challenge, is the only
// credential; there are no passwords or accounts.
type Service struct {
	nonces    NonceStore
	tokens    TokenIssuer
	connector IdentityConnector
	logger    *slog.Logger
	audit     audit.Store

	challengeTTL time.Duration
	tokenTTL     time.Duration
}

type Option func(*Service)

// WithAudit sets the audit event store.
func WithAudit(store audit.Store) Option {
	return func(s *Service) { s.audit = store }
}

// WithChallengeTTL overrides how long an issued challenge stays redeemable.
func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *Service) { s.challengeTTL = ttl }
}

// WithTokenTTL overrides the lifetime of minted access tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

func NewService(nonces NonceStore, tokens TokenIssuer, connector IdentityConnector, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		nonces:       nonces,
		tokens:       tokens,
		connector:    connector,
		logger:       logger,
		challengeTTL: DefaultChallengeTTL,
		tokenTTL:     jwttoken.DefaultAccessTokenTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Challenge is a one-time message the wallet must sign to authenticate.
type Challenge struct {
	WalletAddress string    `json:"walletAddress"`
	Message       string    `json:"message"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Session is a minted access token and its expiry.
type Session struct {
	WalletAddress string    `json:"walletAddress"`
	AccessToken   string    `json:"accessToken"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// NewChallenge issues a fresh sign-in challenge for a wallet. Re-issuing
// replaces any outstanding challenge for the same wallet.
func (s *Service) NewChallenge(ctx context.Context, walletAddress string) (*Challenge, error) {
	wallet, err := domain.ParseWalletAddress(walletAddress)
	if err != nil {
		return nil, err
	}

	nonce, err := newNonce()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate challenge")
	}

	now := requestcontext.Now(ctx)
	message := fmt.Sprintf(
		"Sign this message to authenticate with Deeproof.\n\nWallet: %s\nNonce: %s\nIssued: %s",
		wallet, nonce, now.UTC().Format(time.RFC3339),
	)
	if err := s.nonces.Issue(ctx, wallet, message, s.challengeTTL); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store challenge")
	}

	return &Challenge{
		WalletAddress: wallet.String(),
		Message:       message,
		ExpiresAt:     now.Add(s.challengeTTL),
	}, nil
}

// Verify redeems a challenge: the signature must recover to the claimed
// wallet. On success the identity is provisioned and a token is minted.
func (s *Service) Verify(ctx context.Context, walletAddress string, signature string) (*Session, error) {
	wallet, err := domain.ParseWalletAddress(walletAddress)
	if err != nil {
		return nil, err
	}

	message, err := s.nonces.Consume(ctx, wallet)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.emit(ctx, audit.ActionAuthFailed, wallet, "challenge missing or expired")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "challenge expired or not issued")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load challenge")
	}

	signer, err := recoverWallet(message, signature)
	if err != nil {
		s.emit(ctx, audit.ActionAuthFailed, wallet, "signature recovery failed")
		return nil, err
	}
	if signer != wallet {
		s.emit(ctx, audit.ActionAuthFailed, wallet, "signature does not match wallet")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "signature does not match wallet")
	}

	if _, err := s.connector.Connect(ctx, wallet.String()); err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateAccessToken(wallet.String(), s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mint access token")
	}

	s.emit(ctx, audit.ActionWalletAuthenticated, wallet, "")
	return &Session{
		WalletAddress: wallet.String(),
		AccessToken:   token,
		ExpiresAt:     requestcontext.Now(ctx).Add(s.tokenTTL),
	}, nil
}

func newNonce() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
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
