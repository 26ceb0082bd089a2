package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"deeproof/pkg/domain"
)

// Store is interface-driven so the coordinator can run against in-memory
// persistence in tests and PostgreSQL in production without rewiring.
// Implementations return sentinel.ErrNotFound / sentinel.ErrConflict; the
// service layer translates those into domain errors.
type Store interface {
	// Create persists a new identity. Returns sentinel.ErrConflict when the
	// wallet address is already bound.
	Create(ctx context.Context, ident *Identity) error

	// CreateIfAbsent persists a new identity unless the wallet is already
	// bound, in which case it returns the existing record. Concurrent callers
	// never observe a duplicate-key failure.
	CreateIfAbsent(ctx context.Context, ident *Identity) (*Identity, error)

	// FindByWallet looks up an identity by normalized wallet address.
	FindByWallet(ctx context.Context, wallet domain.WalletAddress) (*Identity, error)

	// SetCommitmentIfEmpty conditionally fills the set-once commitment slot.
	// The update applies only while the stored commitment is null; the
	// returned bool reports whether this call set it. A false return with no
	// error means another value already occupies the slot.
	SetCommitmentIfEmpty(ctx context.Context, id uuid.UUID, commitment string, updatedAt time.Time) (bool, error)
}
