package kyc

import (
	"context"

	"github.com/google/uuid"

	"deeproof/internal/identity"
	"deeproof/pkg/domain"
)

// Store persists verification records. Implementations are pure I/O; all
// transition rules live in the Service. Sentinel errors signal store facts.
type Store interface {
	FindByIdentity(ctx context.Context, identityID uuid.UUID) (*Record, error)
	Create(ctx context.Context, record *Record) error
	Update(ctx context.Context, record *Record) error
}

// TxStores exposes the stores participating in a submission transaction.
// Inside RunInWalletTx both write through the same transactional scope.
type TxStores struct {
	Identities identity.Store
	Records    Store
}

// TxRunner serializes submissions per wallet and provides atomicity.
//
// The PostgreSQL implementation opens a database transaction and takes a
// wallet-scoped advisory lock, which also covers the identity's
// not-yet-existing slot on first submission; correctness holds across
// processes sharing one database. The in-memory implementation approximates
// this with sharded mutexes keyed by wallet and exists for tests and single
// process dev mode only.
type TxRunner interface {
	RunInWalletTx(ctx context.Context, wallet domain.WalletAddress, fn func(ctx context.Context, stores TxStores) error) error
}
