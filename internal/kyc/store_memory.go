package kyc

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"deeproof/internal/identity"
	"deeproof/pkg/domain"
	"deeproof/pkg/platform/sentinel"
)

// InMemoryStore keeps verification records in a map for tests and dev mode.
type InMemoryStore struct {
	mu         sync.RWMutex
	byIdentity map[uuid.UUID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byIdentity: make(map[uuid.UUID]*Record)}
}

func (s *InMemoryStore) FindByIdentity(_ context.Context, identityID uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, exists := s.byIdentity[identityID]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (s *InMemoryStore) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byIdentity[record.IdentityID]; exists {
		return sentinel.ErrConflict
	}
	s.byIdentity[record.IdentityID] = cloneRecord(record)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byIdentity[record.IdentityID]; !exists {
		return sentinel.ErrNotFound
	}
	s.byIdentity[record.IdentityID] = cloneRecord(record)
	return nil
}

func cloneRecord(record *Record) *Record {
	cloned := *record
	cloned.Provider = cloneStringPtr(record.Provider)
	cloned.ProofReference = cloneStringPtr(record.ProofReference)
	cloned.TxHash = cloneStringPtr(record.TxHash)
	cloned.ProofTimestamp = cloneTimePtr(record.ProofTimestamp)
	cloned.ProofExpiresAt = cloneTimePtr(record.ProofExpiresAt)
	cloned.ProcessedAt = cloneTimePtr(record.ProcessedAt)
	cloned.VerifiedAt = cloneTimePtr(record.VerifiedAt)
	if record.PendingProof != nil {
		pending := *record.PendingProof
		pending.Timestamp = cloneTimePtr(record.PendingProof.Timestamp)
		cloned.PendingProof = &pending
	}
	return &cloned
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTimePtr(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

// numWalletShards spreads per-wallet serialization across independent locks
// so unrelated wallets never contend.
const numWalletShards = 128

// InMemoryTx serializes submissions with sharded mutexes keyed by the FNV-1a
// hash of the wallet address. It mirrors the ordering guarantee of the
// PostgreSQL advisory lock within a single process.
type InMemoryTx struct {
	shards     [numWalletShards]sync.Mutex
	identities identity.Store
	records    Store
}

func NewInMemoryTx(identities identity.Store, records Store) *InMemoryTx {
	return &InMemoryTx{identities: identities, records: records}
}

func (t *InMemoryTx) RunInWalletTx(ctx context.Context, wallet domain.WalletAddress, fn func(ctx context.Context, stores TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	shard := hashWallet(wallet.String()) % numWalletShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, TxStores{Identities: t.identities, Records: t.records})
}

// hashWallet uses FNV-1a for even shard distribution over hex addresses.
func hashWallet(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
