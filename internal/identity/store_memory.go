package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"deeproof/pkg/domain"
	"deeproof/pkg/platform/sentinel"
)

// InMemoryStore keeps identities in a map for tests and dev mode.
type InMemoryStore struct {
	mu       sync.RWMutex
	byWallet map[domain.WalletAddress]*Identity
	byID     map[uuid.UUID]*Identity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byWallet: make(map[domain.WalletAddress]*Identity),
		byID:     make(map[uuid.UUID]*Identity),
	}
}

func (s *InMemoryStore) Create(_ context.Context, ident *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byWallet[ident.WalletAddress]; exists {
		return sentinel.ErrConflict
	}
	stored := cloneIdentity(ident)
	s.byWallet[stored.WalletAddress] = stored
	s.byID[stored.ID] = stored
	return nil
}

func (s *InMemoryStore) CreateIfAbsent(_ context.Context, ident *Identity) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, exists := s.byWallet[ident.WalletAddress]; exists {
		return cloneIdentity(existing), nil
	}
	stored := cloneIdentity(ident)
	s.byWallet[stored.WalletAddress] = stored
	s.byID[stored.ID] = stored
	return cloneIdentity(stored), nil
}

func (s *InMemoryStore) FindByWallet(_ context.Context, wallet domain.WalletAddress) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing, exists := s.byWallet[wallet]
	if !exists {
		return nil, sentinel.ErrNotFound
	}
	return cloneIdentity(existing), nil
}

func (s *InMemoryStore) SetCommitmentIfEmpty(_ context.Context, id uuid.UUID, commitment string, updatedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.byID[id]
	if !exists {
		return false, sentinel.ErrNotFound
	}
	if existing.HasCommitment() {
		return false, nil
	}
	c := commitment
	existing.IdentityCommitment = &c
	existing.UpdatedAt = updatedAt
	return true, nil
}

func cloneIdentity(ident *Identity) *Identity {
	cloned := *ident
	if ident.IdentityCommitment != nil {
		c := *ident.IdentityCommitment
		cloned.IdentityCommitment = &c
	}
	return &cloned
}
