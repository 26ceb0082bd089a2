package walletauth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"deeproof/pkg/domain"
	"deeproof/pkg/platform/sentinel"
)

// DefaultChallengeTTL bounds how long a signed challenge stays redeemable.
const DefaultChallengeTTL = 5 * time.Minute

// NonceStore holds issued sign-in challenges keyed by wallet. Consume is
// destructive so a challenge can be redeemed exactly once.
type NonceStore interface {
	Issue(ctx context.Context, wallet domain.WalletAddress, message string, ttl time.Duration) error
	Consume(ctx context.Context, wallet domain.WalletAddress) (string, error)
}

// RedisNonceStore keeps challenges in Redis so redemption is single-use
// across server processes.
type RedisNonceStore struct {
	client *redis.Client
}

func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client}
}

func nonceKey(wallet domain.WalletAddress) string {
	return "deeproof:auth:challenge:" + wallet.String()
}

func (s *RedisNonceStore) Issue(ctx context.Context, wallet domain.WalletAddress, message string, ttl time.Duration) error {
	if err := s.client.Set(ctx, nonceKey(wallet), message, ttl).Err(); err != nil {
		return fmt.Errorf("store sign-in challenge: %w", err)
	}
	return nil
}

// Consume uses GETDEL so concurrent redemptions of the same challenge
// resolve to exactly one winner.
func (s *RedisNonceStore) Consume(ctx context.Context, wallet domain.WalletAddress) (string, error) {
	message, err := s.client.GetDel(ctx, nonceKey(wallet)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("consume sign-in challenge: %w", err)
	}
	return message, nil
}

type memoryNonce struct {
	message   string
	expiresAt time.Time
}

// InMemoryNonceStore backs tests and single-process dev mode.
type InMemoryNonceStore struct {
	mu     sync.Mutex
	nonces map[domain.WalletAddress]memoryNonce
}

func NewInMemoryNonceStore() *InMemoryNonceStore {
	return &InMemoryNonceStore{nonces: make(map[domain.WalletAddress]memoryNonce)}
}

func (s *InMemoryNonceStore) Issue(_ context.Context, wallet domain.WalletAddress, message string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[wallet] = memoryNonce{message: message, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *InMemoryNonceStore) Consume(_ context.Context, wallet domain.WalletAddress) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nonce, exists := s.nonces[wallet]
	if !exists {
		return "", sentinel.ErrNotFound
	}
	delete(s.nonces, wallet)
	if time.Now().After(nonce.expiresAt) {
		return "", sentinel.ErrNotFound
	}
	return nonce.message, nil
}
