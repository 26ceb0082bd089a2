package kyc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"deeproof/pkg/domain"
	"deeproof/pkg/platform/sentinel"
)

// CheckCache is a best-effort read-through cache for the PII-free protocol
// check. A nil cache disables caching; lookup errors degrade to store reads.
type CheckCache interface {
	Get(ctx context.Context, wallet domain.WalletAddress) (*CheckResult, error)
	Set(ctx context.Context, wallet domain.WalletAddress, result *CheckResult) error
	Invalidate(ctx context.Context, wallet domain.WalletAddress) error
}

// DefaultCheckCacheTTL keeps protocol check responses hot briefly; write
// paths invalidate eagerly, so the TTL only bounds staleness for writes that
// bypass this process.
const DefaultCheckCacheTTL = 30 * time.Second

// RedisCheckCache stores serialized check results in Redis.
type RedisCheckCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCheckCache(client *redis.Client, ttl time.Duration) *RedisCheckCache {
	if ttl <= 0 {
		ttl = DefaultCheckCacheTTL
	}
	return &RedisCheckCache{client: client, ttl: ttl}
}

func checkCacheKey(wallet domain.WalletAddress) string {
	return "deeproof:protocol:check:" + wallet.String()
}

func (c *RedisCheckCache) Get(ctx context.Context, wallet domain.WalletAddress) (*CheckResult, error) {
	body, err := c.client.Get(ctx, checkCacheKey(wallet)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get protocol check cache: %w", err)
	}
	var result CheckResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode protocol check cache: %w", err)
	}
	return &result, nil
}

func (c *RedisCheckCache) Set(ctx context.Context, wallet domain.WalletAddress, result *CheckResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode protocol check cache: %w", err)
	}
	if err := c.client.Set(ctx, checkCacheKey(wallet), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("set protocol check cache: %w", err)
	}
	return nil
}

func (c *RedisCheckCache) Invalidate(ctx context.Context, wallet domain.WalletAddress) error {
	if err := c.client.Del(ctx, checkCacheKey(wallet)).Err(); err != nil {
		return fmt.Errorf("invalidate protocol check cache: %w", err)
	}
	return nil
}
