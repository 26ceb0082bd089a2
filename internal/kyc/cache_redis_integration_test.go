//go:build integration

package kyc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeproof/pkg/platform/sentinel"
	"deeproof/pkg/testutil/containers"
)

func TestRedisCheckCache_Integration(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	cache := NewRedisCheckCache(rc.Client, time.Minute)
	ctx := context.Background()
	wallet := mustWallet(t, testWallet)

	t.Run("miss then hit", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		_, err := cache.Get(ctx, wallet)
		require.ErrorIs(t, err, sentinel.ErrNotFound)

		verifiedAt := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
		require.NoError(t, cache.Set(ctx, wallet, &CheckResult{
			WalletAddress: wallet.String(),
			IsVerified:    true,
			KycScore:      80,
			VerifiedAt:    &verifiedAt,
		}))

		cached, err := cache.Get(ctx, wallet)
		require.NoError(t, err)
		assert.True(t, cached.IsVerified)
		assert.Equal(t, 80, cached.KycScore)
		require.NotNil(t, cached.VerifiedAt)
		assert.True(t, verifiedAt.Equal(*cached.VerifiedAt))
	})

	t.Run("invalidate", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		require.NoError(t, cache.Set(ctx, wallet, &CheckResult{WalletAddress: wallet.String()}))
		require.NoError(t, cache.Invalidate(ctx, wallet))

		_, err := cache.Get(ctx, wallet)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("entries expire", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		shortCache := NewRedisCheckCache(rc.Client, 100*time.Millisecond)
		require.NoError(t, shortCache.Set(ctx, wallet, &CheckResult{WalletAddress: wallet.String()}))

		require.Eventually(t, func() bool {
			_, err := shortCache.Get(ctx, wallet)
			return err != nil
		}, 2*time.Second, 50*time.Millisecond)
	})
}
