//go:build integration

package walletauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeproof/pkg/domain"
	"deeproof/pkg/platform/sentinel"
	"deeproof/pkg/testutil/containers"
)

func TestRedisNonceStore_Integration(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	store := NewRedisNonceStore(rc.Client)
	ctx := context.Background()

	wallet, err := domain.ParseWalletAddress("0x742d35Cc6634C0532925a3b844Bc454e4438f44e")
	require.NoError(t, err)

	t.Run("consume is single use", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		require.NoError(t, store.Issue(ctx, wallet, "challenge message", time.Minute))

		message, err := store.Consume(ctx, wallet)
		require.NoError(t, err)
		assert.Equal(t, "challenge message", message)

		_, err = store.Consume(ctx, wallet)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("reissue replaces the outstanding challenge", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		require.NoError(t, store.Issue(ctx, wallet, "first", time.Minute))
		require.NoError(t, store.Issue(ctx, wallet, "second", time.Minute))

		message, err := store.Consume(ctx, wallet)
		require.NoError(t, err)
		assert.Equal(t, "second", message)
	})

	t.Run("challenges expire", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		require.NoError(t, store.Issue(ctx, wallet, "short lived", 100*time.Millisecond))

		require.Eventually(t, func() bool {
			_, err := store.Consume(ctx, wallet)
			return err != nil
		}, 2*time.Second, 50*time.Millisecond)
	})
}
