//go:build integration

package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeproof/pkg/domain"
	"deeproof/pkg/platform/sentinel"
	"deeproof/pkg/testutil/containers"
)

func newIdentity(t *testing.T, raw string) *Identity {
	t.Helper()
	wallet, err := domain.ParseWalletAddress(raw)
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &Identity{
		ID:            uuid.New(),
		WalletAddress: wallet,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := NewPostgresStore(pg.DB)
	ctx := context.Background()

	t.Run("create and find", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		ident := newIdentity(t, testWallet)
		require.NoError(t, store.Create(ctx, ident))

		found, err := store.FindByWallet(ctx, ident.WalletAddress)
		require.NoError(t, err)
		assert.Equal(t, ident.ID, found.ID)
		assert.Equal(t, ident.WalletAddress, found.WalletAddress)
		assert.Nil(t, found.IdentityCommitment)
	})

	t.Run("create duplicate wallet conflicts", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		require.NoError(t, store.Create(ctx, newIdentity(t, testWallet)))
		err := store.Create(ctx, newIdentity(t, testWallet))
		require.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("find unknown wallet", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		wallet, err := domain.ParseWalletAddress("0x0000000000000000000000000000000000000001")
		require.NoError(t, err)
		_, err = store.FindByWallet(ctx, wallet)
		require.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("create if absent returns existing on conflict", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		first := newIdentity(t, testWallet)
		created, err := store.CreateIfAbsent(ctx, first)
		require.NoError(t, err)
		assert.Equal(t, first.ID, created.ID)

		second := newIdentity(t, testWallet)
		existing, err := store.CreateIfAbsent(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, first.ID, existing.ID)
	})

	t.Run("set commitment once", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		ident := newIdentity(t, testWallet)
		require.NoError(t, store.Create(ctx, ident))

		set, err := store.SetCommitmentIfEmpty(ctx, ident.ID, "commitment-1", time.Now().UTC())
		require.NoError(t, err)
		assert.True(t, set)

		// A second write finds the slot occupied and leaves it untouched.
		set, err = store.SetCommitmentIfEmpty(ctx, ident.ID, "commitment-2", time.Now().UTC())
		require.NoError(t, err)
		assert.False(t, set)

		found, err := store.FindByWallet(ctx, ident.WalletAddress)
		require.NoError(t, err)
		require.NotNil(t, found.IdentityCommitment)
		assert.Equal(t, "commitment-1", *found.IdentityCommitment)
	})
}
