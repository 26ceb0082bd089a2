//go:build integration

package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeproof/pkg/platform/audit"
	"deeproof/pkg/testutil/containers"
)

const testWallet = "0x742d35cc6634c0532925a3b844bc454e4438f44e"

func TestOutboxStore_Integration(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := New(pg.DB)
	ctx := context.Background()

	t.Run("append and fetch", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		event := audit.Event{
			Action:        audit.ActionKycVerified,
			Timestamp:     time.Now().UTC(),
			WalletAddress: testWallet,
			Detail:        "verified",
			RequestID:     "req-1",
		}
		require.NoError(t, store.Append(ctx, event))

		entries, err := store.FetchUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, testWallet, entries[0].Key)

		var body map[string]any
		require.NoError(t, json.Unmarshal(entries[0].Payload, &body))
		assert.Equal(t, string(audit.ActionKycVerified), body["action"])
		assert.Equal(t, string(audit.CategoryCompliance), body["category"])
		assert.Equal(t, "req-1", body["requestId"])
	})

	t.Run("mark published removes from fetch", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		for i := 0; i < 3; i++ {
			require.NoError(t, store.Append(ctx, audit.Event{
				Action:        audit.ActionKycSubmitted,
				Timestamp:     time.Now().UTC(),
				WalletAddress: testWallet,
			}))
		}

		entries, err := store.FetchUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 3)

		require.NoError(t, store.MarkPublished(ctx,
			[]uuid.UUID{entries[0].ID, entries[1].ID}, time.Now().UTC()))

		remaining, err := store.FetchUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, entries[2].ID, remaining[0].ID)
	})

	t.Run("fetch respects limit and order", func(t *testing.T) {
		require.NoError(t, pg.Truncate(ctx))

		base := time.Now().UTC()
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Append(ctx, audit.Event{
				Action:        audit.ActionKycSubmitted,
				Timestamp:     base.Add(time.Duration(i) * time.Second),
				WalletAddress: testWallet,
			}))
		}

		entries, err := store.FetchUnpublished(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})
}
