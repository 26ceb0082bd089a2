package identity

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "deeproof/pkg/domain-errors"
	auditmemory "deeproof/pkg/platform/audit/store/memory"
)

const testWallet = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

type fakeSeeder struct {
	seeded []uuid.UUID
}

func (f *fakeSeeder) EnsureDefault(_ context.Context, identityID uuid.UUID) error {
	f.seeded = append(f.seeded, identityID)
	return nil
}

func newTestService() (*Service, *fakeSeeder) {
	seeder := &fakeSeeder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(NewInMemoryStore(), seeder, logger, auditmemory.New()), seeder
}

func Test_Bind(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	ident, err := svc.Bind(ctx, BindInput{
		WalletAddress:      testWallet,
		IdentityCommitment: "commitment-1",
	})
	require.NoError(t, err)
	require.NotNil(t, ident.IdentityCommitment)
	assert.Equal(t, "commitment-1", *ident.IdentityCommitment)
	assert.Equal(t, "0x742d35cc6634c0532925a3b844bc454e4438f44e", ident.WalletAddress.String())
}

func Test_Bind_AlreadyBound(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Bind(ctx, BindInput{WalletAddress: testWallet})
	require.NoError(t, err)

	_, err = svc.Bind(ctx, BindInput{WalletAddress: testWallet})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func Test_Bind_InvalidWallet(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Bind(context.Background(), BindInput{WalletAddress: "0xnot-a-wallet"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func Test_Get_NotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Get(context.Background(), testWallet)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func Test_Connect_ProvisionsIdentityAndRecord(t *testing.T) {
	svc, seeder := newTestService()
	ctx := context.Background()

	ident, err := svc.Connect(ctx, testWallet)
	require.NoError(t, err)
	require.Len(t, seeder.seeded, 1)
	assert.Equal(t, ident.ID, seeder.seeded[0])

	// Reconnecting resolves the same identity.
	again, err := svc.Connect(ctx, testWallet)
	require.NoError(t, err)
	assert.Equal(t, ident.ID, again.ID)
}
