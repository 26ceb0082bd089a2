package walletauth

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deeproof/internal/identity"
	"deeproof/internal/jwttoken"
	dErrors "deeproof/pkg/domain-errors"
)

type fakeConnector struct {
	connected []string
}

func (f *fakeConnector) Connect(_ context.Context, walletAddress string) (*identity.Identity, error) {
	f.connected = append(f.connected, walletAddress)
	return &identity.Identity{}, nil
}

func newTestService(t *testing.T) (*Service, *fakeConnector) {
	t.Helper()
	connector := &fakeConnector{}
	tokens := jwttoken.NewJWTService("test-signing-key", "test-issuer", "test-audience")
	svc := NewService(NewInMemoryNonceStore(), tokens, connector, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, connector
}

func newWallet(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func signChallenge(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	// Wallet tooling reports V as 27/28.
	sig[crypto.RecoveryIDOffset] += 27
	return "0x" + hex.EncodeToString(sig)
}

func Test_Verify_SignedChallenge(t *testing.T) {
	svc, connector := newTestService(t)
	key, wallet := newWallet(t)
	ctx := context.Background()

	challenge, err := svc.NewChallenge(ctx, wallet)
	require.NoError(t, err)
	require.NotEmpty(t, challenge.Message)

	session, err := svc.Verify(ctx, wallet, signChallenge(t, key, challenge.Message))
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.Equal(t, challenge.WalletAddress, session.WalletAddress)
	require.Len(t, connector.connected, 1)
	assert.Equal(t, challenge.WalletAddress, connector.connected[0])
}

func Test_Verify_RawRecoveryID(t *testing.T) {
	svc, _ := newTestService(t)
	key, wallet := newWallet(t)
	ctx := context.Background()

	challenge, err := svc.NewChallenge(ctx, wallet)
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(challenge.Message)), key)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, wallet, "0x"+hex.EncodeToString(sig))
	require.NoError(t, err)
}

func Test_Verify_WrongSigner(t *testing.T) {
	svc, connector := newTestService(t)
	_, wallet := newWallet(t)
	otherKey, _ := newWallet(t)
	ctx := context.Background()

	challenge, err := svc.NewChallenge(ctx, wallet)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, wallet, signChallenge(t, otherKey, challenge.Message))
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "signature does not match wallet"))
	assert.Empty(t, connector.connected)
}

func Test_Verify_ChallengeSingleUse(t *testing.T) {
	svc, _ := newTestService(t)
	key, wallet := newWallet(t)
	ctx := context.Background()

	challenge, err := svc.NewChallenge(ctx, wallet)
	require.NoError(t, err)
	signature := signChallenge(t, key, challenge.Message)

	_, err = svc.Verify(ctx, wallet, signature)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, wallet, signature)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "challenge expired or not issued"))
}

func Test_Verify_NoChallenge(t *testing.T) {
	svc, _ := newTestService(t)
	_, wallet := newWallet(t)

	_, err := svc.Verify(context.Background(), wallet, "0xdeadbeef")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "challenge expired or not issued"))
}

func Test_Verify_MalformedSignature(t *testing.T) {
	svc, _ := newTestService(t)
	_, wallet := newWallet(t)
	ctx := context.Background()

	_, err := svc.NewChallenge(ctx, wallet)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, wallet, "0xnot-hex")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "malformed signature"))
}

func Test_Verify_ExpiredChallenge(t *testing.T) {
	connector := &fakeConnector{}
	tokens := jwttoken.NewJWTService("test-signing-key", "test-issuer", "test-audience")
	svc := NewService(NewInMemoryNonceStore(), tokens, connector, slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithChallengeTTL(-time.Second))
	key, wallet := newWallet(t)
	ctx := context.Background()

	challenge, err := svc.NewChallenge(ctx, wallet)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, wallet, signChallenge(t, key, challenge.Message))
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "challenge expired or not issued"))
}
