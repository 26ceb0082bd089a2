package kyc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"deeproof/pkg/domain"
)

func mustWallet(t *testing.T, raw string) domain.WalletAddress {
	t.Helper()
	wallet, err := domain.ParseWalletAddress(raw)
	require.NoError(t, err)
	return wallet
}
