package walletauth

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"

	"deeproof/pkg/domain"
	dErrors "deeproof/pkg/domain-errors"
)

// recoverWallet recovers the signing wallet from an EIP-191 personal-message
// signature. Wallet tooling emits V as 27/28; go-ethereum expects 0/1.
func recoverWallet(message string, signature string) (domain.WalletAddress, error) {
	raw := strings.TrimPrefix(signature, "0x")
	sig, err := hex.DecodeString(raw)
	if err != nil || len(sig) != crypto.SignatureLength {
		return "", dErrors.New(dErrors.CodeUnauthorized, "malformed signature")
	}

	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "signature recovery failed")
	}
	return domain.ParseWalletAddress(crypto.PubkeyToAddress(*pub).Hex())
}
