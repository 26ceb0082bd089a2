// Package domain holds shared identifier types. Keeping them here lets every
// layer agree on normalization rules without importing a feature package.
package domain

import (
	"regexp"
	"strings"

	dErrors "deeproof/pkg/domain-errors"
)

// WalletAddress is an EVM address in its canonical stored form: 0x-prefixed,
// 40 hex characters, lowercase. All persistence and comparison happens on
// this form; mixed-case (EIP-55) input is accepted and folded on parse.
type WalletAddress string

var walletAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ParseWalletAddress validates and lowercase-normalizes a wallet address.
func ParseWalletAddress(raw string) (WalletAddress, error) {
	trimmed := strings.TrimSpace(raw)
	if !walletAddressPattern.MatchString(trimmed) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid wallet address format")
	}
	return WalletAddress(strings.ToLower(trimmed)), nil
}

func (w WalletAddress) String() string { return string(w) }

// IsZero reports whether the address is unset.
func (w WalletAddress) IsZero() bool { return w == "" }
