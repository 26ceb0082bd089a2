package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "deeproof/pkg/domain-errors"
)

func TestParseWalletAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "lowercase passes through",
			input: "0x742d35cc6634c0532925a3b844bc454e4438f44e",
			want:  "0x742d35cc6634c0532925a3b844bc454e4438f44e",
		},
		{
			name:  "checksummed input folds to lowercase",
			input: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
			want:  "0x742d35cc6634c0532925a3b844bc454e4438f44e",
		},
		{
			name:  "surrounding whitespace is trimmed",
			input: "  0x742d35cc6634c0532925a3b844bc454e4438f44e\n",
			want:  "0x742d35cc6634c0532925a3b844bc454e4438f44e",
		},
		{
			name:    "missing prefix",
			input:   "742d35cc6634c0532925a3b844bc454e4438f44e",
			wantErr: true,
		},
		{
			name:    "too short",
			input:   "0x742d35cc",
			wantErr: true,
		},
		{
			name:    "non-hex characters",
			input:   "0x742d35cc6634c0532925a3b844bc454e4438f4zz",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet, err := ParseWalletAddress(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, wallet.String())
		})
	}
}

func TestWalletAddress_IsZero(t *testing.T) {
	assert.True(t, WalletAddress("").IsZero())

	wallet, err := ParseWalletAddress("0x742d35cc6634c0532925a3b844bc454e4438f44e")
	require.NoError(t, err)
	assert.False(t, wallet.IsZero())
}
