package identity

import (
	"time"

	"github.com/google/uuid"

	"deeproof/pkg/domain"
)

// Identity binds a wallet address to a durable identity record. The wallet
// address is stored lowercase and never changes; the commitment (the hash
// binding the user's secret trapdoor) is settable at most once.
type Identity struct {
	ID                 uuid.UUID
	WalletAddress      domain.WalletAddress
	IdentityCommitment *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HasCommitment reports whether the set-once commitment slot is occupied.
func (i *Identity) HasCommitment() bool {
	return i.IdentityCommitment != nil && *i.IdentityCommitment != ""
}
