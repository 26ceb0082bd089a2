package kyc

import (
	"time"

	"github.com/google/uuid"
)

// Status is the verification state of a record.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusVerified Status = "VERIFIED"
	StatusRejected Status = "REJECTED"
)

// ParseStatus validates a status string from an untrusted payload.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusVerified, StatusRejected:
		return Status(raw), true
	}
	return "", false
}

// SolidityParams is the opaque calldata bundle the client submits to the
// on-chain verifier contract. This service stores and echoes it; it never
// interprets the proof algebra.
type SolidityParams struct {
	A     []string   `json:"a"`
	B     [][]string `json:"b"`
	C     []string   `json:"c"`
	Input []string   `json:"input"`
}

// PendingProof is the off-chain proof payload held while a submission awaits
// on-chain confirmation. It is cleared the moment the record turns VERIFIED.
type PendingProof struct {
	ProofReference string          `json:"proofReference"`
	SolidityParams *SolidityParams `json:"solidityParams,omitempty"`
	Provider       string          `json:"provider,omitempty"`
	Commitment     string          `json:"commitment,omitempty"`
	Timestamp      *time.Time      `json:"timestamp,omitempty"`
}

// Record is the verification state attached to an identity, one per identity.
// It holds proof metadata only, a proof reference (hash/CID) and calldata,
// never raw KYC data.
type Record struct {
	ID             uuid.UUID
	IdentityID     uuid.UUID
	Status         Status
	KycScore       int
	Provider       *string
	ProofReference *string
	PendingProof   *PendingProof
	TxHash         *string
	ProofTimestamp *time.Time
	ProofExpiresAt *time.Time

	// ProcessedAt marks an in-flight finalization; the coordinator treats a
	// recent value with no txHash as "another submission is racing to
	// finalize" and rejects until the processing window lapses.
	ProcessedAt *time.Time

	VerifiedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsVerified reports whether the record reached its terminal success state.
func (r *Record) IsVerified() bool { return r.Status == StatusVerified }

// providerBaselineScore is the score heuristic applied when a submission
// names an attesting platform but carries no explicit score: presence of a
// recognized provider attestation is worth a baseline 20 out of 100.
const providerBaselineScore = 20

func defaultScore(provider string) int {
	if provider != "" {
		return providerBaselineScore
	}
	return 0
}
