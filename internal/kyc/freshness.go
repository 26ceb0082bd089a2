package kyc

import (
	"time"

	dErrors "deeproof/pkg/domain-errors"
)

// DefaultProofValidityWindow bounds how long a generated proof stays
// acceptable for new submissions.
const DefaultProofValidityWindow = 10 * time.Minute

// Freshness failures. Shared values so callers can branch with errors.Is.
var (
	ErrProofExpired     = dErrors.New(dErrors.CodeBadRequest, "proof expired, regenerate and resubmit")
	ErrProofFutureDated = dErrors.New(dErrors.CodeBadRequest, "proof timestamp is in the future")
)

// ValidateFreshness rejects proofs whose declared generation time falls
// outside [now-window, now]. A nil timestamp passes trivially: the caller
// accepts the current time as the generation time. Pure function; inject the
// clock through now.
func ValidateFreshness(proofTimestamp *time.Time, now time.Time, window time.Duration) error {
	if proofTimestamp == nil {
		return nil
	}
	if now.Sub(*proofTimestamp) > window {
		return ErrProofExpired
	}
	if proofTimestamp.After(now) {
		return ErrProofFutureDated
	}
	return nil
}
