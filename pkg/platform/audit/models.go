// Package audit captures key domain actions as transport-agnostic events.
// Services append events to a Store; the outbox-backed store hands them to a
// background relay that publishes to Kafka.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose, enabling
// different retention policies and downstream routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance:
	// identity creation, verification transitions, admin status changes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events feeding security monitoring:
	// authentication failures, ownership mismatches.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine events useful for debugging:
	// token issuance, pending submissions.
	CategoryOperations EventCategory = "operations"
)

// Action names a domain event.
type Action string

const (
	ActionIdentityCreated     Action = "identity_created"
	ActionCommitmentBound     Action = "commitment_bound"
	ActionKycSubmitted        Action = "kyc_submitted"
	ActionKycVerified         Action = "kyc_verified"
	ActionKycStatusUpdated    Action = "kyc_status_updated"
	ActionWalletAuthenticated Action = "wallet_authenticated"
	ActionAuthFailed          Action = "auth_failed"
)

var actionCategories = map[Action]EventCategory{
	ActionIdentityCreated:     CategoryCompliance,
	ActionCommitmentBound:     CategoryCompliance,
	ActionKycSubmitted:        CategoryOperations,
	ActionKycVerified:         CategoryCompliance,
	ActionKycStatusUpdated:    CategoryCompliance,
	ActionWalletAuthenticated: CategoryOperations,
	ActionAuthFailed:          CategorySecurity,
}

// Category derives the event category from the action; the action map is the
// single source of truth so emitters can't misroute events.
func (a Action) Category() EventCategory {
	if category, ok := actionCategories[a]; ok {
		return category
	}
	return CategoryOperations
}

// Event is emitted from domain logic. It carries the normalized wallet
// address, never PII or proof material.
type Event struct {
	Action        Action
	Timestamp     time.Time
	WalletAddress string
	Detail        string
	RequestID     string
}

// Store persists audit events. Implementations must be safe for concurrent
// appenders and must honor a transaction carried in the context so audit
// rows commit atomically with the domain mutation they describe.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// OutboxEntry is a persisted event awaiting publication to Kafka. Key is the
// partitioning key (the wallet address) so per-wallet ordering survives the
// broker.
type OutboxEntry struct {
	ID      uuid.UUID
	Key     string
	Payload []byte
}
