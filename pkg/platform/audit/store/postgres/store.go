package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"deeproof/pkg/platform/audit"
	txcontext "deeproof/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events land in the audit_outbox table, inside the caller's transaction
// when one is in flight, and the relay worker publishes them to Kafka.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON structure published to Kafka.
type payload struct {
	ID            string `json:"id"`
	Category      string `json:"category"`
	Action        string `json:"action"`
	Timestamp     string `json:"timestamp"`
	WalletAddress string `json:"walletAddress,omitempty"`
	Detail        string `json:"detail,omitempty"`
	RequestID     string `json:"requestId,omitempty"`
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	body, err := json.Marshal(payload{
		ID:            eventID.String(),
		Category:      string(event.Action.Category()),
		Action:        string(event.Action),
		Timestamp:     event.Timestamp.Format(time.RFC3339Nano),
		WalletAddress: event.WalletAddress,
		Detail:        event.Detail,
		RequestID:     event.RequestID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO audit_outbox (id, category, aggregate_key, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		string(event.Action.Category()),
		event.WalletAddress,
		body,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit outbox: %w", err)
	}
	return nil
}

// FetchUnpublished returns up to limit outbox entries awaiting publication,
// oldest first. The relay runs as a single worker per process; Kafka delivery
// is at-least-once and consumers dedupe on event ID.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]audit.OutboxEntry, error) {
	query := `
		SELECT id, aggregate_key, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch audit outbox: %w", err)
	}
	defer rows.Close()

	var entries []audit.OutboxEntry
	for rows.Next() {
		var entry audit.OutboxEntry
		if err := rows.Scan(&entry.ID, &entry.Key, &entry.Payload); err != nil {
			return nil, fmt.Errorf("scan audit outbox row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps entries as delivered.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID, publishedAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE audit_outbox SET published_at = $2 WHERE id = ANY($1)`
	_, err := s.db.ExecContext(ctx, query, pq.Array(ids), publishedAt)
	if err != nil {
		return fmt.Errorf("mark audit outbox published: %w", err)
	}
	return nil
}
