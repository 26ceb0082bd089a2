package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"deeproof/pkg/domain"
	"deeproof/pkg/platform/sentinel"
	txcontext "deeproof/pkg/platform/tx"
)

// PostgresStore persists identities in PostgreSQL. This store is pure I/O;
// the set-once commitment rule is expressed as a conditional UPDATE rather
// than a read-then-write so it holds under concurrent first submissions.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// querier writes through the coordinator's transaction when one is carried in
// the context, otherwise through the pooled connection.
func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const identityColumns = `id, wallet_address, identity_commitment, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, ident *Identity) error {
	query := `
		INSERT INTO identities (id, wallet_address, identity_commitment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.querier(ctx).ExecContext(ctx, query,
		ident.ID,
		ident.WalletAddress.String(),
		ident.IdentityCommitment,
		ident.CreatedAt,
		ident.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, ident *Identity) (*Identity, error) {
	query := `
		INSERT INTO identities (id, wallet_address, identity_commitment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (wallet_address) DO NOTHING
		RETURNING ` + identityColumns
	record, err := scanIdentity(s.querier(ctx).QueryRowContext(ctx, query,
		ident.ID,
		ident.WalletAddress.String(),
		ident.IdentityCommitment,
		ident.CreatedAt,
		ident.UpdatedAt,
	))
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("create identity if absent: %w", err)
	}
	// Insert was a no-op: another caller won the creation race. Observe theirs.
	return s.FindByWallet(ctx, ident.WalletAddress)
}

func (s *PostgresStore) FindByWallet(ctx context.Context, wallet domain.WalletAddress) (*Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE wallet_address = $1`
	record, err := scanIdentity(s.querier(ctx).QueryRowContext(ctx, query, wallet.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find identity by wallet: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) SetCommitmentIfEmpty(ctx context.Context, id uuid.UUID, commitment string, updatedAt time.Time) (bool, error) {
	query := `
		UPDATE identities
		SET identity_commitment = $2, updated_at = $3
		WHERE id = $1 AND identity_commitment IS NULL
	`
	result, err := s.querier(ctx).ExecContext(ctx, query, id, commitment, updatedAt)
	if err != nil {
		return false, fmt.Errorf("set identity commitment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set identity commitment: %w", err)
	}
	return affected == 1, nil
}

func scanIdentity(row *sql.Row) (*Identity, error) {
	var (
		record     Identity
		rawWallet  string
		commitment sql.NullString
	)
	if err := row.Scan(&record.ID, &rawWallet, &commitment, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return nil, err
	}
	record.WalletAddress = domain.WalletAddress(rawWallet)
	if commitment.Valid {
		record.IdentityCommitment = &commitment.String
	}
	return &record, nil
}

// isUniqueViolation checks for the PostgreSQL unique_violation class (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
