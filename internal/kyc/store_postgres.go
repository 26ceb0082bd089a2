package kyc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"deeproof/internal/identity"
	"deeproof/pkg/domain"
	"deeproof/pkg/platform/sentinel"
	txcontext "deeproof/pkg/platform/tx"
)

// PostgresStore persists verification records in PostgreSQL. Pure I/O: the
// coordinator owns every transition rule.
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

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const recordColumns = `
	id, identity_id, status, kyc_score, provider, proof_reference,
	pending_proof, tx_hash, proof_timestamp, proof_expires_at,
	processed_at, verified_at, created_at, updated_at`

func (s *PostgresStore) FindByIdentity(ctx context.Context, identityID uuid.UUID) (*Record, error) {
	query := `SELECT` + recordColumns + ` FROM kycs WHERE identity_id = $1`
	record, err := scanRecord(s.querier(ctx).QueryRowContext(ctx, query, identityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find kyc record: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	pendingProof, err := marshalPendingProof(record.PendingProof)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO kycs (
			id, identity_id, status, kyc_score, provider, proof_reference,
			pending_proof, tx_hash, proof_timestamp, proof_expires_at,
			processed_at, verified_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.querier(ctx).ExecContext(ctx, query,
		record.ID,
		record.IdentityID,
		string(record.Status),
		record.KycScore,
		record.Provider,
		record.ProofReference,
		pendingProof,
		record.TxHash,
		record.ProofTimestamp,
		record.ProofExpiresAt,
		record.ProcessedAt,
		record.VerifiedAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create kyc record: %w", err)
	}
	return nil
}

// isUniqueViolation checks for the PostgreSQL unique_violation class (23505).
// A duplicate identity_id means another writer created the record first;
// callers racing on creation absorb it as a benign conflict.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *PostgresStore) Update(ctx context.Context, record *Record) error {
	pendingProof, err := marshalPendingProof(record.PendingProof)
	if err != nil {
		return err
	}
	query := `
		UPDATE kycs
		SET status = $2, kyc_score = $3, provider = $4, proof_reference = $5,
			pending_proof = $6, tx_hash = $7, proof_timestamp = $8,
			proof_expires_at = $9, processed_at = $10, verified_at = $11,
			updated_at = $12
		WHERE id = $1
	`
	result, err := s.querier(ctx).ExecContext(ctx, query,
		record.ID,
		string(record.Status),
		record.KycScore,
		record.Provider,
		record.ProofReference,
		pendingProof,
		record.TxHash,
		record.ProofTimestamp,
		record.ProofExpiresAt,
		record.ProcessedAt,
		record.VerifiedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update kyc record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update kyc record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func marshalPendingProof(pending *PendingProof) ([]byte, error) {
	if pending == nil {
		return nil, nil
	}
	body, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("marshal pending proof: %w", err)
	}
	return body, nil
}

func scanRecord(row *sql.Row) (*Record, error) {
	var (
		record       Record
		status       string
		provider     sql.NullString
		proofRef     sql.NullString
		pendingProof []byte
		txHash       sql.NullString
		proofTS      sql.NullTime
		proofExpires sql.NullTime
		processedAt  sql.NullTime
		verifiedAt   sql.NullTime
	)
	err := row.Scan(
		&record.ID,
		&record.IdentityID,
		&status,
		&record.KycScore,
		&provider,
		&proofRef,
		&pendingProof,
		&txHash,
		&proofTS,
		&proofExpires,
		&processedAt,
		&verifiedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	record.Status = Status(status)
	if provider.Valid {
		record.Provider = &provider.String
	}
	if proofRef.Valid {
		record.ProofReference = &proofRef.String
	}
	if txHash.Valid {
		record.TxHash = &txHash.String
	}
	if proofTS.Valid {
		record.ProofTimestamp = &proofTS.Time
	}
	if proofExpires.Valid {
		record.ProofExpiresAt = &proofExpires.Time
	}
	if processedAt.Valid {
		record.ProcessedAt = &processedAt.Time
	}
	if verifiedAt.Valid {
		record.VerifiedAt = &verifiedAt.Time
	}
	if len(pendingProof) > 0 {
		var pending PendingProof
		if err := json.Unmarshal(pendingProof, &pending); err != nil {
			return nil, fmt.Errorf("unmarshal pending proof: %w", err)
		}
		record.PendingProof = &pending
	}
	return &record, nil
}

// PostgresTx runs submission transactions against PostgreSQL. Serialization
// per wallet uses a transaction-scoped advisory lock keyed by the wallet
// address: unlike a row lock it also covers the identity's not-yet-existing
// slot, so two first-time submissions for the same wallet still order
// cleanly. The lock releases automatically at commit or rollback, which
// tolerates crash-during-processing.
type PostgresTx struct {
	db         *sql.DB
	identities identity.Store
	records    Store
}

func NewPostgresTx(db *sql.DB, identities identity.Store, records Store) *PostgresTx {
	return &PostgresTx{db: db, identities: identities, records: records}
}

func (t *PostgresTx) RunInWalletTx(ctx context.Context, wallet domain.WalletAddress, fn func(ctx context.Context, stores TxStores) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin submission tx: %w", err)
	}

	txCtx := txcontext.WithTx(ctx, tx)
	if _, err := tx.ExecContext(txCtx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, wallet.String()); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("acquire wallet lock: %w", err)
	}

	if err := fn(txCtx, TxStores{Identities: t.identities, Records: t.records}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit submission tx: %w", err)
	}
	return nil
}
