package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"payledger/internal/domain"
	"payledger/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint breach.
const uniqueViolation = "23505"

// LedgerRepository is a PostgreSQL implementation of repository.LedgerRepository.
//
// Schema:
//
//	CREATE TABLE payments (
//	    id          TEXT PRIMARY KEY,
//	    payment_id  TEXT NOT NULL UNIQUE,
//	    payer       TEXT NOT NULL,
//	    amount      BIGINT NOT NULL CHECK (amount > 0),
//	    recorded_at TIMESTAMPTZ NOT NULL,
//	    seq         BIGSERIAL
//	);
//	CREATE TABLE ledger_state (
//	    id        SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
//	    authority TEXT NOT NULL,
//	    paused    BOOLEAN NOT NULL DEFAULT FALSE
//	);
type LedgerRepository struct {
	q Querier
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{q: db}
}

// NewLedgerRepositoryWithTx creates a ledger repository using a transaction.
func NewLedgerRepositoryWithTx(tx *sql.Tx) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// AppendRecord persists a new payment record. The unique constraint on
// payment_id is the durable backstop for the dedup index.
func (r *LedgerRepository) AppendRecord(ctx context.Context, record *domain.PaymentRecord) error {
	query := `
		INSERT INTO payments (id, payment_id, payer, amount, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.q.ExecContext(ctx, query,
		record.ID,
		record.PaymentID,
		record.Payer,
		record.Amount,
		record.RecordedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicateRecord
		}
		return err
	}

	return nil
}

// GetByPaymentID retrieves a record by its gateway payment ID.
func (r *LedgerRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	query := `
		SELECT id, payment_id, payer, amount, recorded_at
		FROM payments WHERE payment_id = $1
	`

	var record domain.PaymentRecord
	err := r.q.QueryRowContext(ctx, query, paymentID).Scan(
		&record.ID,
		&record.PaymentID,
		&record.Payer,
		&record.Amount,
		&record.RecordedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return &record, nil
}

// ListRecords returns all records in append order.
func (r *LedgerRepository) ListRecords(ctx context.Context) ([]*domain.PaymentRecord, error) {
	query := `
		SELECT id, payment_id, payer, amount, recorded_at
		FROM payments ORDER BY seq
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.PaymentRecord
	for rows.Next() {
		var record domain.PaymentRecord
		if err := rows.Scan(
			&record.ID,
			&record.PaymentID,
			&record.Payer,
			&record.Amount,
			&record.RecordedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// ListPaymentIDs returns every recorded payment ID.
func (r *LedgerRepository) ListPaymentIDs(ctx context.Context) ([]string, error) {
	query := `SELECT payment_id FROM payments`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// Count returns the number of records.
func (r *LedgerRepository) Count(ctx context.Context) (int64, error) {
	query := `SELECT COUNT(*) FROM payments`

	var count int64
	if err := r.q.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// LoadState retrieves the persisted ledger state.
// Returns nil if the ledger has never been initialized.
func (r *LedgerRepository) LoadState(ctx context.Context) (*domain.LedgerState, error) {
	query := `SELECT authority, paused FROM ledger_state WHERE id = 1`

	var state domain.LedgerState
	err := r.q.QueryRowContext(ctx, query).Scan(&state.Authority, &state.Paused)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &state, nil
}

// SaveState persists the ledger state, inserting the row on first use.
func (r *LedgerRepository) SaveState(ctx context.Context, state *domain.LedgerState) error {
	query := `
		INSERT INTO ledger_state (id, authority, paused)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET authority = $1, paused = $2
	`

	_, err := r.q.ExecContext(ctx, query, state.Authority, state.Paused)
	return err
}

var _ repository.LedgerRepository = (*LedgerRepository)(nil)
