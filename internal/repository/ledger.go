package repository

import (
	"context"

	"payledger/internal/domain"
)

// LedgerRepository defines the persistence operations for the payment ledger.
type LedgerRepository interface {
	// AppendRecord persists a new payment record.
	// Returns ErrDuplicateRecord if a record with the same payment ID
	// already exists.
	AppendRecord(ctx context.Context, record *domain.PaymentRecord) error

	// GetByPaymentID retrieves a record by its gateway payment ID.
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)

	// ListRecords returns all records in append order.
	ListRecords(ctx context.Context) ([]*domain.PaymentRecord, error)

	// ListPaymentIDs returns every recorded payment ID, used to warm the
	// in-memory dedup index at startup.
	ListPaymentIDs(ctx context.Context) ([]string, error)

	// Count returns the number of records.
	Count(ctx context.Context) (int64, error)

	// LoadState retrieves the persisted ledger state.
	// Returns nil if the ledger has never been initialized.
	LoadState(ctx context.Context) (*domain.LedgerState, error)

	// SaveState persists the ledger state (authority and paused flag).
	SaveState(ctx context.Context, state *domain.LedgerState) error
}
