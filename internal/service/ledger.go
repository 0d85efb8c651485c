package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"payledger/internal/domain"
	"payledger/internal/events"
	"payledger/internal/metrics"
	"payledger/internal/repository"
)

// EventPublisher delivers ledger events to external subscribers.
// Delivery is at-least-once; a failed publish never fails the write that
// produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// LogPublisher is an EventPublisher that only logs. Used when no broker is
// configured.
type LogPublisher struct{}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, key string, event any) error {
	log.Printf("[EVENT] key=%s payload=%+v", key, event)
	return nil
}

// RecordCache is a read-side cache for payment records. A nil-returning
// Get is a miss, not an error.
type RecordCache interface {
	GetRecord(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)
	SetRecord(ctx context.Context, record *domain.PaymentRecord) error
}

// LedgerService is the write-once payment ledger. It owns the access gate
// and the in-memory dedup index, and serializes every state mutation under
// a single write lock so that the dedup check and the append are inseparable.
type LedgerService struct {
	mu    sync.RWMutex
	gate  *AccessGate
	seen  map[string]struct{}
	repo  repository.LedgerRepository
	cache RecordCache
	pub   EventPublisher
}

// NewLedgerService restores the ledger from the repository. On first run the
// gate is seeded with initialAuthority and persisted; afterwards the
// persisted authority and pause flag win, so restarts cannot silently reset
// an authority transfer or an emergency stop.
func NewLedgerService(ctx context.Context, repo repository.LedgerRepository, cache RecordCache, pub EventPublisher, initialAuthority string) (*LedgerService, error) {
	state, err := repo.LoadState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger state: %w", err)
	}

	if state == nil {
		if initialAuthority == "" {
			return nil, ErrInvalidAuthority
		}
		state = &domain.LedgerState{Authority: initialAuthority}
		if err := repo.SaveState(ctx, state); err != nil {
			return nil, fmt.Errorf("seed ledger state: %w", err)
		}
	}

	ids, err := repo.ListPaymentIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("warm dedup index: %w", err)
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}

	gate := NewAccessGate(state.Authority)
	gate.setPaused(state.Paused)

	if pub == nil {
		pub = NewLogPublisher()
	}

	return &LedgerService{
		gate:  gate,
		seen:  seen,
		repo:  repo,
		cache: cache,
		pub:   pub,
	}, nil
}

// LogPaymentRequest contains the parameters for recording a payment.
type LogPaymentRequest struct {
	PaymentID string
	Payer     string
	Amount    int64
}

// LogPayment records a confirmed payment. The caller must be the ledger
// authority and the ledger must not be paused. A payment ID is accepted at
// most once for the lifetime of the ledger; replays fail with
// ErrDuplicatePaymentID and leave no trace.
func (s *LedgerService) LogPayment(ctx context.Context, caller string, req LogPaymentRequest) (*domain.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate.Authorize(caller); err != nil {
		metrics.WritesRejected.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	if req.PaymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	if _, dup := s.seen[req.PaymentID]; dup {
		metrics.DuplicatesRejected.Inc()
		return nil, ErrDuplicatePaymentID
	}

	record := &domain.PaymentRecord{
		ID:         uuid.New().String(),
		PaymentID:  req.PaymentID,
		Payer:      req.Payer,
		Amount:     req.Amount,
		RecordedAt: time.Now().UTC(),
	}

	if err := s.repo.AppendRecord(ctx, record); err != nil {
		// The unique constraint is the durable backstop for the dedup index.
		if errors.Is(err, repository.ErrDuplicateRecord) {
			s.seen[req.PaymentID] = struct{}{}
			metrics.DuplicatesRejected.Inc()
			return nil, ErrDuplicatePaymentID
		}
		return nil, err
	}

	s.seen[req.PaymentID] = struct{}{}
	metrics.PaymentsRecorded.Inc()

	// Best-effort emission: the record is already committed, so a publish
	// failure must not fail the write. Subscribers get at-least-once.
	event := events.PaymentRecorded{
		PaymentID:  record.PaymentID,
		Payer:      record.Payer,
		Amount:     record.Amount,
		RecordedAt: record.RecordedAt,
	}
	if err := s.pub.Publish(ctx, record.PaymentID, event); err != nil {
		log.Printf("failed to publish payment_recorded for %s: %v", record.PaymentID, err)
	}

	return record, nil
}

// GetPayment retrieves a record by payment ID. No access gate: the ledger is
// read-many.
func (s *LedgerService) GetPayment(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	if s.cache != nil {
		if record, err := s.cache.GetRecord(ctx, paymentID); err == nil && record != nil {
			return record, nil
		}
		// Cache errors fall through to the repository.
	}

	record, err := s.repo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetRecord(ctx, record); err != nil {
			log.Printf("failed to cache payment %s: %v", paymentID, err)
		}
	}

	return record, nil
}

// ListPayments returns every record in append order.
func (s *LedgerService) ListPayments(ctx context.Context) ([]*domain.PaymentRecord, error) {
	return s.repo.ListRecords(ctx)
}

// TotalPayments returns the number of accepted records. The dedup index
// mirrors the record set exactly, so its size is the record count.
func (s *LedgerService) TotalPayments() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.seen))
}

// Paused reports whether the ledger is paused.
func (s *LedgerService) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gate.Paused()
}

// Pause stops all writes until Unpause. Idempotent; only the authority may
// call it, paused or not.
func (s *LedgerService) Pause(ctx context.Context, caller string) error {
	return s.setPaused(ctx, caller, true)
}

// Unpause re-enables writes. Idempotent.
func (s *LedgerService) Unpause(ctx context.Context, caller string) error {
	return s.setPaused(ctx, caller, false)
}

func (s *LedgerService) setPaused(ctx context.Context, caller string, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate.RequireAuthority(caller); err != nil {
		return err
	}

	prev := s.gate.Paused()
	s.gate.setPaused(paused)

	if err := s.persistState(ctx); err != nil {
		s.gate.setPaused(prev)
		return err
	}

	return nil
}

// TransferAuthority hands the ledger to a new identity. The empty identity
// is rejected: there must always be exactly one authority.
func (s *LedgerService) TransferAuthority(ctx context.Context, caller, newAuthority string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.gate.RequireAuthority(caller); err != nil {
		return err
	}

	if newAuthority == "" {
		return ErrInvalidAuthority
	}

	prev := s.gate.Authority()
	s.gate.setAuthority(newAuthority)

	if err := s.persistState(ctx); err != nil {
		s.gate.setAuthority(prev)
		return err
	}

	return nil
}

// persistState writes the gate state through to the repository.
// Callers hold the write lock.
func (s *LedgerService) persistState(ctx context.Context) error {
	return s.repo.SaveState(ctx, &domain.LedgerState{
		Authority: s.gate.Authority(),
		Paused:    s.gate.Paused(),
	})
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrLedgerPaused):
		return "paused"
	default:
		return "other"
	}
}
