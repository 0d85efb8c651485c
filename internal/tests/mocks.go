package tests

import (
	"context"
	"sync"
	"sync/atomic"

	"payledger/internal/domain"
	"payledger/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK LEDGER REPOSITORY
// ──────────────────────────────────────────────

// MockLedgerRepository is an in-memory implementation of LedgerRepository.
type MockLedgerRepository struct {
	mu      sync.RWMutex
	records []*domain.PaymentRecord
	byID    map[string]*domain.PaymentRecord
	state   *domain.LedgerState

	// Counters for verification
	AppendCallCount    int32
	SaveStateCallCount int32

	// Error injection
	AppendError    error
	SaveStateError error
	LoadStateError error
}

// NewMockLedgerRepository creates a new mock ledger repository.
func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{
		byID: make(map[string]*domain.PaymentRecord),
	}
}

// SeedRecord inserts a record directly, bypassing the service. Used to
// simulate state that survived a restart.
func (m *MockLedgerRepository) SeedRecord(record *domain.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	m.byID[record.PaymentID] = record
}

// SeedState sets the persisted ledger state directly.
func (m *MockLedgerRepository) SeedState(state *domain.LedgerState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

func (m *MockLedgerRepository) AppendRecord(ctx context.Context, record *domain.PaymentRecord) error {
	atomic.AddInt32(&m.AppendCallCount, 1)
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byID[record.PaymentID]; exists {
		return repository.ErrDuplicateRecord
	}
	stored := *record
	m.records = append(m.records, &stored)
	m.byID[stored.PaymentID] = &stored
	return nil
}

func (m *MockLedgerRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.byID[paymentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	found := *record
	return &found, nil
}

func (m *MockLedgerRepository) ListRecords(ctx context.Context) ([]*domain.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.PaymentRecord, 0, len(m.records))
	for _, record := range m.records {
		stored := *record
		result = append(result, &stored)
	}
	return result, nil
}

func (m *MockLedgerRepository) ListPaymentIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.records))
	for _, record := range m.records {
		ids = append(ids, record.PaymentID)
	}
	return ids, nil
}

func (m *MockLedgerRepository) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

func (m *MockLedgerRepository) LoadState(ctx context.Context) (*domain.LedgerState, error) {
	if m.LoadStateError != nil {
		return nil, m.LoadStateError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, nil
	}
	state := *m.state
	return &state, nil
}

func (m *MockLedgerRepository) SaveState(ctx context.Context, state *domain.LedgerState) error {
	atomic.AddInt32(&m.SaveStateCallCount, 1)
	if m.SaveStateError != nil {
		return m.SaveStateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *state
	m.state = &stored
	return nil
}

// CountRecords returns the number of stored records for test assertions.
func (m *MockLedgerRepository) CountRecords() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// GetRecord returns a stored record for test assertions.
func (m *MockLedgerRepository) GetRecord(paymentID string) *domain.PaymentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byID[paymentID]
}

// GetState returns the persisted state for test assertions.
func (m *MockLedgerRepository) GetState() *domain.LedgerState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

var _ repository.LedgerRepository = (*MockLedgerRepository)(nil)

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published events.
type MockPublisher struct {
	mu     sync.Mutex
	events []any
	keys   []string

	PublishCallCount int32

	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	atomic.AddInt32(&m.PublishCallCount, 1)
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	m.events = append(m.events, event)
	return nil
}

// Keys returns the publish keys for test assertions.
func (m *MockPublisher) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]string, len(m.keys))
	copy(result, m.keys)
	return result
}

// Events returns the published events for test assertions.
func (m *MockPublisher) Events() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]any, len(m.events))
	copy(result, m.events)
	return result
}

// ──────────────────────────────────────────────
// MOCK RECORD CACHE
// ──────────────────────────────────────────────

// MockRecordCache is an in-memory implementation of the record cache.
type MockRecordCache struct {
	mu      sync.RWMutex
	records map[string]*domain.PaymentRecord

	GetCallCount int32
	SetCallCount int32

	GetError error
	SetError error
}

// NewMockRecordCache creates a new mock record cache.
func NewMockRecordCache() *MockRecordCache {
	return &MockRecordCache{
		records: make(map[string]*domain.PaymentRecord),
	}
}

func (m *MockRecordCache) GetRecord(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[paymentID]
	if !ok {
		return nil, nil
	}
	cached := *record
	return &cached, nil
}

func (m *MockRecordCache) SetRecord(ctx context.Context, record *domain.PaymentRecord) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *record
	m.records[stored.PaymentID] = &stored
	return nil
}
