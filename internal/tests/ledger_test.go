package tests

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"payledger/internal/events"
	"payledger/internal/repository"
	"payledger/internal/service"
)

const authority = "payment-backend"

func newLedger(t *testing.T, repo *MockLedgerRepository, pub *MockPublisher) *service.LedgerService {
	t.Helper()
	ledger, err := service.NewLedgerService(context.Background(), repo, nil, pub, authority)
	if err != nil {
		t.Fatalf("unexpected error creating ledger: %v", err)
	}
	return ledger
}

// ──────────────────────────────────────────────
// 1. WRITE PATH
// ──────────────────────────────────────────────

func TestLogPayment_ReadAfterWrite(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	ledger := newLedger(t, repo, NewMockPublisher())

	record, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "0xabc123",
		Amount:    1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.RecordedAt.IsZero() {
		t.Error("expected recorded_at to be set by the ledger")
	}

	got, err := ledger.GetPayment(context.Background(), "PAY_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Amount != 1000 {
		t.Errorf("expected amount 1000, got %d", got.Amount)
	}
	if got.Payer != "0xabc123" {
		t.Errorf("expected payer 0xabc123, got %s", got.Payer)
	}

	if total := ledger.TotalPayments(); total != 1 {
		t.Errorf("expected total 1, got %d", total)
	}
}

func TestLogPayment_DuplicateRejectedOnce(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	ledger := newLedger(t, repo, NewMockPublisher())

	if _, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    500,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Replay with a different payer and amount: the payment ID alone decides.
	_, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-2",
		Amount:    999,
	})
	if !errors.Is(err, service.ErrDuplicatePaymentID) {
		t.Fatalf("expected ErrDuplicatePaymentID, got %v", err)
	}

	if total := ledger.TotalPayments(); total != 1 {
		t.Errorf("expected total 1 after replay, got %d", total)
	}

	// The original record is untouched.
	got, err := ledger.GetPayment(context.Background(), "PAY_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Payer != "payer-1" || got.Amount != 500 {
		t.Errorf("replay mutated the record: payer=%s amount=%d", got.Payer, got.Amount)
	}
}

func TestLogPayment_Validation(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	ledger := newLedger(t, repo, NewMockPublisher())

	_, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "",
		Payer:     "payer-1",
		Amount:    100,
	})
	if !errors.Is(err, service.ErrInvalidPaymentID) {
		t.Errorf("expected ErrInvalidPaymentID, got %v", err)
	}

	_, err = ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "X",
		Payer:     "payer-1",
		Amount:    0,
	})
	if !errors.Is(err, service.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for zero amount, got %v", err)
	}

	_, err = ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "X",
		Payer:     "payer-1",
		Amount:    -5,
	})
	if !errors.Is(err, service.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount for negative amount, got %v", err)
	}

	// None of the failed calls left any trace.
	if total := ledger.TotalPayments(); total != 0 {
		t.Errorf("expected total 0, got %d", total)
	}
	if repo.CountRecords() != 0 {
		t.Errorf("expected no stored records, got %d", repo.CountRecords())
	}
}

func TestLogPayment_EmptyPayerAccepted(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	ledger := newLedger(t, repo, NewMockPublisher())

	// The payer value is caller-supplied and not validated.
	record, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "",
		Amount:    100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Payer != "" {
		t.Errorf("expected empty payer preserved, got %q", record.Payer)
	}
}

func TestLogPayment_RepoFailureLeavesNoTrace(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	ledger := newLedger(t, repo, NewMockPublisher())

	repo.AppendError = errors.New("connection reset")

	_, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    100,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	// The dedup index must not remember a failed append: the caller's retry
	// has to succeed.
	repo.AppendError = nil
	if _, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    100,
	}); err != nil {
		t.Fatalf("retry after transient failure should succeed, got %v", err)
	}

	if total := ledger.TotalPayments(); total != 1 {
		t.Errorf("expected total 1, got %d", total)
	}
}

func TestLogPayment_StoreDuplicateBackstop(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	ledger := newLedger(t, repo, NewMockPublisher())

	// Simulate a record written by a previous process that the in-memory
	// index does not know about (e.g. a second instance racing us).
	repo.AppendError = repository.ErrDuplicateRecord

	_, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    100,
	})
	if !errors.Is(err, service.ErrDuplicatePaymentID) {
		t.Fatalf("expected ErrDuplicatePaymentID, got %v", err)
	}
}

// ──────────────────────────────────────────────
// 2. EVENT EMISSION
// ──────────────────────────────────────────────

func TestLogPayment_EmitsEvent(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	pub := NewMockPublisher()
	ledger := newLedger(t, repo, pub)

	record, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    250,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	published := pub.Events()
	if len(published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(published))
	}

	event, ok := published[0].(events.PaymentRecorded)
	if !ok {
		t.Fatalf("unexpected event type %T", published[0])
	}
	if event.PaymentID != "PAY_1" || event.Payer != "payer-1" || event.Amount != 250 {
		t.Errorf("event does not match record: %+v", event)
	}
	if !event.RecordedAt.Equal(record.RecordedAt) {
		t.Errorf("event timestamp %v does not match record %v", event.RecordedAt, record.RecordedAt)
	}
	if keys := pub.Keys(); len(keys) != 1 || keys[0] != "PAY_1" {
		t.Errorf("expected events keyed by payment ID, got %v", keys)
	}
}

func TestLogPayment_PublishFailureDoesNotFailWrite(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	pub := NewMockPublisher()
	pub.PublishError = errors.New("broker unavailable")
	ledger := newLedger(t, repo, pub)

	if _, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    100,
	}); err != nil {
		t.Fatalf("publish failure must not fail the write, got %v", err)
	}

	if total := ledger.TotalPayments(); total != 1 {
		t.Errorf("expected total 1, got %d", total)
	}
	if atomic.LoadInt32(&pub.PublishCallCount) != 1 {
		t.Errorf("expected 1 publish attempt, got %d", pub.PublishCallCount)
	}

	// No replayed event for the rejected duplicate.
	if _, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    100,
	}); !errors.Is(err, service.ErrDuplicatePaymentID) {
		t.Fatalf("expected ErrDuplicatePaymentID, got %v", err)
	}
	if atomic.LoadInt32(&pub.PublishCallCount) != 1 {
		t.Errorf("duplicate must not publish, got %d attempts", pub.PublishCallCount)
	}
}

// ──────────────────────────────────────────────
// 3. READ PATH
// ──────────────────────────────────────────────

func TestGetPayment_UnknownID(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	ledger := newLedger(t, repo, NewMockPublisher())

	_, err := ledger.GetPayment(context.Background(), "NOPE")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPayment_CachePopulatedOnMiss(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	cache := NewMockRecordCache()
	ledger, err := service.NewLedgerService(context.Background(), repo, cache, NewMockPublisher(), authority)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    100,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := ledger.GetPayment(context.Background(), "PAY_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&cache.SetCallCount) != 1 {
		t.Errorf("expected cache fill after miss, got %d sets", cache.SetCallCount)
	}

	// Second read is served from cache.
	if _, err := ledger.GetPayment(context.Background(), "PAY_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&cache.SetCallCount) != 1 {
		t.Errorf("cache hit must not refill, got %d sets", cache.SetCallCount)
	}
}

func TestListPayments_AppendOrder(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	ledger := newLedger(t, repo, NewMockPublisher())

	ids := []string{"PAY_1", "PAY_2", "PAY_3"}
	for i, id := range ids {
		if _, err := ledger.LogPayment(context.Background(), authority, service.LogPaymentRequest{
			PaymentID: id,
			Payer:     "payer-1",
			Amount:    int64(100 * (i + 1)),
		}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	records, err := ledger.ListPayments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != len(ids) {
		t.Fatalf("expected %d records, got %d", len(ids), len(records))
	}
	for i, record := range records {
		if record.PaymentID != ids[i] {
			t.Errorf("position %d: expected %s, got %s", i, ids[i], record.PaymentID)
		}
	}
	for i := 1; i < len(records); i++ {
		if records[i].RecordedAt.Before(records[i-1].RecordedAt) {
			t.Errorf("recorded_at not monotonic at position %d", i)
		}
	}
}

// ──────────────────────────────────────────────
// 4. RESTART RECOVERY
// ──────────────────────────────────────────────

func TestLedger_RestartRestoresDedupIndex(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	first := newLedger(t, repo, NewMockPublisher())

	if _, err := first.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    100,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same repository, fresh service: simulates a process restart.
	second := newLedger(t, repo, NewMockPublisher())

	if total := second.TotalPayments(); total != 1 {
		t.Errorf("expected total 1 after restart, got %d", total)
	}

	_, err := second.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    100,
	})
	if !errors.Is(err, service.ErrDuplicatePaymentID) {
		t.Fatalf("expected duplicate rejection to survive restart, got %v", err)
	}
}

func TestLedger_RestartRestoresGateState(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	first := newLedger(t, repo, NewMockPublisher())

	if err := first.TransferAuthority(context.Background(), authority, "backend-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := first.Pause(context.Background(), "backend-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The config seed must not override the persisted transfer or pause.
	second := newLedger(t, repo, NewMockPublisher())

	if !second.Paused() {
		t.Error("expected pause to survive restart")
	}
	_, err := second.LogPayment(context.Background(), authority, service.LogPaymentRequest{
		PaymentID: "PAY_1",
		Payer:     "payer-1",
		Amount:    100,
	})
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected old authority to stay revoked after restart, got %v", err)
	}
}

func TestNewLedgerService_EmptyAuthorityRejected(t *testing.T) {
	t.Parallel()

	repo := NewMockLedgerRepository()
	_, err := service.NewLedgerService(context.Background(), repo, nil, NewMockPublisher(), "")
	if !errors.Is(err, service.ErrInvalidAuthority) {
		t.Fatalf("expected ErrInvalidAuthority, got %v", err)
	}
}
