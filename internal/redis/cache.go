package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"payledger/internal/domain"
)

// RecordCache is a read-through cache for payment records.
// Records are immutable once accepted, so a long TTL is safe: an entry can
// never go stale, it can only be missing.
type RecordCache struct {
	client *redis.Client
}

// NewRecordCache creates a new RecordCache.
func NewRecordCache(client *redis.Client) *RecordCache {
	return &RecordCache{client: client}
}

// RecordCacheTTL bounds memory use, not staleness.
const RecordCacheTTL = 12 * time.Hour

const recordCachePrefix = "cache:payment:"

// cachedRecord is the wire form of a cached payment record.
type cachedRecord struct {
	ID         string    `json:"id"`
	PaymentID  string    `json:"payment_id"`
	Payer      string    `json:"payer"`
	Amount     int64     `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}

// GetRecord retrieves a record from cache. Returns nil on a miss.
func (s *RecordCache) GetRecord(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	key := recordCachePrefix + paymentID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached cachedRecord
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &domain.PaymentRecord{
		ID:         cached.ID,
		PaymentID:  cached.PaymentID,
		Payer:      cached.Payer,
		Amount:     cached.Amount,
		RecordedAt: cached.RecordedAt,
	}, nil
}

// SetRecord stores a record in cache.
func (s *RecordCache) SetRecord(ctx context.Context, record *domain.PaymentRecord) error {
	key := recordCachePrefix + record.PaymentID
	data, err := json.Marshal(cachedRecord{
		ID:         record.ID,
		PaymentID:  record.PaymentID,
		Payer:      record.Payer,
		Amount:     record.Amount,
		RecordedAt: record.RecordedAt,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, RecordCacheTTL).Err()
}
