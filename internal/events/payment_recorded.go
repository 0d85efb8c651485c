package events

import "time"

// TopicPaymentRecorded is the topic payment events are published on.
const TopicPaymentRecorded = "payment_recorded"

// PaymentRecorded is emitted after a payment record is committed to the
// ledger. Delivery is at-least-once; consumers must deduplicate on
// PaymentID if they need exactly-once semantics.
type PaymentRecorded struct {
	PaymentID  string    `json:"payment_id"`
	Payer      string    `json:"payer"`
	Amount     int64     `json:"amount"`
	RecordedAt time.Time `json:"recorded_at"`
}
