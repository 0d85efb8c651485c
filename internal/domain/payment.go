package domain

import "time"

// PaymentRecord is a single accepted payment confirmation. Records are
// write-once: after a successful append no field is ever changed.
type PaymentRecord struct {
	ID         string    // internal record ID
	PaymentID  string    // gateway-issued identifier, unique across the ledger
	Payer      string    // payer address as reported by the caller
	Amount     int64     // smallest currency unit, always > 0
	RecordedAt time.Time // assigned by the ledger at acceptance time
}

// LedgerState is the administrative state of the ledger: the single
// identity allowed to write, and the emergency-stop flag.
type LedgerState struct {
	Authority string
	Paused    bool
}
