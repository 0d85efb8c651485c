package service

import "errors"

var (
	// ErrUnauthorized is returned when the caller is not the ledger authority.
	ErrUnauthorized = errors.New("caller is not the ledger authority")

	// ErrLedgerPaused is returned when a write is attempted while the ledger
	// is paused.
	ErrLedgerPaused = errors.New("ledger is paused")

	// ErrInvalidPaymentID is returned when a payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidAmount is returned when an amount is not strictly positive.
	ErrInvalidAmount = errors.New("invalid payment amount")

	// ErrDuplicatePaymentID is returned when a payment ID has already been
	// recorded. Callers should treat this as "already handled", not as a
	// fault: it is what makes at-least-once webhook delivery safe to replay.
	ErrDuplicatePaymentID = errors.New("payment id already recorded")

	// ErrInvalidAuthority is returned when transferring authority to an
	// empty identity.
	ErrInvalidAuthority = errors.New("invalid authority")
)
