package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicateRecord is returned when appending a record whose payment ID
	// is already present.
	ErrDuplicateRecord = errors.New("duplicate record")
)
