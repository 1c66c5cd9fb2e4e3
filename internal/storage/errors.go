package storage

import "errors"

// Storage errors shared by all operation log implementations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record with an
	// intent hash that already exists. The insert is the engine's atomic
	// dedup point, so this error is part of the contract, not a failure.
	ErrDuplicateKey = errors.New("duplicate key: intent hash already recorded")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTerminalRecord is returned when updating a record that already
	// reached a terminal status. Terminal records are immutable.
	ErrTerminalRecord = errors.New("record is terminal and immutable")
)
