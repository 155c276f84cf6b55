package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates content or a source kind that cannot be handled.
	ErrUnsupportedType = errors.New("unsupported type")

	// Run Errors.

	// ErrRunInProgress indicates a run for the source is already queued or running.
	ErrRunInProgress = errors.New("run in progress")

	// ErrNoScanner indicates no scanner is registered for the source kind.
	ErrNoScanner = errors.New("no scanner for source kind")

	// ErrServiceClosed indicates the indexing service has been shut down.
	ErrServiceClosed = errors.New("indexing service closed")

	// ErrLocked indicates another process holds the data directory lock.
	ErrLocked = errors.New("data directory locked by another process")

	// Item Errors.

	// ErrFetchContent indicates the scanner could not read an item's bytes.
	ErrFetchContent = errors.New("fetch content failed")

	// ErrProcessing indicates the content processor rejected an item.
	ErrProcessing = errors.New("processing failed")
)
