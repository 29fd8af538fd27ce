package store

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("...: %w", ErrX) and unwrap
// with errors.Is at call sites.
var (
	// ErrNotInitialized is returned when an operation runs before New
	// has finished migrating the schema.
	ErrNotInitialized = errors.New("store: not initialized")

	// ErrDimensionMismatch names a vector whose length does not match the
	// index's configured dimensionality. The HNSW index reports that case
	// with its own hnsw.ErrDimensionMismatch; nothing returns this one.
	ErrDimensionMismatch = errors.New("store: vector dimension mismatch")

	// ErrIndexFull names an insert into an HNSW index that has reached its
	// configured maxElements. The HNSW index reports that case with its own
	// hnsw.ErrIndexFull; nothing returns this one.
	ErrIndexFull = errors.New("store: index full")

	// ErrConflict is returned by Store when a (namespace, key) pair
	// already belongs to a different entry id.
	ErrConflict = errors.New("store: namespace/key conflict")

	// ErrNotFound is returned by EndSession and UpdateObservationEnrichment
	// when the target does not exist. Get/GetByKey/Update report absence by
	// returning (nil, nil) instead.
	ErrNotFound = errors.New("store: not found")

	// ErrValidation is returned when input fails a field-level invariant
	// (empty content, key too long, wrong type, ...).
	ErrValidation = errors.New("store: validation failed")

	// ErrStore wraps an underlying database failure.
	ErrStore = errors.New("store: underlying store error")

	// ErrParse is returned by keyword queries when the full-text MATCH
	// query fails.
	ErrParse = errors.New("store: parse error")

	// ErrNoActiveSession is returned by Checkpoint when no session has
	// been started.
	ErrNoActiveSession = errors.New("store: no active session")
)
