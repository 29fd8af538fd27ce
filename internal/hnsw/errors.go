package hnsw

import "errors"

// ErrDimensionMismatch is returned when a vector's length does not match
// the index's configured dimensionality.
var ErrDimensionMismatch = errors.New("hnsw: vector dimension mismatch")

// ErrIndexFull is returned by addPoint once the index holds maxElements
// live points.
var ErrIndexFull = errors.New("hnsw: index is full")

// ErrEmptyVector is returned when a zero-length vector is submitted.
var ErrEmptyVector = errors.New("hnsw: vector must not be empty")
