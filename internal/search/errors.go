package search

import "errors"

var (
	// ErrSearchFailed signals that the engine could not execute a query.
	// Callers with a fall-back path key off this error.
	ErrSearchFailed = errors.New("search failed")
	// ErrIndexWrite signals a failed index mutation; the batch is not
	// partially applied.
	ErrIndexWrite = errors.New("index write failed")
)
