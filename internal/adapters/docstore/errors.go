package docstore

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("document not found")
	ErrInvalidPath   = errors.New("invalid path")
	ErrBatchTooLarge = errors.New("batch too large")
	ErrClosed        = errors.New("store closed")
)
