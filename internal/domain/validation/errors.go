package validation

import "errors"

var (
	// ErrNotNumeric is returned by CleanNumber.
	ErrNotNumeric = errors.New("not numeric")
	// ErrNotInteger is returned by ParseJersey.
	ErrNotInteger = errors.New("not an integer")
	// ErrTooManyRows rejects an upload before any row is examined.
	ErrTooManyRows = errors.New("too many rows")
	// ErrNoRows rejects an upload with a header and nothing else.
	ErrNoRows = errors.New("no data rows")
	// ErrMissingColumns rejects an upload without name columns.
	ErrMissingColumns = errors.New("missing required columns")
)
