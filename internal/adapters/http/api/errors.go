package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("missing caller identity")
	ErrUploadForm   = errors.New("upload must carry a file, rows or text")
)
