package ingest

import "errors"

var (
	// ErrStructure marks a file that cannot be read as a table at all.
	ErrStructure = errors.New("unreadable upload")
	// ErrUnsupported marks an upload in a format the parser does not read.
	ErrUnsupported = errors.New("unsupported upload format")
)

// StructuralError describes a whole-file problem. It is reported against
// row 0 because no data row could be attributed.
type StructuralError struct {
	Format string
	Msg    string
	Err    error
}

func (e *StructuralError) Error() string {
	if e.Err != nil {
		return e.Format + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Format + ": " + e.Msg
}

// Unwrap exposes ErrStructure and the cause.
func (e *StructuralError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStructure}
	}
	return []error{ErrStructure, e.Err}
}

func structural(format, msg string, err error) *StructuralError {
	return &StructuralError{Format: format, Msg: msg, Err: err}
}
