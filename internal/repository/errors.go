package repository

import "errors"

var (
	// ErrNotFound reports that the remote file does not exist yet. It is
	// a legitimate state ("no data yet"), not a transport failure.
	ErrNotFound = errors.New("remote file not found")

	// ErrTransport reports a network or auth failure talking to the blob
	// store or the token endpoint. Never auto-retried.
	ErrTransport = errors.New("transport error")

	// ErrConflict reports that the remote version moved since it was
	// last read. The caller must re-read and write again.
	ErrConflict = errors.New("version conflict")
)

// ConflictError carries the version tokens involved in a rejected write.
type ConflictError struct {
	ExpectedSHA string
	StatusCode  int
}

func (e *ConflictError) Error() string {
	return "version conflict: remote changed since sha " + e.ExpectedSHA
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
