// Package errs holds the error classes shared by every rowstore layer.
//
// Packages wrap one of these with fmt.Errorf("pkg: ...: %w", errs.ErrX) and
// callers branch with errors.Is. NotFound and AlreadyExists are ordinary
// results, not failures.
package errs

import "errors"

var (
	// ErrStructural marks malformed catalog or record bytes.
	ErrStructural = errors.New("structural error")
	// ErrNotFound marks a missing table or row.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists marks a duplicate table name or primary key.
	ErrAlreadyExists = errors.New("already exists")
	// ErrOutOfRange marks invalid buffer bounds or column index.
	ErrOutOfRange = errors.New("out of range")
	// ErrTypeMismatch marks a value whose kind disagrees with its column.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrInvalidState marks use of an unopened, closed or unpositioned resource.
	ErrInvalidState = errors.New("invalid state")
	// ErrConflict marks transient contention reported by the backing store.
	// It is never produced by rowstore itself.
	ErrConflict = errors.New("conflict")
)

// Retryable reports whether err is a Conflict the caller may retry.
func Retryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
