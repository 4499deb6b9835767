package db

import "errors"

// Sentinel errors for backend operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrNoRows        = errors.New("db: no rows")
)

// Op names used as error context.
const (
	OpSearch = "SEARCH"
	OpPing   = "PING"
	OpGet    = "GET"
	OpSet    = "SET"
	OpQuery  = "QUERY"
	OpExec   = "EXEC"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
