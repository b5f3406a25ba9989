package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeOpen indicates the store location is unusable: missing parent
	// directory, permissions, or a lock held by another process.
	ErrCodeOpen ErrorCode = "STORE_OPEN"

	// ErrCodeCorrupt indicates structural corruption detected at open.
	// The store is never repaired in place.
	ErrCodeCorrupt ErrorCode = "CORRUPT_STORE"

	// ErrCodeTransaction indicates a write transaction did not commit.
	// Nothing from the transaction was applied.
	ErrCodeTransaction ErrorCode = "TRANSACTION_FAILURE"
)

// Error is returned by every store backend for open, corruption and
// transaction failures. Use the Is* helpers to classify wrapped errors.
type Error struct {
	Code ErrorCode
	Op   string // operation that failed, e.g. "open", "checkpoint"
	Path string // store location, when known
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s %s: %v", e.Code, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewOpenError creates an Error for an unusable store location.
func NewOpenError(path string, err error) *Error {
	return &Error{Code: ErrCodeOpen, Op: "open", Path: path, Err: err}
}

// NewCorruptError creates an Error for a store that failed integrity checks.
func NewCorruptError(path string, err error) *Error {
	return &Error{Code: ErrCodeCorrupt, Op: "open", Path: path, Err: err}
}

// NewTransactionError creates an Error for a write that did not commit.
func NewTransactionError(op string, err error) *Error {
	return &Error{Code: ErrCodeTransaction, Op: op, Err: err}
}

// IsOpenError returns true if err is (or wraps) a STORE_OPEN error.
func IsOpenError(err error) bool {
	return hasCode(err, ErrCodeOpen)
}

// IsCorrupt returns true if err is (or wraps) a CORRUPT_STORE error.
func IsCorrupt(err error) bool {
	return hasCode(err, ErrCodeCorrupt)
}

// IsTransactionFailure returns true if err is (or wraps) a
// TRANSACTION_FAILURE error.
func IsTransactionFailure(err error) bool {
	return hasCode(err, ErrCodeTransaction)
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
