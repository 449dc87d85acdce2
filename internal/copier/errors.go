package copier

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrTradeNotFound means neither the store id nor the ticket matched a trade.
	ErrTradeNotFound = errors.New("trade not found")
	// ErrInvalidRequest means the caller sent a payload the relay cannot apply.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrStorageUnavailable means no connection or lock could be obtained in time.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StorageError is a fault reported by the underlying store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage fault during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// storageErr classifies a raw store error. Errors that are already
// classified pass through unchanged.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.Is(err, ErrTradeNotFound) || errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrStorageUnavailable) || errors.As(err, &se) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
	}
	return &StorageError{Op: op, Err: err}
}
