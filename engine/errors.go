package engine

import (
	"errors"
	"fmt"
)

// ValidationError signals bad input from the caller. Adapters surface it as
// a 4xx response.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError signals an unknown entity id.
type NotFoundError struct {
	Kind string
	ID   uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// StoreError wraps a transient persistence fault. Callers retry; the engine
// does not.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// SendError wraps a mail-sender fault. Handled inside the tick loop, never
// propagated as a hard failure to the scheduler.
type SendError struct {
	Recipient string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send to %s failed: %v", e.Recipient, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStoreUnavailable reports whether err is a StoreError.
func IsStoreUnavailable(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
