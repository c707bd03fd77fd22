package engine

import (
	"errors"
	"fmt"
)

// RunErrorCode categorizes loop-fatal errors.
type RunErrorCode string

const (
	// ErrCodeUnknownService: an SR command named an unregistered service and
	// the UnknownServiceFatal policy is active.
	ErrCodeUnknownService RunErrorCode = "UNKNOWN_SERVICE"

	// ErrCodeInputFailed: WaitForInput failed while the boundary was open.
	ErrCodeInputFailed RunErrorCode = "INPUT_FAILED"

	// ErrCodeCancelled: the run context was cancelled before a Stop input.
	ErrCodeCancelled RunErrorCode = "CANCELLED"

	// ErrCodeDispatchFailed: the dispatcher returned an error outside the
	// recoverable classes.
	ErrCodeDispatchFailed RunErrorCode = "DISPATCH_FAILED"
)

// RunError is returned by Executor.Run when the run stops as a failure.
type RunError struct {
	Code  RunErrorCode
	RunID string
	Err   error
}

func (e *RunError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %v (run=%s)", e.Code, e.Err, e.RunID)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// IsUnknownServiceError reports whether err stopped a run because of an
// unregistered service name.
func IsUnknownServiceError(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownService
	}
	return false
}

// IsCancelled reports whether err stopped a run because its context ended.
func IsCancelled(err error) bool {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCancelled
	}
	return false
}
