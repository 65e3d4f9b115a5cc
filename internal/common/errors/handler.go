// internal/common/errors/handler.go
package errors

import (
	stderrors "errors"
	"time"
)

// Classify normalizes any fault into a StandardError. Unrecognized errors
// (panics recovered by the coordinator, transport faults from the driver)
// become DRIVER_FATAL or INTERNAL_ERROR so nothing escapes the taxonomy.
func Classify(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	if stderrors.Is(err, ErrDriverTransport) {
		return NewDriverFatal(err)
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ErrDriverTransport is wrapped by driver implementations around faults of
// the underlying protocol connection, as opposed to element-level outcomes.
var ErrDriverTransport = stderrors.New("DRIVER_TRANSPORT")
