// Package errors provides the fault taxonomy for the renewal engine. Every
// fault raised below the workflow state machine is classified into one of
// these codes before it reaches the batch coordinator.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Element never matched any descriptor within its timeout. Recoverable
	// at the step level via retry.
	ErrCodeResolutionFailure ErrorCode = "RESOLUTION_FAILURE"

	// Element was resolved and then invalidated by a page update. Always
	// retried by re-resolving, bounded attempts.
	ErrCodeStaleReference ErrorCode = "STALE_REFERENCE"

	// Step retries exhausted; the client cannot continue.
	ErrCodeStepFailed ErrorCode = "STEP_FAILED"

	// Designed, expected terminal outcomes. Not failures; never retried.
	ErrCodePolicySkipFamily    ErrorCode = "POLICY_SKIP_FAMILY"
	ErrCodePolicySkipFollowups ErrorCode = "POLICY_SKIP_FOLLOWUPS"
	ErrCodePolicySkipNoID      ErrorCode = "POLICY_SKIP_NO_IDENTIFIER"
	ErrCodePolicySkipNoPlan    ErrorCode = "POLICY_SKIP_NO_ZERO_PREMIUM"

	// Unexpected fault from the driver layer (connection loss, protocol
	// error). Aborts the current client, never the batch.
	ErrCodeDriverFatal ErrorCode = "DRIVER_FATAL"

	// Workflow interrupted by operator cancellation.
	ErrCodeInterrupted ErrorCode = "INTERRUPTED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewResolutionFailure records the descriptor labels that were tried.
func NewResolutionFailure(step string, tried []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResolutionFailure,
		Message:   "element not found after all descriptors",
		Details:   fmt.Sprintf("step: %s, tried: %v", step, tried),
		Retryable: true,
		Metadata:  map[string]interface{}{"step": step, "tried": tried},
		Timestamp: time.Now().UTC(),
	}
}

// NewStaleReference creates a retryable stale-element error.
func NewStaleReference(step, label string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStaleReference,
		Message:   "element detached after resolution",
		Details:   fmt.Sprintf("step: %s, element: %s", step, label),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepFailed creates a non-retryable step failure after retries exhausted.
func NewStepFailed(step, reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepFailed,
		Message:   "workflow step failed",
		Details:   fmt.Sprintf("step: %s, reason: %s", step, reason),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPolicySkip creates a non-retryable designed skip outcome.
func NewPolicySkip(code ErrorCode, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   "client excluded by policy",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDriverFatal wraps an unexpected driver-layer fault.
func NewDriverFatal(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDriverFatal,
		Message:   "UI driver fault",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInterrupted marks a client cut short by operator cancellation.
func NewInterrupted(step string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInterrupted,
		Message:   "workflow interrupted",
		Details:   fmt.Sprintf("step: %s", step),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the bounded retry budget per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStaleReference:
		return 3
	case ErrCodeResolutionFailure:
		return 3
	default:
		return 0 // policy skips and fatals: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// IsPolicySkip reports whether code is a designed skip, not a failure.
func IsPolicySkip(code ErrorCode) bool {
	switch code {
	case ErrCodePolicySkipFamily, ErrCodePolicySkipFollowups,
		ErrCodePolicySkipNoID, ErrCodePolicySkipNoPlan:
		return true
	}
	return false
}
