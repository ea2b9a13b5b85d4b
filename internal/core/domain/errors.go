package domain

import (
	"errors"
	"fmt"
)

// DomainError is an error carrying a stable, machine-readable code.
// Two DomainErrors match under errors.Is when their codes are equal.
type DomainError struct {
	Code    string // Error code (e.g., "SKV-CODEC-4220")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// Wrap returns a copy of the error wrapping cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Codec Errors (CODEC)
// ============================================================================

var (
	// ErrDecodeFailure covers every way a stored blob can fail to become an
	// envelope: bad base64, wrong secret, tampered ciphertext, malformed JSON.
	ErrDecodeFailure = NewDomainError("SKV-CODEC-4220", "envelope decode failed")

	// ErrEncodeFailure indicates the value could not be serialized.
	ErrEncodeFailure = NewDomainError("SKV-CODEC-4221", "envelope encode failed")
)

// ============================================================================
// Backend Errors (BKND)
// ============================================================================

var (
	// ErrNotFound indicates the key is absent from the backend.
	ErrNotFound = NewDomainError("SKV-BKND-4040", "key not found")

	// ErrBackendUnavailable indicates the backend connection could not be
	// established.
	ErrBackendUnavailable = NewDomainError("SKV-BKND-5030", "backend unavailable")

	// ErrBackendOperationFailed indicates the substrate rejected a single
	// read, write or delete.
	ErrBackendOperationFailed = NewDomainError("SKV-BKND-5000", "backend operation failed")
)

// ============================================================================
// Store Errors (STORE)
// ============================================================================

var (
	// ErrInvalidConfig indicates the store configuration was rejected.
	ErrInvalidConfig = NewDomainError("SKV-STORE-4000", "invalid store configuration")

	// ErrInvalidKey indicates an empty key. No backend can store one.
	ErrInvalidKey = NewDomainError("SKV-STORE-4001", "key must not be empty")

	// ErrValueType indicates a stored value does not fit the caller's type.
	ErrValueType = NewDomainError("SKV-STORE-4220", "stored value does not match requested type")

	// ErrClosed indicates the store or backend has been disposed.
	ErrClosed = NewDomainError("SKV-STORE-5031", "store closed")
)
