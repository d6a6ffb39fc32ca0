package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a standardized error code
type ErrorCode string

// Standard error codes organized by category
const (
	// Storage errors
	ErrCodeStorageConnection     ErrorCode = "STORAGE_CONNECTION"
	ErrCodeStorageTimeout        ErrorCode = "STORAGE_TIMEOUT"
	ErrCodeStorageLocked         ErrorCode = "STORAGE_LOCKED"
	ErrCodeStorageInitialization ErrorCode = "STORAGE_INITIALIZATION"
	ErrCodeStorageCorrupt        ErrorCode = "STORAGE_CORRUPT"

	// Validation errors
	ErrCodeValidationRequired   ErrorCode = "VALIDATION_REQUIRED"
	ErrCodeValidationInvalid    ErrorCode = "VALIDATION_INVALID"
	ErrCodeValidationFormat     ErrorCode = "VALIDATION_FORMAT"
	ErrCodeValidationRange      ErrorCode = "VALIDATION_RANGE"
	ErrCodeValidationConstraint ErrorCode = "VALIDATION_CONSTRAINT"

	// Domain errors
	ErrCodeRecordNotFound ErrorCode = "RECORD_NOT_FOUND"

	// Transport errors
	ErrCodeTransportInvalidJSON   ErrorCode = "TRANSPORT_INVALID_JSON"
	ErrCodeTransportInvalidParams ErrorCode = "TRANSPORT_INVALID_PARAMS"
	ErrCodeTransportNotAllowed    ErrorCode = "TRANSPORT_METHOD_NOT_ALLOWED"

	// System errors
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeContextCanceled    ErrorCode = "CONTEXT_CANCELED"
	ErrCodePanic              ErrorCode = "PANIC_RECOVERED"
	ErrCodeConfiguration      ErrorCode = "CONFIGURATION_ERROR"
)

// AppError represents a standardized application error
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Internal error       `json:"-"` // Internal error not exposed to clients
}

// Error implements the error interface
func (e *AppError) Error() string {
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Internal
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// ToJSON returns a JSON representation safe for clients
func (e *AppError) ToJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	return &AppError{
		Code:     code,
		Message:  message,
		Internal: err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	if err == nil {
		return nil
	}

	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// As returns the outermost AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil || !stderrors.As(err, &appErr) {
		return nil, false
	}
	return appErr, true
}

// Is checks if an error has a specific error code
func Is(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	if !ok {
		return false
	}
	return appErr.Code == code
}

// IsAny checks if an error matches any of the provided codes
func IsAny(err error, codes ...ErrorCode) bool {
	for _, code := range codes {
		if Is(err, code) {
			return true
		}
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	appErr, ok := As(err)
	if !ok {
		return ErrCodeInternal
	}

	return appErr.Code
}

// GetMessage returns a safe message for the client
func GetMessage(err error) string {
	if err == nil {
		return ""
	}

	appErr, ok := As(err)
	if !ok {
		return "An internal error occurred"
	}

	return appErr.Message
}

// GetInternal returns the internal error for logging
func GetInternal(err error) error {
	if err == nil {
		return nil
	}

	appErr, ok := As(err)
	if !ok {
		return err
	}

	if appErr.Internal != nil {
		return appErr.Internal
	}

	return appErr
}

// IsValidation reports whether err is a ValidationError: the input broke a
// data-model invariant and must not be retried.
func IsValidation(err error) bool {
	return strings.HasPrefix(string(GetCode(err)), "VALIDATION_")
}

// IsUnavailable reports whether err means the store could not be reached or
// the write lock could not be acquired in time.
func IsUnavailable(err error) bool {
	return IsAny(err,
		ErrCodeStorageConnection,
		ErrCodeStorageTimeout,
		ErrCodeStorageLocked,
		ErrCodeServiceUnavailable,
	)
}

// IsConfiguration reports whether err is a startup ConfigurationError
func IsConfiguration(err error) bool {
	return Is(err, ErrCodeConfiguration)
}

// IsNotFound reports whether err is a missing-record error
func IsNotFound(err error) bool {
	return Is(err, ErrCodeRecordNotFound)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return Newf(ErrCodeRecordNotFound, "%s not found", resource)
}

// ValidationRequired creates a validation required error
func ValidationRequired(field string) *AppError {
	return Newf(ErrCodeValidationRequired, "%s is required", field).
		WithDetails(map[string]string{"field": field})
}

// ValidationInvalid creates a validation invalid error
func ValidationInvalid(field, reason string) *AppError {
	return Newf(ErrCodeValidationInvalid, "%s is invalid: %s", field, reason).
		WithDetails(map[string]string{"field": field})
}

// ValidationRange creates an out-of-range validation error
func ValidationRange(field, reason string) *AppError {
	return Newf(ErrCodeValidationRange, "%s is out of range: %s", field, reason).
		WithDetails(map[string]string{"field": field})
}

// Unavailable wraps a connectivity failure of the underlying store
func Unavailable(err error, message string) *AppError {
	return Wrap(err, ErrCodeStorageConnection, message)
}

// Configuration creates a startup configuration error
func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message)
}

// Configurationf creates a startup configuration error with formatted message
func Configurationf(format string, args ...interface{}) *AppError {
	return Newf(ErrCodeConfiguration, format, args...)
}

// Internal creates an internal error with a safe message
func Internal(internalErr error) *AppError {
	return Wrap(internalErr, ErrCodeInternal, "An internal error occurred")
}

