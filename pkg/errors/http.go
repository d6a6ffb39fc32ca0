package errors

import (
	"net/http"
	"strings"
)

// HTTPStatusCode returns the appropriate HTTP status code for an error
func HTTPStatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}

	code := GetCode(err)
	return HTTPStatusFromCode(code)
}

// HTTPStatusFromCode returns the HTTP status for an error code
func HTTPStatusFromCode(code ErrorCode) int {
	switch code {
	// 400 Bad Request - Client sent invalid data
	case ErrCodeValidationRequired,
		ErrCodeValidationInvalid,
		ErrCodeValidationFormat,
		ErrCodeValidationRange,
		ErrCodeValidationConstraint,
		ErrCodeTransportInvalidJSON,
		ErrCodeTransportInvalidParams:
		return http.StatusBadRequest

	// 404 Not Found - Record doesn't exist
	case ErrCodeRecordNotFound:
		return http.StatusNotFound

	case ErrCodeTransportNotAllowed:
		return http.StatusMethodNotAllowed

	// 503 Service Unavailable - the store could not be reached
	case ErrCodeStorageConnection,
		ErrCodeStorageTimeout,
		ErrCodeStorageLocked,
		ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable

	// 500 Internal Server Error
	case ErrCodeInternal,
		ErrCodePanic,
		ErrCodeStorageInitialization,
		ErrCodeStorageCorrupt,
		ErrCodeConfiguration:
		return http.StatusInternalServerError

	// 499 Client Closed Request (non-standard but commonly used)
	case ErrCodeContextCanceled:
		return 499

	default:
		// Try to infer from prefix
		codeStr := string(code)
		switch {
		case strings.HasPrefix(codeStr, "VALIDATION_"):
			return http.StatusBadRequest
		case strings.HasPrefix(codeStr, "STORAGE_"):
			return http.StatusInternalServerError
		case strings.HasPrefix(codeStr, "TRANSPORT_"):
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}
}

// HTTPError represents an HTTP-specific error response
type HTTPError struct {
	Status  int         `json:"status"`
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ToHTTPError converts an error to an HTTP error response
func ToHTTPError(err error) HTTPError {
	if err == nil {
		return HTTPError{
			Status:  http.StatusOK,
			Message: "OK",
		}
	}

	appErr, ok := As(err)
	if !ok {
		// Wrap as internal error
		appErr = Internal(err)
	}

	return HTTPError{
		Status:  HTTPStatusFromCode(appErr.Code),
		Code:    appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}
}

// IsClientError returns true if the error is a client error (4xx)
func IsClientError(err error) bool {
	status := HTTPStatusCode(err)
	return status >= 400 && status < 500
}

// IsServerError returns true if the error is a server error (5xx)
func IsServerError(err error) bool {
	status := HTTPStatusCode(err)
	return status >= 500 && status < 600
}
