package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/JamesPrial/bed-occupancy-core/pkg/logging"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    ErrorCode
		message string
	}{
		{
			name:    "creates error with code and message",
			code:    ErrCodeRecordNotFound,
			message: "record not found",
		},
		{
			name:    "creates validation error",
			code:    ErrCodeValidationRequired,
			message: "hospital_id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.Message != tt.message {
				t.Errorf("expected message %s, got %s", tt.message, err.Message)
			}
			if err.Internal != nil {
				t.Error("expected Internal to be nil")
			}
			if err.Error() != tt.message {
				t.Errorf("Error() should return message")
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Error("expected nil when wrapping nil")
	}

	cause := errors.New("disk I/O error")
	err := Wrapf(cause, ErrCodeStorageConnection, "open %s", "beds.db")

	if err.Message != "open beds.db" {
		t.Errorf("unexpected message %q", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped error to unwrap to cause")
	}
	if GetInternal(err) != cause {
		t.Error("expected GetInternal to return cause")
	}
}

func TestChainInspection(t *testing.T) {
	base := ValidationRange("bed_count", "must be non-negative")
	wrapped := fmt.Errorf("create: %w", base)

	if !Is(wrapped, ErrCodeValidationRange) {
		t.Error("expected Is to see through fmt wrapping")
	}
	if GetCode(wrapped) != ErrCodeValidationRange {
		t.Errorf("expected VALIDATION_RANGE, got %s", GetCode(wrapped))
	}
	if GetMessage(wrapped) != base.Message {
		t.Errorf("expected message %q, got %q", base.Message, GetMessage(wrapped))
	}
	if GetCode(errors.New("plain")) != ErrCodeInternal {
		t.Error("expected plain errors to classify as internal")
	}
	if GetCode(nil) != "" {
		t.Error("expected empty code for nil")
	}
	if GetMessage(errors.New("secret")) != "An internal error occurred" {
		t.Error("expected plain error messages to be hidden")
	}
}

func TestCategories(t *testing.T) {
	tests := []struct {
		err           error
		validation    bool
		unavailable   bool
		configuration bool
		notFound      bool
	}{
		{err: ValidationRequired("ward_id"), validation: true},
		{err: New(ErrCodeValidationConstraint, "over capacity"), validation: true},
		{err: Unavailable(errors.New("refused"), "cannot reach store"), unavailable: true},
		{err: New(ErrCodeStorageLocked, "locked"), unavailable: true},
		{err: New(ErrCodeStorageTimeout, "slow"), unavailable: true},
		{err: Configurationf("unsupported DATABASE_TYPE '%s'", "postgres"), configuration: true},
		{err: NotFound("occupancy record"), notFound: true},
		{err: Internal(errors.New("bug"))},
		{err: errors.New("plain")},
	}

	for _, tt := range tests {
		t.Run(GetMessage(tt.err), func(t *testing.T) {
			if IsValidation(tt.err) != tt.validation {
				t.Errorf("IsValidation = %v", !tt.validation)
			}
			if IsUnavailable(tt.err) != tt.unavailable {
				t.Errorf("IsUnavailable = %v", !tt.unavailable)
			}
			if IsConfiguration(tt.err) != tt.configuration {
				t.Errorf("IsConfiguration = %v", !tt.configuration)
			}
			if IsNotFound(tt.err) != tt.notFound {
				t.Errorf("IsNotFound = %v", !tt.notFound)
			}
		})
	}
}

func TestToJSON(t *testing.T) {
	err := Wrap(errors.New("password=hunter2"), ErrCodeStorageConnection, "cannot reach store").
		WithDetails(map[string]string{"backend": "mongodb"})

	data, jerr := err.ToJSON()
	if jerr != nil {
		t.Fatal(jerr)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Error("internal error leaked into JSON")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["code"] != "STORAGE_CONNECTION" {
		t.Errorf("unexpected code %v", decoded["code"])
	}
}

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ValidationRequired("hospital_id"), http.StatusBadRequest},
		{New(ErrCodeValidationConstraint, "x"), http.StatusBadRequest},
		{New(ErrCodeTransportInvalidJSON, "x"), http.StatusBadRequest},
		{NotFound("record"), http.StatusNotFound},
		{New(ErrCodeTransportNotAllowed, "x"), http.StatusMethodNotAllowed},
		{Unavailable(errors.New("x"), "down"), http.StatusServiceUnavailable},
		{New(ErrCodeStorageLocked, "x"), http.StatusServiceUnavailable},
		{New(ErrCodeContextCanceled, "x"), 499},
		{Configuration("x"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
		{New(ErrorCode("VALIDATION_OTHER"), "x"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		if got := HTTPStatusCode(tt.err); got != tt.want {
			t.Errorf("HTTPStatusCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}

	if !IsClientError(ValidationRequired("x")) || IsServerError(ValidationRequired("x")) {
		t.Error("validation errors are client errors")
	}
	if !IsServerError(Unavailable(errors.New("x"), "down")) {
		t.Error("unavailable errors are server errors")
	}
}

func TestToHTTPError(t *testing.T) {
	httpErr := ToHTTPError(errors.New("raw driver failure"))
	if httpErr.Status != http.StatusInternalServerError || httpErr.Code != ErrCodeInternal {
		t.Errorf("unexpected %+v", httpErr)
	}
	if strings.Contains(httpErr.Message, "driver") {
		t.Error("raw error message leaked")
	}

	httpErr = ToHTTPError(ValidationRequired("ward_id"))
	if httpErr.Status != http.StatusBadRequest || httpErr.Details == nil {
		t.Errorf("unexpected %+v", httpErr)
	}
}

func TestLogger_LogError(t *testing.T) {
	capture := logging.NewTestLogger()
	l := NewLoggerWithSlog(capture.GetLogger())
	ctx := logging.WithRequestID(context.Background(), "req-42")

	if l.LogError(ctx, nil, "noop") != nil {
		t.Error("expected nil for nil error")
	}

	returned := l.LogError(ctx, ValidationRequired("ward_id"), "create")
	if !Is(returned, ErrCodeValidationRequired) {
		t.Errorf("expected AppError to be returned unchanged, got %v", returned)
	}
	capture.AssertLogged(t, "WARN", "Application error occurred")

	returned = l.LogError(ctx, errors.New("boom"), "create")
	if GetCode(returned) != ErrCodeInternal || returned.Error() == "boom" {
		t.Errorf("expected safe internal error, got %v", returned)
	}
	capture.AssertLogged(t, "ERROR", "Unexpected error occurred")

	for _, entry := range capture.GetEntries() {
		if entry.RequestID != "req-42" {
			t.Errorf("expected request_id on %q", entry.Message)
		}
	}
}

func TestLogger_LogPanic(t *testing.T) {
	capture := logging.NewTestLogger()
	l := NewLoggerWithSlog(capture.GetLogger())

	err := l.LogPanic(context.Background(), "nil map", "handler")
	if !Is(err, ErrCodePanic) {
		t.Errorf("expected panic code, got %v", err)
	}
	capture.AssertLogged(t, "ERROR", "Panic recovered")
}

func TestDefaultLogger(t *testing.T) {
	capture := logging.NewTestLogger()
	SetDefaultLogger(capture.GetLogger())

	wrapped := LogAndWrap(context.Background(), errors.New("refused"), ErrCodeStorageConnection, "cannot reach store", "health")
	if !IsUnavailable(wrapped) {
		t.Errorf("expected unavailable, got %v", wrapped)
	}
	if LogAndWrap(context.Background(), nil, ErrCodeInternal, "x", "y") != nil {
		t.Error("expected nil")
	}
	capture.AssertLogged(t, "ERROR", "Application error occurred")
}
