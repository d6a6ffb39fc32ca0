package logging

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRequestInterceptor_InterceptRequest(t *testing.T) {
	testLogger := NewTestLogger()
	interceptor := NewRequestInterceptor(testLogger.GetLogger())

	called := false
	err := interceptor.InterceptRequest(context.Background(), "etl.load", func(ctx context.Context) error {
		called = true
		if GetRequestID(ctx) == "" {
			t.Error("Expected request ID to be set in context")
		}
		if GetOperation(ctx) != "etl.load" {
			t.Errorf("Expected operation etl.load, got %s", GetOperation(ctx))
		}
		return nil
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !called {
		t.Error("Expected function to be called")
	}
	testLogger.AssertLogged(t, "INFO", "Request started")
	testLogger.AssertLogged(t, "INFO", "Request completed successfully")
}

func TestRequestInterceptor_InterceptRequest_Error(t *testing.T) {
	testLogger := NewTestLogger()
	interceptor := NewRequestInterceptor(testLogger.GetLogger())

	want := errors.New("boom")
	err := interceptor.InterceptRequest(context.Background(), "op", func(ctx context.Context) error {
		return want
	})

	if !errors.Is(err, want) {
		t.Errorf("Expected %v, got %v", want, err)
	}
	entries := testLogger.GetEntriesWithMessage("Request completed with error")
	if len(entries) != 1 || entries[0].Error != "boom" {
		t.Errorf("Expected one error entry carrying the error, got %+v", entries)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	testLogger := NewTestLogger()
	interceptor := NewRequestInterceptor(testLogger.GetLogger())

	var seenID string
	handler := interceptor.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	t.Run("generates request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/occupancy", nil))

		if rec.Code != http.StatusCreated {
			t.Errorf("Expected 201, got %d", rec.Code)
		}
		if seenID == "" || rec.Header().Get(RequestIDHeader) != seenID {
			t.Errorf("Expected response header to echo request ID %q, got %q", seenID, rec.Header().Get(RequestIDHeader))
		}
	})

	t.Run("reuses inbound request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if seenID != "abc-123" {
			t.Errorf("Expected abc-123, got %s", seenID)
		}
	})

	testLogger.AssertLogged(t, "INFO", "HTTP request completed successfully")
}

func TestHTTPMiddleware_Panic(t *testing.T) {
	testLogger := NewTestLogger()
	interceptor := NewRequestInterceptor(testLogger.GetLogger())

	handler := interceptor.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
	testLogger.AssertLogged(t, "ERROR", "HTTP request panicked")
}

func TestOperationTimer(t *testing.T) {
	testLogger := NewTestLogger()
	logger := testLogger.GetLogger()

	StartTimer(context.Background(), logger, "sqlite.create").End()
	StartTimer(context.Background(), logger, "sqlite.query").EndWithError(errors.New("locked"))

	testLogger.AssertLogged(t, "DEBUG", "Operation completed")
	entries := testLogger.GetEntriesWithLevel("WARN")
	if len(entries) != 1 || entries[0].Operation != "sqlite.query" {
		t.Errorf("Expected one warning for sqlite.query, got %+v", entries)
	}
}

func TestMetricsCollector(t *testing.T) {
	if NewMetricsCollector(MetricsConfig{Enabled: false}) != nil {
		t.Fatal("Expected nil collector when disabled")
	}

	var nilCollector *MetricsCollector
	nilCollector.RecordStorageOperation("sqlite", "create", "ok", 0)
	nilCollector.RecordImportRows("loaded", 3)

	mc := NewMetricsCollector(MetricsConfig{Enabled: true, Namespace: "test"})
	mc.RecordStorageOperation("sqlite", "create", "ok", 0)
	mc.RecordStorageOperation("sqlite", "create", "validation", 0)
	mc.RecordImportRows("loaded", 3)
	mc.RecordImportRows("rejected", 0)

	if got := testutil.ToFloat64(mc.storageOperations.WithLabelValues("sqlite", "create", "ok")); got != 1 {
		t.Errorf("Expected 1 ok create, got %v", got)
	}
	if got := testutil.ToFloat64(mc.importRows.WithLabelValues("loaded")); got != 3 {
		t.Errorf("Expected 3 loaded rows, got %v", got)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/occupancy/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := mc.Middleware()(mux)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/occupancy/42", nil))

	if got := testutil.ToFloat64(mc.requestCounter.WithLabelValues("GET", "GET /api/v1/occupancy/{id}", "404")); got != 1 {
		t.Errorf("Expected one request labelled with the route pattern, got %v", got)
	}

	rec := httptest.NewRecorder()
	mc.GetHTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "test_storage_operations_total") {
		t.Error("Expected storage series in metrics output")
	}
}
