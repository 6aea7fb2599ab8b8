package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New("test error")
	if err == nil {
		t.Fatal("New() returned nil")
	}

	if err.Error() != "test error" {
		t.Errorf("Expected 'test error', got: %s", err.Error())
	}

	if !strings.HasPrefix(err.Location(), "errors_test.go:") {
		t.Errorf("Expected location in errors_test.go, got: %s", err.Location())
	}
}

func TestWrap(t *testing.T) {
	baseErr := errors.New("base error")
	err := Wrap(baseErr, "wrapped")

	if !strings.Contains(err.Error(), "wrapped") || !strings.Contains(err.Error(), "base error") {
		t.Errorf("Expected both messages in error, got: %s", err.Error())
	}

	if errors.Unwrap(err) != baseErr {
		t.Errorf("Unwrap() returned wrong error: %v", errors.Unwrap(err))
	}

	if Wrap(nil, "nothing") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapKeepsSentinelCode(t *testing.T) {
	err := Wrap(NewResponseParse(errors.New("unexpected end of JSON input")), "model analysis failed")
	if err.GetCode() != CodeResponseParse {
		t.Errorf("Expected code %s, got: %s", CodeResponseParse, err.GetCode())
	}
	if !errors.Is(err, ErrResponseParse) {
		t.Error("errors.Is() should see ErrResponseParse through Wrap")
	}
}

func TestWithFieldDoesNotMutateOriginal(t *testing.T) {
	base := New("test error")
	derived := base.WithField("key", "value").WithFields(map[string]interface{}{"count": 2})

	if len(base.GetFields()) != 0 {
		t.Fatalf("Expected base error to stay without fields, got %v", base.GetFields())
	}
	fields := derived.GetFields()
	if fields["key"] != "value" || fields["count"] != 2 {
		t.Errorf("Unexpected fields: %v", fields)
	}
}

func TestModelErrorConstructors(t *testing.T) {
	testCases := []struct {
		name     string
		err      *Error
		sentinel error
		code     string
	}{
		{"InvalidEntity", NewInvalidEntity("Sentiment"), ErrInvalidEntity, CodeInvalidEntity},
		{"Configuration", NewConfiguration("Gemini API key is not set."), ErrConfiguration, CodeConfiguration},
		{"ResponseParse", NewResponseParse(errors.New("bad json")), ErrResponseParse, CodeResponseParse},
		{"ExternalService", NewExternalService(errors.New("quota exceeded")), ErrExternalService, CodeExternalService},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, tc.sentinel) {
				t.Errorf("Expected errors.Is(%v, %v)", tc.err, tc.sentinel)
			}
			if GetErrorCode(tc.err) != tc.code {
				t.Errorf("Expected code %s, got: %s", tc.code, GetErrorCode(tc.err))
			}
			if GetErrorMessage(tc.err) == "" {
				t.Error("Expected a non-empty message")
			}
		})
	}

	if NewInvalidEntity("Sentiment").GetFields()["entity"] != "Sentiment" {
		t.Error("Expected entity field on invalid entity error")
	}
}

func TestGetErrorCodeFromBareSentinel(t *testing.T) {
	if GetErrorCode(ErrExternalService) != CodeExternalService {
		t.Errorf("Expected %s for bare sentinel", CodeExternalService)
	}
	if GetErrorCode(errors.New("other")) != "" {
		t.Error("Expected empty code for unknown error")
	}
}

func TestHTTPStatusFromError(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"NotFound", ErrNotFound, http.StatusNotFound},
		{"InvalidInput", NewInvalidInput("transcript must be a list"), http.StatusBadRequest},
		{"InvalidEntity", NewInvalidEntity("x"), http.StatusBadRequest},
		{"Configuration", NewConfiguration("missing key"), http.StatusServiceUnavailable},
		{"ExternalService", Wrap(NewExternalService(nil), "wrapped"), http.StatusBadGateway},
		{"Unknown", errors.New("unknown"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			status := HTTPStatusFromError(tc.err)
			if status != tc.expectedStatus {
				t.Errorf("Expected status %d, got: %d", tc.expectedStatus, status)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "StructuredError",
			err:            NewInvalidInput("transcript must be a list").WithField("field", "transcript"),
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"code": "INVALID_INPUT"`,
		},
		{
			name:           "RateLimited",
			err:            NewRateLimited("rate limit exceeded, retry later"),
			expectedStatus: http.StatusTooManyRequests,
			expectedBody:   `"code": "RATE_LIMITED"`,
		},
		{
			name:           "StandardError",
			err:            ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error": "resource not found"`,
		},
		{
			name:           "NilError",
			err:            nil,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"Unknown error"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tc.err)

			if rec.Code != tc.expectedStatus {
				t.Errorf("Expected status %d, got: %d", tc.expectedStatus, rec.Code)
			}

			if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got: %s", contentType)
			}

			if body := rec.Body.String(); !strings.Contains(body, tc.expectedBody) {
				t.Errorf("Expected body to contain '%s', got: %s", tc.expectedBody, body)
			}
		})
	}
}
