package adapthttp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bereal/internal/app"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := &Server{log: zap.New(core)}
	// Create a dummy handler
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("OK"))
	})

	handler := s.loggingMiddleware(nextHandler)

	req := httptest.NewRequest("GET", "/test-path", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status %d, got %d", http.StatusTeapot, w.Code)
	}

	entries := logs.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["method"] != "GET" || fields["path"] != "/test-path" || fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("Log entry missing expected fields. Got: %v", fields)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{app.ErrDuplicateUsername, http.StatusConflict},
		{app.ErrFeedSuperseded, http.StatusConflict},
		{app.ErrInvalidCredentials, http.StatusUnauthorized},
		{app.ErrInvalidSession, http.StatusUnauthorized},
		{app.ErrInvalidCredentialFormat, http.StatusBadRequest},
		{app.ErrEmptyContent, http.StatusBadRequest},
		{app.ErrUndecodableImage, http.StatusBadRequest},
		{app.ErrInvalidLocation, http.StatusBadRequest},
		{badRequest("nope"), http.StatusBadRequest},
		{app.ErrNotFound, http.StatusNotFound},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestParseCapturedAt(t *testing.T) {
	if got, err := parseCapturedAt(""); err != nil || got != nil {
		t.Errorf("empty: got %v, %v", got, err)
	}
	got, err := parseCapturedAt("1780308000")
	if err != nil || got.Unix() != 1780308000 {
		t.Errorf("unix seconds: got %v, %v", got, err)
	}
	got, err = parseCapturedAt("2026-06-01T10:00:00+02:00")
	if err != nil || got.Unix() != 1780300800 {
		t.Errorf("rfc3339: got %v, %v", got, err)
	}
	for _, v := range []string{"soon", "NaN", "Inf", "-Inf", "1e300", "-1e300", "253402300800"} {
		if _, err := parseCapturedAt(v); statusFor(err) != http.StatusBadRequest {
			t.Errorf("%s: expected bad request, got %v", v, err)
		}
	}
	got, err = parseCapturedAt("253402300799")
	if err != nil || got.Year() != 9999 {
		t.Errorf("last second of 9999: got %v, %v", got, err)
	}
}
