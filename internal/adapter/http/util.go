package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bereal/internal/app"

	"go.uber.org/zap"
)

const sessionCookie = "session"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// writeAppError maps service errors to status codes. Unexpected errors are
// logged and reported without detail.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, status, errors.New("internal error"))
		return
	}
	writeError(w, status, err)
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, app.ErrDuplicateUsername), errors.Is(err, app.ErrFeedSuperseded):
		return http.StatusConflict
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrInvalidCredentialFormat), errors.Is(err, app.ErrEmptyContent),
		errors.Is(err, app.ErrUndecodableImage), errors.Is(err, app.ErrInvalidLocation),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func parseJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return badRequest("invalid json: %v", err)
	}
	return nil
}

// sessionToken reads a bearer token or the session cookie.
func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.sessionTTL / time.Second),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// checkOrder accepts an empty order or newest-first.
func checkOrder(r *http.Request) error {
	switch o := r.URL.Query().Get("order"); o {
	case "", "-createdAt":
		return nil
	default:
		return badRequest("unsupported order %q", o)
	}
}

// Unix seconds bounds of years 0000 through 9999, the range RFC 3339 can
// express.
const (
	minCapturedAtSecs = -62167219200
	maxCapturedAtSecs = 253402300799
)

// parseCapturedAt accepts RFC 3339 or unix seconds.
func parseCapturedAt(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return &t, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(secs) || secs < minCapturedAtSecs || secs > maxCapturedAtSecs {
		return nil, badRequest("invalid capturedAt %q", v)
	}
	t := time.UnixMilli(int64(secs * 1000)).UTC()
	return &t, nil
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
