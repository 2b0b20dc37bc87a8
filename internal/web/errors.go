package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical details and the request ID (server-side)
//   - Returned to the client as a JSON ErrorResponse with a support code
//
// The HTTP status is derived from the error chain with errors.Is/As, the
// message from core.MapError, so handlers just pass the error along.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/datamapper/internal/core"
	"github.com/JonMunkholm/datamapper/internal/logging"
	"github.com/JonMunkholm/datamapper/internal/processor"
)

// errInvalidBody marks request payloads that could not be decoded.
var errInvalidBody = errors.New("invalid request body")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing JSON form.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "5")
	}
	respondErrorJSON(w, userMsg, status)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps an error chain to an HTTP status code.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	var pgErr *pgconn.PgError

	switch {
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, core.ErrConfigNotFound),
		errors.Is(err, core.ErrUnknownQuery),
		errors.Is(err, core.ErrColumnNotFound):
		return http.StatusNotFound
	case errors.As(err, &maxBytes), errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyLoads):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManySessions), errors.Is(err, core.ErrNoDatabase):
		return http.StatusServiceUnavailable
	case errors.Is(err, errInvalidBody),
		errors.Is(err, core.ErrConfigNameRequired),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrInvalidCSV),
		processor.IsValidationError(err):
		return http.StatusBadRequest
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	body, err := readBody(w, r, limit)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errWithBody(err)
	}
	return nil
}

// readBody reads the whole request body, capped at limit bytes.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, errWithBody(err)
	}
	return body, nil
}

// errWithBody marks err as a bad request payload.
func errWithBody(err error) error {
	return fmt.Errorf("%w: %w", errInvalidBody, err)
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
