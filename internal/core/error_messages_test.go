package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/datamapper/internal/processor"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "wrapped session not found",
			err:         fmt.Errorf("%w: 1234", ErrSessionNotFound),
			wantCode:    "SES001",
			wantMessage: "The session has expired or was closed",
		},
		{
			name:        "too many sessions",
			err:         ErrTooManySessions,
			wantCode:    "SES002",
			wantMessage: "The server is holding too many sessions",
		},
		{
			name:        "unknown query",
			err:         fmt.Errorf("%w: nope", ErrUnknownQuery),
			wantCode:    "QRY001",
			wantMessage: "The requested query does not exist",
		},
		{
			name:        "load limiter busy",
			err:         ErrTooManyLoads,
			wantCode:    "QRY002",
			wantMessage: "Too many queries are loading right now",
		},
		{
			name:        "no database",
			err:         ErrNoDatabase,
			wantCode:    "QRY003",
			wantMessage: "Query data is not available on this server",
		},
		{
			name:        "validation with bad column",
			err:         &processor.ValidationError{Op: processor.OpSort, Problems: []string{"column not found: x"}},
			wantCode:    "OP003",
			wantMessage: "The column is not in the current data",
		},
		{
			name:        "validation with bad formula",
			err:         &processor.ValidationError{Op: processor.OpCalculate, Problems: []string{"invalid formula: unexpected ')'"}},
			wantCode:    "OP002",
			wantMessage: "The formula could not be parsed",
		},
		{
			name:        "generic validation",
			err:         &processor.ValidationError{Op: processor.OpLimit, Problems: []string{"count must be non-negative, got -1"}},
			wantCode:    "OP001",
			wantMessage: "The operation is not valid for this data",
		},
		{
			name:        "stats on unknown column",
			err:         fmt.Errorf("%w: amount", ErrColumnNotFound),
			wantCode:    "OP003",
			wantMessage: "The column is not in the current data",
		},
		{
			name:        "saved config not found",
			err:         ErrConfigNotFound,
			wantCode:    "CFG001",
			wantMessage: "The saved config does not exist",
		},
		{
			name:        "unreadable config",
			err:         errors.New("parse yaml config: yaml: line 2: mapping values are not allowed"),
			wantCode:    "CFG003",
			wantMessage: "The config could not be read",
		},
		{
			name:        "csv without header",
			err:         fmt.Errorf("read csv: %w", ErrEmptyFile),
			wantCode:    "REQ001",
			wantMessage: "The file is empty",
		},
		{
			name:        "oversized upload",
			err:         fmt.Errorf("read csv: %w: exceeds 10 bytes", ErrFileTooLarge),
			wantCode:    "REQ003",
			wantMessage: "The upload exceeds the maximum size",
		},
		{
			name:        "http body limit",
			err:         errors.New("http: request body too large"),
			wantCode:    "REQ003",
			wantMessage: "The upload exceeds the maximum size",
		},
		{
			name:        "duplicate config name",
			err:         errors.New(`save config "q1": ERROR: duplicate key value violates unique constraint`),
			wantCode:    "DB001",
			wantMessage: "A config with this name already exists for this query",
		},
		{
			name:        "connection refused",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB002",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "rate limit",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("SESSION NOT FOUND"),
			wantCode:    "SES001",
			wantMessage: "The session has expired or was closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrTooManySessions)

	expected := "The server is holding too many sessions (Code: SES002). Close unused sessions or try again later"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil error is not user facing", err: nil, want: false},
		{name: "known error is user facing", err: ErrConfigNotFound, want: true},
		{name: "unknown error is not user facing", err: errors.New("random internal error xyz"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}
