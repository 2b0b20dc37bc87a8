package core

// # Error Codes Reference
//
// This file defines user-facing error messages with codes for support
// reference. Users quote the code; support looks it up here.
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Session not found: the session expired or was closed
//	         Action: Reload the data to start a new session
//	         Patterns: "session not found"
//
//	SES002 - Too many sessions: the server is holding too many sessions
//	         Action: Close unused sessions or try again later
//	         Patterns: "too many open sessions"
//
// # Query Errors (QRY001-QRY099)
//
//	QRY001 - Unknown query: the query is not in the catalog
//	         Action: Pick a query from the list
//	         Patterns: "unknown query"
//
//	QRY002 - Busy: all query load slots stayed busy
//	         Action: Please try again in a few moments
//	         Patterns: "too many concurrent query loads"
//
//	QRY003 - No database: query loading is not configured
//	         Action: Open a session from records or a CSV file instead
//	         Patterns: "no database configured"
//
// # Operation Errors (OP001-OP099)
//
//	OP001 - Invalid operation: rejected by validation
//	        Action: Check the operation fields and try again
//	        Patterns: " operation: "
//
//	OP002 - Invalid formula: the formula does not parse
//	        Action: Use column names, numbers, + - * / and parentheses
//	        Patterns: "invalid formula"
//
//	OP003 - Column not found: the column is not in the current data
//	        Action: Pick a column from the current schema
//	        Patterns: "column not found"
//
// # Config Errors (CFG001-CFG099)
//
//	CFG001 - Config not found
//	         Action: Refresh the saved config list
//	         Patterns: "saved config not found"
//
//	CFG002 - Name required
//	         Action: Enter a name for the config
//	         Patterns: "config name is required"
//
//	CFG003 - Unreadable config
//	         Action: Export a config from a session and try again
//	         Patterns: "parse config", "parse yaml config"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Empty file       Patterns: "empty file"
//	REQ002 - Invalid CSV      Patterns: "invalid csv"
//	REQ003 - File too large   Patterns: "file too large", "request body too large"
//	REQ004 - Invalid payload  Patterns: "request body", "decode records"
//	REQ005 - Timed out        Patterns: "context deadline exceeded"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate name    Patterns: "duplicate key"
//	DB002 - Connection        Patterns: "connection refused", "connection reset"
//	DB003 - Query cancelled   Patterns: "canceling statement"
//
// # Rate Limit Errors (RATE001)
//
//	RATE001 - Too many requests  Patterns: "rate limit"
//
// # Fallback (ERR000)
//
// Any error matching no pattern maps to ERR000. Check the application logs
// for the technical error logged next to the request ID.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. The first match wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	// Sessions
	{
		pattern: "session not found",
		msg: UserMessage{
			Message: "The session has expired or was closed",
			Action:  "Reload the data to start a new session",
			Code:    "SES001",
		},
	},
	{
		pattern: "too many open sessions",
		msg: UserMessage{
			Message: "The server is holding too many sessions",
			Action:  "Close unused sessions or try again later",
			Code:    "SES002",
		},
	},

	// Queries
	{
		pattern: "unknown query",
		msg: UserMessage{
			Message: "The requested query does not exist",
			Action:  "Pick a query from the list",
			Code:    "QRY001",
		},
	},
	{
		pattern: "too many concurrent query loads",
		msg: UserMessage{
			Message: "Too many queries are loading right now",
			Action:  "Please try again in a few moments",
			Code:    "QRY002",
		},
	},
	{
		pattern: "no database configured",
		msg: UserMessage{
			Message: "Query data is not available on this server",
			Action:  "Open a session from records or a CSV file instead",
			Code:    "QRY003",
		},
	},

	// Operations. Formula and column problems are more specific than the
	// generic validation message they are embedded in.
	{
		pattern: "invalid formula",
		msg: UserMessage{
			Message: "The formula could not be parsed",
			Action:  "Use column names, numbers, + - * / and parentheses",
			Code:    "OP002",
		},
	},
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "The column is not in the current data",
			Action:  "Pick a column from the current schema",
			Code:    "OP003",
		},
	},
	{
		pattern: " operation: ",
		msg: UserMessage{
			Message: "The operation is not valid for this data",
			Action:  "Check the operation fields and try again",
			Code:    "OP001",
		},
	},

	// Saved configs
	{
		pattern: "saved config not found",
		msg: UserMessage{
			Message: "The saved config does not exist",
			Action:  "Refresh the saved config list",
			Code:    "CFG001",
		},
	},
	{
		pattern: "config name is required",
		msg: UserMessage{
			Message: "A config name is required",
			Action:  "Enter a name for the config",
			Code:    "CFG002",
		},
	},
	{
		pattern: "parse config",
		msg: UserMessage{
			Message: "The config could not be read",
			Action:  "Export a config from a session and try again",
			Code:    "CFG003",
		},
	},
	{
		pattern: "parse yaml config",
		msg: UserMessage{
			Message: "The config could not be read",
			Action:  "Export a config from a session and try again",
			Code:    "CFG003",
		},
	},

	// Requests
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file is empty",
			Action:  "Upload a CSV file with a header row",
			Code:    "REQ001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "The file is not a valid CSV",
			Action:  "Ensure the file is comma-separated with quoted fields closed",
			Code:    "REQ002",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The upload exceeds the maximum size",
			Action:  "Split the file into smaller parts",
			Code:    "REQ003",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The upload exceeds the maximum size",
			Action:  "Split the file into smaller parts",
			Code:    "REQ003",
		},
	},
	{
		pattern: "decode records",
		msg: UserMessage{
			Message: "The request payload is not valid",
			Action:  "Send records as an array of flat JSON objects",
			Code:    "REQ004",
		},
	},
	{
		pattern: "request body",
		msg: UserMessage{
			Message: "The request payload is not valid",
			Action:  "Check the JSON body and try again",
			Code:    "REQ004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The request took too long",
			Action:  "Try a smaller dataset or try again later",
			Code:    "REQ005",
		},
	},

	// Database
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A config with this name already exists for this query",
			Action:  "Choose a different name",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "canceling statement",
		msg: UserMessage{
			Message: "The query was cancelled by the database",
			Action:  "Try again later or ask for the query to be optimized",
			Code:    "DB003",
		},
	},

	// Rate limiting
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches the known patterns (case-insensitive) and returns the first
// match, or the ERR000 fallback.
//
// Example:
//
//	msg := MapError(fmt.Errorf("%w: abc", ErrSessionNotFound))
//	// msg.Code == "SES001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
