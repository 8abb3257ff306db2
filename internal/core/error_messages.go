// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support
// reference. Clients receive the code in every error response body.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - CSV file not found
//	          Action: Check the file path and try again
//	          Kind: file_not_found
//
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Action: Ensure file is comma-separated with consistent quoting
//	          Kind: parse; Patterns: "invalid csv"
//
//	FILE003 - Read error: The CSV file could not be read
//	          Action: Check the file permissions and try again
//	          Kind: read
//
//	FILE004 - No file: No file was provided
//	          Action: Attach a CSV file in the csvFile field
//	          Patterns: "no file provided"
//
//	FILE005 - Not a CSV: Only .csv files are accepted
//	          Action: Upload a file with a .csv extension
//	          Patterns: "not a csv"
//
//	FILE006 - File too large: File exceeds the maximum upload size
//	          Action: Split the file into smaller chunks
//	          Patterns: "file too large", "request body too large"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this ID already exists
//	        Patterns: "duplicate key"
//
//	DB002 - Unique constraint: A duplicate value was found
//	        Patterns: "unique constraint", "violates unique"
//
//	DB003 - Not-null constraint: A required column was empty
//	        Patterns: "violates not-null", "null value in column"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout"
//
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
//	DB008 - Missing table: The users table does not exist
//	        Patterns: "sqlstate 42p01"
//
//	DB000 - Database error: any other database failure
//	        Kind: database
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid JSON: The request body is not valid JSON
//	         Patterns: "invalid json"
//
//	VAL002 - Invalid parameter: A query parameter is out of range
//	         Patterns: "invalid parameter"
//
//	VAL000 - Invalid request: any other validation failure
//	         Kind: validation
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	         Patterns: "context canceled"
//
//	REQ002 - Request timed out
//	         Patterns: "context deadline exceeded"
//
// # Ingest Errors (ING001-ING099)
//
//	ING001 - System busy: Too many ingests in progress
//	         Patterns: "too many concurrent ingests"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Resolution Order
//
// File kinds map straight to their code. Every other error is matched
// against the pattern table (case-insensitive strings.Contains, first match
// wins). Database and validation errors that match no pattern fall back to
// DB000 and VAL000; anything else is ERR000.
//
// # For Support Staff
//
// When a user reports an error code:
//  1. Look up the code in this reference
//  2. Check the associated patterns to understand what triggered it
//  3. Search the logs for the request_id returned in the X-Request-Id header
//  4. If ERR000, the log entry carries the original technical error

package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"error"`            // What happened (user-friendly)
	Action  string `json:"action,omitempty"` // What to do about it
	Code    string `json:"code"`             // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgFileNotFound = UserMessage{
		Message: "CSV file not found",
		Action:  "Check the file path and try again",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure file is comma-separated with consistent quoting",
		Code:    "FILE002",
	}
	msgReadFailed = UserMessage{
		Message: "The CSV file could not be read",
		Action:  "Check the file permissions and try again",
		Code:    "FILE003",
	}
	msgDatabase = UserMessage{
		Message: "A database error occurred",
		Action:  "Please try again; no partial batch was saved",
		Code:    "DB000",
	}
	msgValidation = UserMessage{
		Message: "The request is invalid",
		Action:  "Check the request and try again",
		Code:    "VAL000",
	}
)

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the reference at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "invalid csv",
		msg:     msgInvalidCSV,
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was provided",
			Action:  "Attach a CSV file in the csvFile field",
			Code:    "FILE004",
		},
	},
	{
		pattern: "not a csv",
		msg: UserMessage{
			Message: "Only .csv files are accepted",
			Action:  "Upload a file with a .csv extension",
			Code:    "FILE005",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE006",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Database Constraint Errors (DB001-DB003)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Remove duplicate rows and retry",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check for duplicate entries in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Check for duplicate entries in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates not-null",
		msg: UserMessage{
			Message: "A required column was empty",
			Action:  "Ensure every row has a name and age",
			Code:    "DB003",
		},
	},
	{
		pattern: "null value in column",
		msg: UserMessage{
			Message: "A required column was empty",
			Action:  "Ensure every row has a name and age",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB008)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{
		pattern: "sqlstate 42p01",
		msg: UserMessage{
			Message: "The users table does not exist",
			Action:  "Restart the server so migrations can run",
			Code:    "DB008",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL002)
	// =========================================================================
	{
		pattern: "invalid json",
		msg: UserMessage{
			Message: "The request body is not valid JSON",
			Action:  "Send a flat JSON object of dotted keys",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid parameter",
		msg: UserMessage{
			Message: "A query parameter is invalid",
			Action:  "Use non-negative integers for limit and offset",
			Code:    "VAL002",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ002)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "REQ002",
		},
	},

	// =========================================================================
	// Ingest Errors (ING001)
	// =========================================================================
	{
		pattern: "too many concurrent ingests",
		msg: UserMessage{
			Message: "System is busy processing other files",
			Action:  "Please wait a moment and try again",
			Code:    "ING001",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing else matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	err := E("read csv", KindFileNotFound, "users.csv", fs.ErrNotExist)
//	msg := MapError(err)
//	// msg.Code == "FILE001"
//	// msg.Message == "CSV file not found"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	kind := KindOf(err)
	switch kind {
	case KindFileNotFound:
		return msgFileNotFound
	case KindParse:
		return msgInvalidCSV
	case KindRead:
		return msgReadFailed
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	switch kind {
	case KindDatabase:
		return msgDatabase
	case KindValidation:
		return msgValidation
	}
	return defaultMessage
}

// IsUserFacing reports whether err maps to something more specific than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// The original error is preserved for logging via Unwrap.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

// Error formats the user message as "Message (Code: XXX). Action", e.g.
// "CSV file not found (Code: FILE001). Check the file path and try again".
func (e *UserError) Error() string {
	return fmt.Sprintf("%s (Code: %s). %s", e.User.Message, e.User.Code, e.User.Action)
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
