package core

// error_messages.go maps technical errors to user-facing messages.
// The code catalog is listed in doc.go.

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgTooLarge = UserMessage{
		Message: "File size exceeds the upload limit",
		Action:  "Choose a smaller file or split it into parts",
		Code:    "FILE001",
	}
	msgUnsupportedType = UserMessage{
		Message: "File type is not supported",
		Action:  "Please select a CSV, XLSX, XLS, or ODS file",
		Code:    "FILE002",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a file to upload",
		Code:    "FILE003",
	}
	msgServerError = UserMessage{
		Message: "The server failed to process the request",
		Action:  "Please try again in a few moments",
		Code:    "NET003",
	}
	msgRequestRejected = UserMessage{
		Message: "The server rejected the request",
		Action:  "Check the file contents and try again",
		Code:    "NET004",
	}
	msgSessionExpired = UserMessage{
		Message: "Your session has expired",
		Action:  "Please sign in again",
		Code:    "AUTH001",
	}
	msgNothingToExport = UserMessage{
		Message: "There are no records to export",
		Action:  "Upload a file or refresh the data first",
		Code:    "EXP001",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Typed errors are resolved first in MapError; patterns cover wrapped or
// foreign errors whose type was lost. First match wins, so order matters.
var errorPatterns = []errorPattern{
	{pattern: "file too large", msg: msgTooLarge},
	{pattern: "request body too large", msg: msgTooLarge},
	{pattern: "unsupported file type", msg: msgUnsupportedType},
	{pattern: "no file provided", msg: msgNoFile},
	{pattern: "unauthorized", msg: msgSessionExpired},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the server",
			Action:  "Check your connection and try again",
			Code:    "NET001",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "The server took too long to respond",
			Action:  "Please try again",
			Code:    "NET002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "The server took too long to respond",
			Action:  "Please try again",
			Code:    "NET002",
		},
	},
	{pattern: "nothing to export", msg: msgNothingToExport},
	{
		pattern: "unknown export format",
		msg: UserMessage{
			Message: "The export format is not supported",
			Action:  "Choose Excel (xlsx) or PDF",
			Code:    "EXP002",
		},
	},
	{
		pattern: "unknown sort field",
		msg: UserMessage{
			Message: "This column cannot be sorted",
			Action:  "Choose a different column",
			Code:    "VIEW001",
		},
	},
	{
		pattern: "unknown schema",
		msg: UserMessage{
			Message: "The record schema is not configured",
			Action:  "Check the DATAFLOW_SCHEMA setting",
			Code:    "VIEW002",
		},
	},
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
// Support staff should check application logs for the original technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors from this package are mapped by type; anything else is
// matched against known patterns (case-insensitive). If nothing matches,
// a generic fallback message with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if ve, ok := IsRejected(err); ok {
		if ve.Reason == TooLarge {
			return msgTooLarge
		}
		return msgUnsupportedType
	}
	if IsAuth(err) {
		return msgSessionExpired
	}
	if errors.Is(err, ErrNothingToExport) {
		return msgNothingToExport
	}
	if errors.Is(err, ErrNoFile) {
		return msgNoFile
	}

	var ne *NetworkError
	if errors.As(err, &ne) && ne.Status != 0 {
		if ne.Status == http.StatusRequestEntityTooLarge {
			return msgTooLarge
		}
		if ne.Status >= 500 {
			return msgServerError
		}
		return msgRequestRejected
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

// IsUserFacing checks if an error maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
// The original error is preserved for logging.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
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
