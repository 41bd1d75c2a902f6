package core

// errors.go defines the error taxonomy of the engine.
//
//   - ValidationError: user-correctable upload rejection, shown inline
//   - NetworkError:    fetch/upload failure, transient status message
//   - AuthError:       401 from the collaborator, forces re-authentication
//   - ErrNothingToExport: empty export input, silently ignored by callers
//
// None of these are retried automatically and none are fatal.

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToExport is returned by the export encoders when the record set
	// is empty. No file is produced; callers should not surface it as a failure.
	ErrNothingToExport = errors.New("nothing to export: record set is empty")

	// ErrUnknownField indicates a sort field that is not a sortable field of the schema.
	ErrUnknownField = errors.New("unknown sort field")

	// ErrUnknownSchema indicates a schema name that is not registered.
	ErrUnknownSchema = errors.New("unknown schema")

	// ErrNoFile indicates an upload was requested without a file.
	ErrNoFile = errors.New("no file provided")

	// ErrUnknownFormat indicates an unsupported export format.
	ErrUnknownFormat = errors.New("unknown export format")
)

// RejectReason explains why an upload candidate was rejected.
type RejectReason string

const (
	UnsupportedType RejectReason = "unsupported_type"
	TooLarge        RejectReason = "too_large"
)

// ValidationError is returned when an upload candidate violates the policy.
type ValidationError struct {
	Reason   RejectReason
	Filename string
	Size     int64
	Limit    int64
	Allowed  []string
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case UnsupportedType:
		return fmt.Sprintf("unsupported file type: %s", e.Filename)
	case TooLarge:
		return fmt.Sprintf("file too large: %s is %d bytes, limit is %d", e.Filename, e.Size, e.Limit)
	default:
		return fmt.Sprintf("invalid upload: %s", e.Filename)
	}
}

// NetworkError wraps a failed request to the collaborator backend.
// Status is zero when the request never produced a response.
type NetworkError struct {
	Op     string // "fetch records", "upload", "login"
	Status int
	Detail string // Error message from the response body, if any
	Err    error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Status != 0 && e.Detail != "":
		return fmt.Sprintf("network error: %s: status %d: %s", e.Op, e.Status, e.Detail)
	case e.Status != 0:
		return fmt.Sprintf("network error: %s: status %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("network error: %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("network error: %s", e.Op)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// AuthError is returned when the collaborator rejects the session (HTTP 401).
// By the time a caller sees it, the persisted session has already been cleared.
type AuthError struct {
	Op string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("unauthorized: %s: session expired or invalid", e.Op)
}

// IsRejected reports whether err is an upload ValidationError and returns it.
func IsRejected(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IsAuth reports whether err is an AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
