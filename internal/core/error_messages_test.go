package core

import (
	"errors"
	"fmt"
	"testing"
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
			name:        "too large validation error",
			err:         &ValidationError{Reason: TooLarge, Filename: "big.csv", Size: 11, Limit: 10},
			wantCode:    "FILE001",
			wantMessage: "File size exceeds the upload limit",
		},
		{
			name:        "unsupported type validation error",
			err:         fmt.Errorf("upload: %w", &ValidationError{Reason: UnsupportedType, Filename: "notes.txt"}),
			wantCode:    "FILE002",
			wantMessage: "File type is not supported",
		},
		{
			name:        "no file sentinel",
			err:         fmt.Errorf("upload: %w", ErrNoFile),
			wantCode:    "FILE003",
			wantMessage: "No file was selected",
		},
		{
			name:        "auth error",
			err:         &AuthError{Op: "fetch records"},
			wantCode:    "AUTH001",
			wantMessage: "Your session has expired",
		},
		{
			name:        "server error status",
			err:         &NetworkError{Op: "upload", Status: 502},
			wantCode:    "NET003",
			wantMessage: "The server failed to process the request",
		},
		{
			name:        "rejected request status",
			err:         &NetworkError{Op: "upload", Status: 400, Detail: "bad header"},
			wantCode:    "NET004",
			wantMessage: "The server rejected the request",
		},
		{
			name:        "413 maps to too large",
			err:         &NetworkError{Op: "upload", Status: 413},
			wantCode:    "FILE001",
			wantMessage: "File size exceeds the upload limit",
		},
		{
			name:        "connection refused maps correctly",
			err:         &NetworkError{Op: "fetch records", Err: errors.New("dial tcp: connection refused")},
			wantCode:    "NET001",
			wantMessage: "Unable to reach the server",
		},
		{
			name:        "timeout maps correctly",
			err:         errors.New("context deadline exceeded"),
			wantCode:    "NET002",
			wantMessage: "The server took too long to respond",
		},
		{
			name:        "nothing to export",
			err:         fmt.Errorf("export xlsx: %w", ErrNothingToExport),
			wantCode:    "EXP001",
			wantMessage: "There are no records to export",
		},
		{
			name:        "unknown sort field",
			err:         fmt.Errorf("%w: %q", ErrUnknownField, "video_url"),
			wantCode:    "VIEW001",
			wantMessage: "This column cannot be sorted",
		},
		{
			name:        "rate limit maps correctly",
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
			err:         errors.New("UNSUPPORTED FILE TYPE"),
			wantCode:    "FILE002",
			wantMessage: "File type is not supported",
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
	result := FormatUserError(&AuthError{Op: "upload"})

	expected := "Your session has expired (Code: AUTH001). Please sign in again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  ErrNothingToExport,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := &NetworkError{Op: "fetch records", Status: 500}
		userErr := NewUserError(techErr)

		if userErr.Error() != "The server failed to process the request" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		var ne *NetworkError
		if !errors.As(userErr, &ne) {
			t.Error("Unwrap() should return original error")
		}
	})
}
