package web

// errors.go maps errors to status codes and user-facing responses.
//
// Handlers call respondError; the technical error is logged with the request
// ID and the client sees the core.MapError message in JSON for API routes
// or as an alert page otherwise.

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/dataflow/internal/application"
	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/export"
	"github.com/JonMunkholm/dataflow/internal/logging"
	"github.com/JonMunkholm/dataflow/internal/web/templates"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	if ve, ok := core.IsRejected(err); ok {
		if ve.Reason == core.TooLarge {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusUnsupportedMediaType
	}

	var ne *core.NetworkError
	switch {
	case core.IsAuth(err):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNoFile),
		errors.Is(err, core.ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownFormat),
		errors.Is(err, application.ErrNoRecord):
		return http.StatusNotFound
	case errors.Is(err, export.ErrBusy),
		errors.Is(err, application.ErrNoUploader):
		return http.StatusServiceUnavailable
	case errors.As(err, &ne):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the user-facing response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if wantsJSON(r) {
		respondErrorJSON(w, msg, status, networkDetail(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.Layout(s.page(), templates.ErrorAlert(msg.Message, msg.Action, msg.Code)).Render(r.Context(), w)
}

// respondErrorJSON writes a JSON error body.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int, detail ...string) {
	resp := ErrorResponse{Error: msg.Message, Action: msg.Action, Code: msg.Code}
	if len(detail) > 0 {
		resp.Detail = detail[0]
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// networkDetail is the collaborator's own error text, when it sent one.
func networkDetail(err error) string {
	var ne *core.NetworkError
	if errors.As(err, &ne) {
		return ne.Detail
	}
	return ""
}

// wantsJSON reports whether the client expects a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// clientIP is the request address without its port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// writeJSON encodes v as JSON. Encoding errors are logged since headers are
// already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
