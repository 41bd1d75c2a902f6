package middleware

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/dataflow/internal/logging"
)

// Authenticator reports whether a session is active.
type Authenticator interface {
	IsAuthenticated() bool
}

// LoginPath is where unauthenticated page requests are sent.
const LoginPath = "/login"

// RequireSession guards routes behind an active session.
// Page requests are redirected to the login page; API requests get a
// 401 JSON body the UI can act on.
func RequireSession(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.IsAuthenticated() {
				next.ServeHTTP(w, r)
				return
			}

			logging.FromContext(r.Context()).Info("session required",
				"path", r.URL.Path,
				"method", r.Method,
			)

			if strings.HasPrefix(r.URL.Path, "/api/") {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"session expired or missing","code":"AUTH001"}`))
				return
			}
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		})
	}
}
