// Package web serves the local browser UI over the application service.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/dataflow/internal/application"
	"github.com/JonMunkholm/dataflow/internal/client"
	"github.com/JonMunkholm/dataflow/internal/config"
	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/export"
	"github.com/JonMunkholm/dataflow/internal/logging"
	mw "github.com/JonMunkholm/dataflow/internal/web/middleware"
)

// Service is the application surface the UI drives.
type Service interface {
	Schema() *core.Schema
	Policy() core.UploadPolicy
	Status() core.StoreStatus
	View(state core.ViewState) (core.View, error)
	Detail(state core.ViewState, index int) (core.Record, error)
	Refresh(ctx context.Context) error
	Upload(ctx context.Context, candidate core.UploadCandidate, r io.Reader) (application.UploadResult, error)
	Encode(ctx context.Context, f export.Format) ([]byte, error)
	ExportStatus() export.LimiterStatus
}

// Session is the login state.
type Session interface {
	IsAuthenticated() bool
	User() json.RawMessage
	Login(ctx context.Context, token string, user json.RawMessage) error
	Logout(ctx context.Context) error
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (client.LoginResult, error)
}

// Server is the HTTP server for the local UI.
type Server struct {
	service Service
	session Session
	auth    Authenticator
	cfg     *config.Config
	locale  language.Tag
	router  *chi.Mux
	server  *http.Server

	limiters []*rateLimiter
}

// NewServer creates a Server with its middleware and routes.
func NewServer(cfg *config.Config, service Service, session Session, auth Authenticator) *Server {
	locale, err := language.Parse(cfg.Data.Locale)
	if err != nil {
		locale = language.English
	}

	s := &Server{
		service: service,
		session: session,
		auth:    auth,
		cfg:     cfg,
		locale:  locale,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5, "text/html", "application/json"))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/login", s.handleLoginPage)
	s.router.Post("/login", s.handleLogin)

	s.router.Group(func(r chi.Router) {
		r.Use(mw.RequireSession(s.session))

		r.Get("/", s.handleDashboard)
		r.Post("/logout", s.handleLogout)
		r.Post("/refresh", s.handleRefreshPage)
		r.With(s.uploadLimit()).Post("/upload", s.handleUploadPage)

		r.Route("/api", func(r chi.Router) {
			r.Get("/schema", s.handleSchema)
			r.Get("/view", s.handleView)
			r.Get("/records/{index}", s.handleRecord)
			r.Get("/status", s.handleStatus)
			r.Post("/refresh", s.handleRefresh)
			r.With(s.uploadLimit()).Post("/upload", s.handleUpload)
			r.Get("/export/{format}", s.handleExport)
		})
	})
}

// uploadLimit applies the stricter per-IP upload rate.
func (s *Server) uploadLimit() func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return s.newRateLimiter(s.cfg.Rate.UploadLimit, time.Minute).middleware
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, l := range s.limiters {
		l.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				// Pages are server-rendered with one inline stylesheet and no scripts.
				h.Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rateLimiter is a fixed-window request limiter per client IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int
	window   time.Duration
	done     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func (s *Server) newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		done:     make(chan struct{}),
	}
	s.limiters = append(s.limiters, rl)
	go rl.cleanup()
	return rl
}

// cleanup drops visitors idle for two windows until stop is called.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if now.Sub(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}

// allow consumes a token for ip if one is left in the current window.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			logging.FromContext(r.Context()).Warn("rate limit exceeded", "ip", clientIP(r))
			w.Header().Set("Retry-After", "60")
			respondErrorJSON(w, core.MapError(errRateLimited), http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
