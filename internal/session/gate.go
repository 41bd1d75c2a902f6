// Package session gates access to the data views on a persisted
// authentication token.
//
// The Gate is the single owner of the token. The network layer reads it for
// every request and reports 401 responses back through Unauthorized, which
// clears the persisted session and sends the user to the login boundary.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/JonMunkholm/dataflow/internal/state"
)

// Store persists the session between runs.
type Store interface {
	SaveSession(ctx context.Context, token string, user json.RawMessage) error
	LoadSession(ctx context.Context) (state.Session, bool, error)
	ClearSession(ctx context.Context) error
}

// Gate answers whether the user is authenticated.
type Gate struct {
	store Store

	mu     sync.RWMutex
	token  string
	user   json.RawMessage
	onExit []func()
}

// New creates a gate and restores any persisted session.
func New(ctx context.Context, store Store) (*Gate, error) {
	g := &Gate{store: store}

	s, ok, err := store.LoadSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if ok {
		g.token = s.Token
		g.user = s.User
	}
	return g, nil
}

// OnUnauthorized registers fn to run after the session is cleared because
// the backend rejected it. Used to redirect to the login boundary.
func (g *Gate) OnUnauthorized(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onExit = append(g.onExit, fn)
}

// IsAuthenticated reports whether a token is present.
func (g *Gate) IsAuthenticated() bool {
	return g.Token() != ""
}

// Token returns the current bearer token, or "" when signed out.
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token
}

// User returns the opaque user object stored at login.
func (g *Gate) User() json.RawMessage {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.user
}

// Login persists token and user and makes them current.
func (g *Gate) Login(ctx context.Context, token string, user json.RawMessage) error {
	if token == "" {
		return fmt.Errorf("login: empty token")
	}
	if err := g.store.SaveSession(ctx, token, user); err != nil {
		return err
	}

	g.mu.Lock()
	g.token = token
	g.user = user
	g.mu.Unlock()
	return nil
}

// Logout clears the persisted session.
func (g *Gate) Logout(ctx context.Context) error {
	g.mu.Lock()
	g.token = ""
	g.user = nil
	g.mu.Unlock()

	return g.store.ClearSession(ctx)
}

// Unauthorized handles a 401 from the backend: the session is cleared and
// the registered callbacks run. Safe to call from any goroutine.
func (g *Gate) Unauthorized() {
	if err := g.Logout(context.Background()); err != nil {
		slog.Warn("failed to clear rejected session", "error", err)
	}

	g.mu.RLock()
	callbacks := append([]func(){}, g.onExit...)
	g.mu.RUnlock()

	for _, fn := range callbacks {
		fn()
	}
}
