package session

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/dataflow/internal/state"
)

func newTestGate(t *testing.T) (*Gate, *state.DB) {
	t.Helper()
	db, err := state.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	g, err := New(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	return g, db
}

func TestGate_LoginLogout(t *testing.T) {
	g, db := newTestGate(t)
	ctx := context.Background()

	if g.IsAuthenticated() {
		t.Fatal("new gate is authenticated")
	}

	user := json.RawMessage(`{"email":"a@example.com"}`)
	if err := g.Login(ctx, "tok", user); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !g.IsAuthenticated() || g.Token() != "tok" {
		t.Errorf("after Login: authenticated %v, token %q", g.IsAuthenticated(), g.Token())
	}
	if string(g.User()) != string(user) {
		t.Errorf("User() = %s, want %s", g.User(), user)
	}

	// A second gate over the same store restores the session.
	restored, err := New(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if restored.Token() != "tok" {
		t.Errorf("restored Token() = %q, want tok", restored.Token())
	}

	if err := g.Logout(ctx); err != nil {
		t.Fatal(err)
	}
	if g.IsAuthenticated() {
		t.Error("authenticated after Logout")
	}
	if _, ok, _ := db.LoadSession(ctx); ok {
		t.Error("session still persisted after Logout")
	}
}

func TestGate_LoginRejectsEmptyToken(t *testing.T) {
	g, _ := newTestGate(t)
	if err := g.Login(context.Background(), "", nil); err == nil {
		t.Error("Login() with empty token succeeded")
	}
}

func TestGate_Unauthorized(t *testing.T) {
	g, db := newTestGate(t)
	ctx := context.Background()
	if err := g.Login(ctx, "tok", nil); err != nil {
		t.Fatal(err)
	}

	redirected := 0
	g.OnUnauthorized(func() { redirected++ })

	g.Unauthorized()

	if g.IsAuthenticated() {
		t.Error("still authenticated after Unauthorized")
	}
	if _, ok, _ := db.LoadSession(ctx); ok {
		t.Error("session still persisted after Unauthorized")
	}
	if redirected != 1 {
		t.Errorf("callback ran %d times, want 1", redirected)
	}
}

// failingStore fails every write.
type failingStore struct{ err error }

func (s failingStore) SaveSession(context.Context, string, json.RawMessage) error { return s.err }
func (s failingStore) LoadSession(context.Context) (state.Session, bool, error) {
	return state.Session{}, false, nil
}
func (s failingStore) ClearSession(context.Context) error { return s.err }

func TestGate_LoginStoreFailure(t *testing.T) {
	boom := errors.New("disk full")
	g, err := New(context.Background(), failingStore{err: boom})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Login(context.Background(), "tok", nil); !errors.Is(err, boom) {
		t.Errorf("Login() error = %v, want %v", err, boom)
	}
	if g.IsAuthenticated() {
		t.Error("authenticated although the session was not persisted")
	}
}
