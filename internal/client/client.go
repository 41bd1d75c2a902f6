// Package client talks to the collaborator backend that stores uploaded rows.
//
// Every request carries the session's bearer token and a fresh request ID.
// A 401 from any endpoint except login is handled globally: the session
// context's OnUnauthorized hook runs and the call returns *core.AuthError.
// Nothing is retried; each failure is terminal for that attempt.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataflow/internal/core"
)

const (
	recordsPath = "/api/data"
	uploadPath  = "/api/upload"
	loginPath   = "/api/auth/login"

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4 << 10
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// TokenProvider supplies the current bearer token, or "" when signed out.
type TokenProvider interface {
	Token() string
}

// SessionContext connects the client to the session owner.
type SessionContext struct {
	Tokens         TokenProvider
	OnUnauthorized func()
}

// Client is an HTTP client for the collaborator API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session SessionContext
}

// New creates a client for the backend at baseURL.
func New(baseURL string, timeout time.Duration, session SessionContext) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
		session: session,
	}, nil
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	if c.session.Tokens != nil {
		if tok := c.session.Tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// do sends req and maps failures to the core error taxonomy.
// On success the caller owns the response body.
func (c *Client) do(req *http.Request, op string, interceptAuth bool) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && interceptAuth {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		if c.session.OnUnauthorized != nil {
			c.session.OnUnauthorized()
		}
		return nil, &core.AuthError{Op: op}
	}

	return nil, &core.NetworkError{
		Op:     op,
		Status: resp.StatusCode,
		Detail: errorDetail(resp.Body),
	}
}

// errorDetail extracts a message from a JSON error body such as
// {"error": "..."} or {"message": "..."}; plain text bodies are returned trimmed.
func errorDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// FetchRecords returns the full record set as decoded JSON objects.
// Numbers are decoded as json.Number so large identifiers keep their precision.
func (c *Client) FetchRecords(ctx context.Context) ([]map[string]any, error) {
	const op = "fetch records"

	req, err := c.newRequest(ctx, http.MethodGet, recordsPath, nil)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	resp, err := c.do(req, op, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, &core.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode records: %w", err)}
	}
	if records == nil {
		records = []map[string]any{}
	}
	return records, nil
}

// LoginResult is the body of a successful login.
type LoginResult struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user"`
}

// ErrNoToken is returned when the login response carries no token.
var ErrNoToken = errors.New("login response has no token")

// Login exchanges credentials for a token. A 401 here means bad credentials,
// so it is returned as a NetworkError and does not trigger OnUnauthorized.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const op = "login"

	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return LoginResult{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, loginPath, bytes.NewReader(body))
	if err != nil {
		return LoginResult{}, &core.NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req, op, false)
	if err != nil {
		return LoginResult{}, err
	}
	defer resp.Body.Close()

	var result LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return LoginResult{}, &core.NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode login response: %w", err)}
	}
	if result.Token == "" {
		return LoginResult{}, ErrNoToken
	}
	return result, nil
}
