package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/dataflow/internal/application"
	"github.com/JonMunkholm/dataflow/internal/client"
	"github.com/JonMunkholm/dataflow/internal/config"
	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/core/schemas"
)

type stubSource struct {
	objs []map[string]any
	err  error
}

func (s *stubSource) Fetch(context.Context) ([]map[string]any, error) { return s.objs, s.err }
func (s *stubSource) Name() string                                    { return "stub" }

type stubUploader struct {
	mu    sync.Mutex
	names []string
}

func (u *stubUploader) Upload(_ context.Context, c core.UploadCandidate, r io.Reader) (client.UploadResult, error) {
	io.Copy(io.Discard, r)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.names = append(u.names, c.Filename)
	return client.UploadResult{Message: "File uploaded successfully"}, nil
}

type nullSink struct{}

func (nullSink) Save(_ context.Context, name string, _ []byte) (string, error) { return name, nil }

// memSession is an in-memory login state.
type memSession struct {
	mu    sync.Mutex
	token string
	user  json.RawMessage
}

func (m *memSession) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != ""
}

func (m *memSession) User() json.RawMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

func (m *memSession) Login(_ context.Context, token string, user json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = token, user
	return nil
}

func (m *memSession) Logout(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = "", nil
	return nil
}

type stubAuth struct {
	err error
}

func (a stubAuth) Login(_ context.Context, email, _ string) (client.LoginResult, error) {
	if a.err != nil {
		return client.LoginResult{}, a.err
	}
	return client.LoginResult{Token: "tok", User: json.RawMessage(`{"email":"` + email + `"}`)}, nil
}

const catalogPayload = `[
	{"id": 1, "work_title": "Blue Moon", "singer_name": "Ana", "category": "Pop", "views": 100, "release_date": "2021-03-01"},
	{"id": 2, "work_title": "Red River", "singer_name": "Bo", "category": "Folk", "views": 250},
	{"id": 3, "work_title": "Green <Field>", "singer_name": "Ana Maria", "category": "Pop", "views": null}
]`

type harness struct {
	server   *Server
	session  *memSession
	source   *stubSource
	uploader *stubUploader
	svc      *application.Service
}

func newHarness(t *testing.T, authed bool, auth Authenticator) *harness {
	t.Helper()

	var objs []map[string]any
	dec := json.NewDecoder(strings.NewReader(catalogPayload))
	dec.UseNumber()
	if err := dec.Decode(&objs); err != nil {
		t.Fatal(err)
	}

	schema := schemas.Catalog()
	h := &harness{
		session:  &memSession{},
		source:   &stubSource{objs: objs},
		uploader: &stubUploader{},
	}
	if authed {
		h.session.Login(context.Background(), "tok", json.RawMessage(`{"email":"ana@example.com"}`))
	}

	svc, err := application.New(application.Options{
		Schema:        &schema,
		RedirectDelay: time.Second,
	}, application.Deps{Source: h.source, Uploader: h.uploader, Sink: nullSink{}})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Close)
	h.svc = svc

	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 10 * time.Second
	cfg.Data.Locale = "en"
	cfg.Security.EnableCSP = true

	if auth == nil {
		auth = stubAuth{}
	}
	h.server = NewServer(cfg, svc, h.session, auth)
	t.Cleanup(func() { h.server.Shutdown(context.Background()) })
	return h
}

func (h *harness) refresh(t *testing.T) {
	t.Helper()
	if err := h.svc.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRequiresSession(t *testing.T) {
	h := newHarness(t, false, nil)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("GET / = %d %q, want redirect to /login", rec.Code, rec.Header().Get("Location"))
	}

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/view", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/view = %d, want 401", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	h := newHarness(t, false, nil)

	form := url.Values{"email": {"ana@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := h.do(req)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("POST /login = %d %q, want redirect to /", rec.Code, rec.Header().Get("Location"))
	}
	if !h.session.IsAuthenticated() {
		t.Error("session not established after login")
	}

	// Already signed in: the login page bounces to the data view.
	rec = h.do(httptest.NewRequest(http.MethodGet, "/login", nil))
	if rec.Code != http.StatusSeeOther {
		t.Errorf("GET /login while authenticated = %d, want 303", rec.Code)
	}
}

func TestLogin_Rejected(t *testing.T) {
	auth := stubAuth{err: &core.NetworkError{Op: "login", Status: http.StatusUnauthorized, Detail: "Invalid credentials"}}
	h := newHarness(t, false, auth)

	form := url.Values{"email": {"ana@example.com"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := h.do(req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Errorf("body does not surface the backend error: %s", rec.Body.String())
	}
	if h.session.IsAuthenticated() {
		t.Error("session established after rejected login")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	h := newHarness(t, false, nil)
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=a%40b.c"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if rec := h.do(req); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t, true, nil)
	rec := h.do(httptest.NewRequest(http.MethodPost, "/logout", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("POST /logout = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if h.session.IsAuthenticated() {
		t.Error("session still active after logout")
	}
}

func TestAPIView(t *testing.T) {
	h := newHarness(t, true, nil)
	h.refresh(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/view?q=ana&sort=views&dir=desc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Records []map[string]any `json:"records"`
		Stats   struct {
			Count   int     `json:"count"`
			Sum     float64 `json:"sum"`
			Average float64 `json:"average"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(body.Records))
	}
	if body.Records[0]["work_title"] != "Blue Moon" {
		t.Errorf("first record = %v, want Blue Moon (absent views last)", body.Records[0]["work_title"])
	}
	if body.Stats.Count != 2 || body.Stats.Sum != 100 || body.Stats.Average != 50 {
		t.Errorf("stats = %+v", body.Stats)
	}
}

func TestAPIView_UnknownSortField(t *testing.T) {
	h := newHarness(t, true, nil)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/view?sort=bogus", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	var resp ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != "VIEW001" {
		t.Errorf("code = %q, want VIEW001", resp.Code)
	}
}

func TestAPIRecord(t *testing.T) {
	h := newHarness(t, true, nil)
	h.refresh(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/records/1?sort=id&dir=asc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Fields []struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		} `json:"fields"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Fields) == 0 || body.Fields[0].Key != "work_title" || body.Fields[0].Value != "Red River" {
		t.Errorf("first detail field = %+v, want work_title Red River", body.Fields)
	}

	for _, path := range []string{"/api/records/9", "/api/records/-1", "/api/records/x"} {
		if rec := h.do(httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
}

func TestAPIExport(t *testing.T) {
	h := newHarness(t, true, nil)

	// Nothing loaded yet: no file.
	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/export/xlsx", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("empty export status = %d, want 204", rec.Code)
	}

	h.refresh(t)
	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/export/pdf?q=nomatch", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "music_catalog.pdf") {
		t.Errorf("Content-Disposition = %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}

	if rec := h.do(httptest.NewRequest(http.MethodGet, "/api/export/csv", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("unknown format status = %d, want 404", rec.Code)
	}
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte(content))
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestAPIUpload(t *testing.T) {
	h := newHarness(t, true, nil)

	body, ct := multipartBody(t, "catalog.csv", "id,title\n1,Song\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)

	rec := h.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res application.UploadResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Message != "File uploaded successfully" || res.Redirect != "/" || res.DelayMS != 1000 {
		t.Errorf("result = %+v", res)
	}
}

func TestAPIUpload_Rejections(t *testing.T) {
	h := newHarness(t, true, nil)

	body, ct := multipartBody(t, "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	if rec := h.do(req); rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("txt upload status = %d, want 415", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	if rec := h.do(req); rec.Code != http.StatusBadRequest {
		t.Errorf("missing file status = %d, want 400", rec.Code)
	}

	if len(h.uploader.names) != 0 {
		t.Errorf("rejected uploads reached the backend: %v", h.uploader.names)
	}
}

func TestAPIUpload_TypeCheckedBeforeSize(t *testing.T) {
	oversized := strings.Repeat("x", int(core.DefaultMaxUploadSize)+2<<20)

	tests := []struct {
		name       string
		filename   string
		wantStatus int
	}{
		{"oversized wrong type", "notes.txt", http.StatusUnsupportedMediaType},
		{"oversized allowed type", "catalog.csv", http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, true, nil)

			body, ct := multipartBody(t, tt.filename, oversized)
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", ct)
			rec := h.do(req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if len(h.uploader.names) != 0 {
				t.Errorf("rejected upload reached the backend: %v", h.uploader.names)
			}
		})
	}
}

func TestReadUpload_RejectionNamesFile(t *testing.T) {
	policy := core.DefaultUploadPolicy()
	policy.MaxSizeBytes = 8

	tests := []struct {
		name       string
		filename   string
		content    string
		wantReason core.RejectReason
		wantSize   int64
	}{
		{"wrong type", "notes.txt", "hi", core.UnsupportedType, 0},
		{"too large", "catalog.csv", "0123456789abc", core.TooLarge, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, tt.filename, tt.content)
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", ct)

			_, _, err := readUpload(httptest.NewRecorder(), req, policy)
			ve, ok := core.IsRejected(err)
			if !ok {
				t.Fatalf("readUpload() error = %v, want ValidationError", err)
			}
			if ve.Reason != tt.wantReason {
				t.Errorf("Reason = %v, want %v", ve.Reason, tt.wantReason)
			}
			if ve.Filename != tt.filename {
				t.Errorf("Filename = %q, want %q", ve.Filename, tt.filename)
			}
			if ve.Size != tt.wantSize {
				t.Errorf("Size = %d, want %d", ve.Size, tt.wantSize)
			}
		})
	}
}

func TestReadUpload_Accepted(t *testing.T) {
	body, ct := multipartBody(t, "catalog.csv", "id\n1\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)

	candidate, file, err := readUpload(httptest.NewRecorder(), req, core.DefaultUploadPolicy())
	if err != nil {
		t.Fatalf("readUpload() error = %v", err)
	}
	defer file.Close()

	data, _ := io.ReadAll(file)
	if string(data) != "id\n1\n" {
		t.Errorf("content = %q", data)
	}
	if candidate.Filename != "catalog.csv" || candidate.SizeBytes != 5 {
		t.Errorf("candidate = %+v", candidate)
	}
}

func TestUploadPage_RedirectsAfterDelay(t *testing.T) {
	h := newHarness(t, true, nil)

	body, ct := multipartBody(t, "catalog.xlsx", "binary")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)

	rec := h.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `content="1;url=/"`) {
		t.Errorf("page does not redirect after 1s: %s", rec.Body.String())
	}
}

func TestDashboard(t *testing.T) {
	h := newHarness(t, true, nil)
	h.refresh(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/?selected=0", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	page := rec.Body.String()

	for _, want := range []string{
		"Total Records", "Total Views", "350", "117",
		"Green &lt;Field&gt;",
		"/api/export/xlsx",
		"ana@example.com",
		`class="selected"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	if strings.Contains(page, "<Field>") {
		t.Error("record text is not escaped")
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "script-src 'none'") {
		t.Errorf("CSP = %q", csp)
	}
}

func TestDashboard_UnknownSortFallsBack(t *testing.T) {
	h := newHarness(t, true, nil)
	h.refresh(t)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/?sort=bogus", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "VIEW001") {
		t.Error("dashboard does not report the unknown sort field")
	}
}

func TestAPIStatus_ReportsRefreshError(t *testing.T) {
	h := newHarness(t, true, nil)
	h.source.err = &core.NetworkError{Op: "fetch records", Status: 503}

	rec := h.do(httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("refresh status = %d, want 502", rec.Code)
	}

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var st statusJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Error == nil || st.Error.Code != "NET003" {
		t.Errorf("status error = %+v, want NET003", st.Error)
	}
	if st.Exports.MaxConcurrent != 2 {
		t.Errorf("exports = %+v", st.Exports)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&core.ValidationError{Reason: core.TooLarge}, http.StatusRequestEntityTooLarge},
		{&core.ValidationError{Reason: core.UnsupportedType}, http.StatusUnsupportedMediaType},
		{&core.AuthError{Op: "fetch"}, http.StatusUnauthorized},
		{core.ErrNoFile, http.StatusBadRequest},
		{core.ErrUnknownFormat, http.StatusNotFound},
		{&core.NetworkError{Op: "fetch", Status: 500}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	s := &Server{}
	rl := s.newRateLimiter(2, time.Minute)
	defer rl.stop()

	if !rl.allow("1.1.1.1") || !rl.allow("1.1.1.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("1.1.1.1") {
		t.Error("third request should be limited")
	}
	if !rl.allow("2.2.2.2") {
		t.Error("other IPs have their own budget")
	}
}
