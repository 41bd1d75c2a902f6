package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/text/message"

	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/export"
	"github.com/JonMunkholm/dataflow/internal/logging"
	mw "github.com/JonMunkholm/dataflow/internal/web/middleware"
	"github.com/JonMunkholm/dataflow/internal/web/templates"
)

func (s *Server) page() templates.Page {
	return templates.Page{Title: s.service.Schema().Title, User: s.userLabel()}
}

// userLabel is the signed-in user's email or name, if the backend sent one.
func (s *Server) userLabel() string {
	raw := s.session.User()
	if len(raw) == 0 {
		return ""
	}
	var u struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return ""
	}
	if u.Email != "" {
		return u.Email
	}
	return u.Name
}

func render(w http.ResponseWriter, r *http.Request, status int, p templates.Page, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Layout(p, body).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "error", err)
	}
}

// handleLoginPage shows the sign-in form, or the data view when a session
// is already active.
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.session.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, templates.Page{Title: "Sign in"}, templates.LoginForm(templates.Login{}))
}

// handleLogin exchanges the posted credentials for a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	form := templates.Login{Email: email}
	if email == "" || password == "" {
		form.Error = "Email and password are required."
		render(w, r, http.StatusBadRequest, templates.Page{Title: "Sign in"}, templates.LoginForm(form))
		return
	}

	res, err := s.auth.Login(r.Context(), email, password)
	if err == nil {
		err = s.session.Login(r.Context(), res.Token, res.User)
	}
	if err != nil {
		status := statusFor(err)
		var ne *core.NetworkError
		if errors.As(err, &ne) && ne.Status == http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}

		msg := core.MapError(err)
		form.Error, form.Action, form.Code = msg.Message, msg.Action, msg.Code
		if detail := networkDetail(err); detail != "" {
			form.Error = detail
		}
		logging.FromContext(r.Context()).Warn("login failed", "error", err)
		render(w, r, status, templates.Page{Title: "Sign in"}, templates.LoginForm(form))
		return
	}

	logging.FromContext(r.Context()).Info("login succeeded")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout ends the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Logout(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, mw.LoginPath, http.StatusSeeOther)
}

// handleRefreshPage refetches and returns to the data view. Failures show
// there through the store status.
func (s *Server) handleRefreshPage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Refresh(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("refresh failed", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleUploadPage forwards the file, confirms, then redirects to the data
// view after the configured delay.
func (s *Server) handleUploadPage(w http.ResponseWriter, r *http.Request) {
	candidate, file, err := readUpload(w, r, s.service.Policy())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer file.Close()

	res, err := s.service.Upload(r.Context(), candidate, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	p := s.page()
	p.RefreshURL = res.Redirect
	p.RefreshAfter = res.Delay
	render(w, r, http.StatusOK, p, templates.UploadDone(res.Message))
}

// handleDashboard renders the data view.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	schema := s.service.Schema()
	state := parseViewState(r)
	printer := message.NewPrinter(s.locale)

	d := templates.Dashboard{
		Search:     state.SearchTerm,
		SortField:  string(state.SortField),
		Ascending:  state.SortAscending,
		PolicyHint: core.DescribePolicy(s.service.Policy()),
	}

	view, err := s.service.View(state)
	if errors.Is(err, core.ErrUnknownField) {
		d.Error = alert(err)
		state.SortField = ""
		d.SortField = ""
		view, err = s.service.View(state)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	st := s.service.Status()
	d.Loading = st.Loading
	if !st.UpdatedAt.IsZero() {
		d.UpdatedAt = st.UpdatedAt.Format(time.DateTime)
	}
	if st.Err != nil && d.Error == nil {
		d.Error = alert(st.Err)
	}

	d.Stats = statItems(printer, schema, view.Stats)
	d.Columns, d.Rows = s.table(schema, state, view)

	if sel, ok := indexParam(r.URL.Query().Get("selected")); ok && sel < len(view.Records) {
		d.Rows[sel].Selected = true
		d.Detail = detailItems(schema, view.Records[sel])
	}

	for _, f := range export.Formats {
		d.Exports = append(d.Exports, templates.Item{
			Label: "Export " + strings.ToUpper(string(f)),
			Value: "/api/export/" + string(f),
		})
	}

	render(w, r, http.StatusOK, s.page(), templates.DashboardView(d))
}

func alert(err error) *templates.Alert {
	msg := core.MapError(err)
	a := &templates.Alert{Message: msg.Message, Action: msg.Action, Code: msg.Code}
	if detail := networkDetail(err); detail != "" {
		a.Action = detail
	}
	return a
}

func (s *Server) table(schema *core.Schema, state core.ViewState, view core.View) ([]templates.Column, []templates.Row) {
	current := state.SortField
	if current == "" {
		current = schema.DefaultSort
	}

	var refs []core.FieldRef
	var cols []templates.Column
	for _, key := range schema.TableKeys() {
		ref, ok := schema.Ref(key)
		if !ok {
			continue
		}
		field := schema.Field(ref)
		refs = append(refs, ref)

		col := templates.Column{Label: field.Label}
		if field.Sortable {
			next := core.ViewState{SearchTerm: state.SearchTerm, SortField: current, SortAscending: state.SortAscending}.ToggleSort(key)
			col.SortHref = "/?" + viewQuery(next).Encode()
			if key == current {
				col.Indicator = " ▼"
				if state.SortAscending {
					col.Indicator = " ▲"
				}
			}
		}
		cols = append(cols, col)
	}

	rows := make([]templates.Row, len(view.Records))
	base := viewQuery(state)
	for i, rec := range view.Records {
		cells := make([]string, len(refs))
		for j, ref := range refs {
			cells[j] = rec.Get(ref).String()
		}
		base.Set("selected", strconv.Itoa(i))
		rows[i] = templates.Row{Cells: cells, Href: "/?" + base.Encode()}
	}
	return cols, rows
}

func statItems(p *message.Printer, schema *core.Schema, st core.Stats) []templates.Item {
	items := []templates.Item{{Label: schema.Labels.Count, Value: p.Sprintf("%d", st.Count)}}
	if schema.Summable != "" {
		items = append(items,
			templates.Item{Label: schema.Labels.Sum, Value: formatNumber(p, st.Sum)},
			templates.Item{Label: schema.Labels.Average, Value: formatNumber(p, st.Average)},
		)
	}
	if schema.MaxTracked != "" && schema.Labels.Max != "" {
		items = append(items, templates.Item{Label: schema.Labels.Max, Value: formatNumber(p, st.Max)})
	}
	return items
}

func detailItems(schema *core.Schema, rec core.Record) []templates.Item {
	var items []templates.Item
	for _, key := range schema.DetailKeys() {
		ref, ok := schema.Ref(key)
		if !ok {
			continue
		}
		v := rec.Get(ref).String()
		if v == "" {
			v = "-"
		}
		items = append(items, templates.Item{Label: schema.Field(ref).Label, Value: v})
	}
	return items
}
