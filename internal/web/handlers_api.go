package web

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/dataflow/internal/application"
	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/export"
)

type fieldJSON struct {
	Key        core.FieldKey `json:"key"`
	Label      string        `json:"label"`
	Kind       string        `json:"kind"`
	Searchable bool          `json:"searchable"`
	Sortable   bool          `json:"sortable"`
}

type statsJSON struct {
	Count   int     `json:"count"`
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
}

type statusJSON struct {
	Loading    bool                 `json:"loading"`
	Count      int                  `json:"count"`
	Generation uint64               `json:"generation"`
	UpdatedAt  *time.Time           `json:"updated_at,omitempty"`
	Error      *ErrorResponse       `json:"error,omitempty"`
	Exports    export.LimiterStatus `json:"exports"`
}

type detailJSON struct {
	Key   core.FieldKey `json:"key"`
	Label string        `json:"label"`
	Value any           `json:"value"`
}

func (s *Server) status() statusJSON {
	st := s.service.Status()
	out := statusJSON{
		Loading:    st.Loading,
		Count:      st.Count,
		Generation: st.Generation,
		Exports:    s.service.ExportStatus(),
	}
	if !st.UpdatedAt.IsZero() {
		at := st.UpdatedAt
		out.UpdatedAt = &at
	}
	if st.Err != nil {
		msg := core.MapError(st.Err)
		out.Error = &ErrorResponse{Error: msg.Message, Action: msg.Action, Code: msg.Code, Detail: networkDetail(st.Err)}
	}
	return out
}

// handleSchema describes the columns, stat labels and upload policy.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema := s.service.Schema()
	fields := make([]fieldJSON, len(schema.Fields))
	for i, f := range schema.Fields {
		fields[i] = fieldJSON{
			Key:        f.Key,
			Label:      f.Label,
			Kind:       f.Kind.String(),
			Searchable: f.Searchable,
			Sortable:   f.Sortable,
		}
	}

	policy := s.service.Policy()
	writeJSON(w, r, http.StatusOK, map[string]any{
		"name":         schema.Name,
		"title":        schema.Title,
		"fields":       fields,
		"default_sort": schema.DefaultSort,
		"labels":       schema.Labels,
		"upload": map[string]any{
			"extensions":     policy.AllowedExtensions,
			"max_size_bytes": policy.MaxSizeBytes,
			"hint":           core.DescribePolicy(policy),
		},
	})
}

// handleView returns the filtered, sorted records and their stats.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	schema := s.service.Schema()
	v, err := s.service.View(parseViewState(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	records := make([]map[string]any, len(v.Records))
	for i, rec := range v.Records {
		obj := make(map[string]any, len(schema.Fields))
		for j, f := range schema.Fields {
			obj[string(f.Key)] = rec.Get(core.FieldRef(j)).Interface()
		}
		records[i] = obj
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"records": records,
		"stats":   statsJSON(v.Stats),
		"labels":  schema.Labels,
		"status":  s.status(),
	})
}

// handleRecord returns the detail fields of one record in the current view.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(chi.URLParam(r, "index"))
	if !ok {
		s.respondError(w, r, fmt.Errorf("record index %q: %w", chi.URLParam(r, "index"), application.ErrNoRecord))
		return
	}

	rec, err := s.service.Detail(parseViewState(r), index)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	schema := s.service.Schema()
	fields := make([]detailJSON, 0, len(schema.Detail))
	for _, key := range schema.DetailKeys() {
		ref, ok := schema.Ref(key)
		if !ok {
			continue
		}
		fields = append(fields, detailJSON{Key: key, Label: schema.Field(ref).Label, Value: rec.Get(ref).Interface()})
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"index": index, "fields": fields})
}

// handleStatus reports loading, errors and export slot usage.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.status())
}

// handleRefresh refetches the record set.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Refresh(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s.status())
}

// handleUpload validates and forwards a multipart upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, r, http.StatusOK, res)
}

// handleExport streams the full record set as a download.
// An empty store answers 204 and produces no file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	data, err := s.service.Encode(r.Context(), f)
	if errors.Is(err, core.ErrNothingToExport) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(s.service.Schema(), f)))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Write(data)
}
