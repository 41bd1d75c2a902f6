// Package application ties the record store, query engine, record source,
// uploader and export runner into the operations the UI and CLI call.
package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/JonMunkholm/dataflow/internal/client"
	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/export"
	"github.com/JonMunkholm/dataflow/internal/logging"
	"github.com/JonMunkholm/dataflow/internal/source"
	"github.com/JonMunkholm/dataflow/internal/state"
)

// DefaultRedirectDelay is how long an upload success message shows before
// the data view.
const DefaultRedirectDelay = time.Second

// DefaultDropDebounce is the quiet period before a dropped file is uploaded.
const DefaultDropDebounce = 500 * time.Millisecond

// Uploader submits a validated file to the backend.
type Uploader interface {
	Upload(ctx context.Context, candidate core.UploadCandidate, r io.Reader) (client.UploadResult, error)
}

// SnapshotStore persists the last fetched payload per schema.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, schema string, payload []byte, count int) error
	LoadSnapshot(ctx context.Context, schema string) (state.Snapshot, bool, error)
}

// Options configures a Service.
type Options struct {
	Schema        *core.Schema
	Locale        language.Tag
	Policy        core.UploadPolicy
	RedirectDelay time.Duration
	DropDebounce  time.Duration
	Export        export.Options
	MaxExports    int
	ExportWait    time.Duration
}

// Deps are the collaborators a Service drives. Snapshots may be nil.
type Deps struct {
	Source    source.Source
	Uploader  Uploader
	Snapshots SnapshotStore
	Sink      export.Sink
}

// Service provides the application operations over one schema.
type Service struct {
	schema    *core.Schema
	store     *core.RecordStore
	engine    *core.QueryEngine
	source    source.Source
	uploader  Uploader
	snapshots SnapshotStore
	runner    *export.Runner
	exportOpt export.Options
	policy    core.UploadPolicy

	redirectDelay time.Duration
	dropDebounce  time.Duration

	// Background work (post-upload refreshes, drop-folder uploads) runs
	// under ctx and is awaited by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool // set by Close; no background work starts after it
}

// New creates a Service. The store starts empty; call Seed and Refresh to
// populate it.
func New(opts Options, deps Deps) (*Service, error) {
	if opts.Schema == nil {
		return nil, fmt.Errorf("new service: %w", core.ErrUnknownSchema)
	}
	if deps.Source == nil {
		return nil, errors.New("new service: record source is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("new service: export sink is required")
	}
	if len(opts.Policy.AllowedExtensions) == 0 {
		opts.Policy = core.DefaultUploadPolicy()
	}
	if opts.RedirectDelay < 0 {
		opts.RedirectDelay = DefaultRedirectDelay
	}
	if opts.DropDebounce <= 0 {
		opts.DropDebounce = DefaultDropDebounce
	}
	if opts.Locale == language.Und {
		opts.Locale = language.English
	}

	ctx, cancel := context.WithCancel(context.Background())
	limiter := export.NewLimiter(opts.MaxExports, opts.ExportWait)

	return &Service{
		schema:        opts.Schema,
		store:         core.NewRecordStore(),
		engine:        core.NewQueryEngine(opts.Locale),
		source:        deps.Source,
		uploader:      deps.Uploader,
		snapshots:     deps.Snapshots,
		runner:        export.NewRunner(deps.Sink, limiter, opts.Export),
		exportOpt:     opts.Export,
		policy:        opts.Policy,
		redirectDelay: opts.RedirectDelay,
		dropDebounce:  opts.DropDebounce,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Close cancels background work and waits for it to stop.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// Schema returns the schema the service presents.
func (s *Service) Schema() *core.Schema {
	return s.schema
}

// Policy returns the upload policy.
func (s *Service) Policy() core.UploadPolicy {
	return s.policy
}

// Status returns the store's loading and error state.
func (s *Service) Status() core.StoreStatus {
	return s.store.Status()
}

// Records returns the full unfiltered record set.
func (s *Service) Records() []core.Record {
	return s.store.All()
}

// View filters, sorts and aggregates the current records.
func (s *Service) View(state core.ViewState) (core.View, error) {
	return s.engine.View(s.store.All(), s.schema, state)
}

// ErrNoRecord is returned when a detail index is outside the view.
var ErrNoRecord = errors.New("record not found")

// Detail returns the record at index within the view for state.
func (s *Service) Detail(state core.ViewState, index int) (core.Record, error) {
	v, err := s.View(state)
	if err != nil {
		return core.Record{}, err
	}
	if index < 0 || index >= len(v.Records) {
		return core.Record{}, ErrNoRecord
	}
	return v.Records[index], nil
}

// Seed loads the last snapshot into the store so a restart shows the
// previous data until the first refresh completes.
// Returns false when there is no snapshot.
func (s *Service) Seed(ctx context.Context) (bool, error) {
	if s.snapshots == nil {
		return false, nil
	}

	snap, ok, err := s.snapshots.LoadSnapshot(ctx, s.schema.Name)
	if err != nil || !ok {
		return false, err
	}

	objs, err := decodePayload(snap.Payload)
	if err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}

	s.store.Refresh(s.schema.DecodeRecords(objs))
	logging.FromContext(ctx).Info("store seeded from snapshot",
		"schema", s.schema.Name,
		"records", len(objs),
		"fetched_at", snap.FetchedAt,
	)
	return true, nil
}

// Refresh fetches the full record set and replaces the store contents.
// A result superseded by a newer refresh is dropped.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()
	ticket := s.store.Begin()
	logger := logging.WithFields(ctx,
		"schema", s.schema.Name,
		"source", s.source.Name(),
		"ticket", ticket,
	)

	objs, err := s.source.Fetch(ctx)
	if err != nil {
		if s.store.Fail(ticket, err) {
			logger.Warn("refresh failed", "error", err)
		}
		return fmt.Errorf("refresh: %w", err)
	}

	records := s.schema.DecodeRecords(objs)
	if !s.store.Commit(ticket, records) {
		logger.Info("refresh superseded, result dropped", "records", len(records))
		return nil
	}

	logger.Info("refresh complete",
		"records", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.saveSnapshot(ctx, objs)
	return nil
}

func (s *Service) saveSnapshot(ctx context.Context, objs []map[string]any) {
	if s.snapshots == nil {
		return
	}
	payload, err := json.Marshal(objs)
	if err == nil {
		err = s.snapshots.SaveSnapshot(ctx, s.schema.Name, payload, len(objs))
	}
	if err != nil {
		logging.FromContext(ctx).Warn("snapshot not saved", "schema", s.schema.Name, "error", err)
	}
}

func decodePayload(payload []byte) ([]map[string]any, error) {
	var objs []map[string]any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&objs); err != nil {
		return nil, err
	}
	return objs, nil
}

// background runs fn on its own goroutine after delay, tracked by Close.
// It reports false, and does nothing, once Close has been called.
func (s *Service) background(delay time.Duration, fn func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-s.ctx.Done():
				return
			}
		}
		fn(s.ctx)
	}()
	return true
}
