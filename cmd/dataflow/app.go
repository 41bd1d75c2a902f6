package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"

	"github.com/JonMunkholm/dataflow/internal/application"
	"github.com/JonMunkholm/dataflow/internal/client"
	"github.com/JonMunkholm/dataflow/internal/config"
	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/export"
	"github.com/JonMunkholm/dataflow/internal/session"
	"github.com/JonMunkholm/dataflow/internal/source"
	"github.com/JonMunkholm/dataflow/internal/state"
)

// app holds the wired collaborators for one command run.
type app struct {
	cfg    *config.Config
	db     *state.DB
	gate   *session.Gate
	client *client.Client
	svc    *application.Service
	closer func()
}

// open wires state, session, client, source and service.
func open(ctx context.Context, cfg *config.Config) (*app, error) {
	db, err := state.Open(cfg.Session.StatePath)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}

	gate, err := session.New(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	c, err := client.New(cfg.Backend.URL, cfg.Backend.Timeout, client.SessionContext{
		Tokens:         gate,
		OnUnauthorized: gate.Unauthorized,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &app{cfg: cfg, db: db, gate: gate, client: c, closer: func() {}}

	var src source.Source = source.NewHTTP(c)
	if strings.EqualFold(cfg.Backend.Source, "postgres") {
		pg, err := source.NewPostgres(ctx, source.PostgresConfig{
			URL:     cfg.Backend.DatabaseURL,
			Table:   cfg.Backend.Table,
			OrderBy: cfg.Backend.OrderBy,
			MaxConn: int32(cfg.Backend.MaxConns),
			Timeout: cfg.Backend.Timeout,
		})
		if err != nil {
			db.Close()
			return nil, err
		}
		src = pg
		a.closer = pg.Close
	}

	schema, err := core.Lookup(cfg.Data.Schema)
	if err != nil {
		a.Close()
		return nil, err
	}

	svc, err := application.New(application.Options{
		Schema:        schema,
		Locale:        language.Make(cfg.Data.Locale),
		Policy:        cfg.Upload.Policy(),
		RedirectDelay: cfg.Upload.RedirectDelay,
		DropDebounce:  cfg.Upload.DropDebounce,
		Export: export.Options{
			DateLayout: cfg.Export.DateLayout,
			Optimize:   cfg.Export.Optimize,
		},
		MaxExports: cfg.Export.MaxConcurrent,
		ExportWait: cfg.Export.MaxWaitTime,
	}, application.Deps{
		Source:    src,
		Uploader:  c,
		Snapshots: db,
		Sink:      export.DirSink{Dir: cfg.Export.OutputDir},
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc

	slog.Debug("application wired",
		"schema", schema.Name,
		"source", src.Name(),
		"authenticated", gate.IsAuthenticated(),
	)
	return a, nil
}

// Close releases everything open opened.
func (a *app) Close() {
	if a.svc != nil {
		a.svc.Close()
	}
	a.closer()
	if err := a.db.Close(); err != nil {
		slog.Warn("close state", "error", err)
	}
}

// requireSession fails fast when no one is signed in.
func (a *app) requireSession() error {
	if !a.gate.IsAuthenticated() {
		return &core.AuthError{Op: "session"}
	}
	return nil
}

// load seeds from the snapshot, then refreshes. A failed refresh keeps the
// snapshot data and is returned.
func (a *app) load(ctx context.Context) error {
	if _, err := a.svc.Seed(ctx); err != nil {
		slog.Warn("snapshot not loaded", "error", err)
	}
	return a.svc.Refresh(ctx)
}
