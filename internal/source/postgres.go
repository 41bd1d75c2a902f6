package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/dataflow/internal/core"
)

// PostgresConfig describes a read-only table source.
type PostgresConfig struct {
	URL     string
	Table   string // optionally schema-qualified: "public.music_data"
	OrderBy string // column name; empty keeps table order
	MaxConn int32
	Timeout time.Duration
}

// Postgres reads each row of a table as a JSON object via row_to_json.
type Postgres struct {
	pool    *pgxpool.Pool
	query   string
	timeout time.Duration
}

// NewPostgres connects a pool and prepares the select statement.
func NewPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	query, err := buildSelect(cfg.Table, cfg.OrderBy)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConn > 0 {
		poolCfg.MaxConns = cfg.MaxConn
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool, query: query, timeout: cfg.Timeout}, nil
}

// buildSelect returns the row_to_json query with quoted identifiers.
func buildSelect(table, orderBy string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return "", fmt.Errorf("postgres source: table is required")
	}
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("postgres source: invalid table %q", table)
	}
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("postgres source: invalid table %q", table)
		}
	}

	q := "SELECT row_to_json(t) FROM " + pgx.Identifier(parts).Sanitize() + " t"
	if orderBy = strings.TrimSpace(orderBy); orderBy != "" {
		q += " ORDER BY t." + pgx.Identifier{orderBy}.Sanitize()
	}
	return q, nil
}

// Fetch implements Source.
func (s *Postgres) Fetch(ctx context.Context) ([]map[string]any, error) {
	const op = "fetch records"

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rows, err := s.pool.Query(ctx, s.query)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	defer rows.Close()

	records := []map[string]any{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, &core.NetworkError{Op: op, Err: err}
		}
		obj, err := decodeObject(raw)
		if err != nil {
			return nil, &core.NetworkError{Op: op, Err: err}
		}
		records = append(records, obj)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	return records, nil
}

// decodeObject decodes one row_to_json value, keeping numbers exact.
func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return obj, nil
}

// Name implements Source.
func (s *Postgres) Name() string { return "postgres" }

// Close releases the pool.
func (s *Postgres) Close() {
	s.pool.Close()
}
