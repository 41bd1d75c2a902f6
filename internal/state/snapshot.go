package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Snapshot is the last successfully fetched payload for a schema.
// It seeds the record store on startup so the UI has data before the
// first refresh completes.
type Snapshot struct {
	Schema    string
	Payload   []byte // JSON array of record objects, as received
	Count     int
	FetchedAt time.Time
}

// SaveSnapshot replaces the snapshot for schema.
func (db *DB) SaveSnapshot(ctx context.Context, schema string, payload []byte, count int) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snapshots (schema_name, payload, record_count, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(schema_name) DO UPDATE SET payload = excluded.payload,
		   record_count = excluded.record_count, fetched_at = excluded.fetched_at`,
		schema, string(payload), count, db.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", schema, err)
	}
	return nil
}

// LoadSnapshot returns the snapshot for schema. ok is false when none is stored.
func (db *DB) LoadSnapshot(ctx context.Context, schema string) (snap Snapshot, ok bool, err error) {
	var payload string
	var fetched int64
	err = db.conn.QueryRowContext(ctx,
		`SELECT payload, record_count, fetched_at FROM snapshots WHERE schema_name = ?`, schema,
	).Scan(&payload, &snap.Count, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot %s: %w", schema, err)
	}
	snap.Schema = schema
	snap.Payload = []byte(payload)
	snap.FetchedAt = time.UnixMilli(fetched)
	return snap, true, nil
}

// DeleteSnapshot removes the snapshot for schema.
func (db *DB) DeleteSnapshot(ctx context.Context, schema string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM snapshots WHERE schema_name = ?`, schema); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", schema, err)
	}
	return nil
}
