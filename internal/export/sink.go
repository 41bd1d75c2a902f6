package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives encoded export files.
type Sink interface {
	// Save stores data under name and returns where it was stored.
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, name string, data []byte) (string, error)

// Save calls fn.
func (fn SinkFunc) Save(ctx context.Context, name string, data []byte) (string, error) {
	return fn(ctx, name, data)
}

// DirSink writes files into a directory, replacing existing files of the same name.
type DirSink struct {
	Dir string
}

// Save writes data to Dir/name via a temp file and rename, so a reader never
// sees a half-written export.
func (s DirSink) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", name, err)
	}

	dest := filepath.Join(s.Dir, name)
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return dest, nil
}
