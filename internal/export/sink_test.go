package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDirSink_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink := DirSink{Dir: dir}

	loc, err := sink.Save(context.Background(), "music_catalog.xlsx", []byte("one"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if want := filepath.Join(dir, "music_catalog.xlsx"); loc != want {
		t.Errorf("location = %q, want %q", loc, want)
	}

	// Saving again replaces the file.
	if _, err := sink.Save(context.Background(), "music_catalog.xlsx", []byte("two")); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(loc)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("content = %q, want two", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1 (no temp files left)", len(entries))
	}
}

func TestDirSink_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := (DirSink{Dir: t.TempDir()}).Save(ctx, "x.pdf", []byte("x")); err == nil {
		t.Error("Save() with cancelled context succeeded")
	}
}
