package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateUpload(t *testing.T) {
	policy := DefaultUploadPolicy()

	tests := []struct {
		name       string
		candidate  UploadCandidate
		wantReason RejectReason // empty means accepted
	}{
		{
			name:      "csv accepted",
			candidate: UploadCandidate{Filename: "catalog.csv", SizeBytes: 1024},
		},
		{
			name:      "extension match is case-insensitive",
			candidate: UploadCandidate{Filename: "DATA.CSV", SizeBytes: 1024},
		},
		{
			name:      "xlsx accepted",
			candidate: UploadCandidate{Filename: "catalog.xlsx", SizeBytes: 2048},
		},
		{
			name:      "exactly at the limit is accepted",
			candidate: UploadCandidate{Filename: "edge.ods", SizeBytes: DefaultMaxUploadSize},
		},
		{
			name:       "one byte over the limit",
			candidate:  UploadCandidate{Filename: "big.csv", SizeBytes: 10_485_761},
			wantReason: TooLarge,
		},
		{
			name:       "unsupported extension",
			candidate:  UploadCandidate{Filename: "notes.txt", SizeBytes: 5},
			wantReason: UnsupportedType,
		},
		{
			name:       "type is checked before size",
			candidate:  UploadCandidate{Filename: "huge.txt", SizeBytes: DefaultMaxUploadSize * 3},
			wantReason: UnsupportedType,
		},
		{
			name:       "extension must be a suffix",
			candidate:  UploadCandidate{Filename: "report.csv.exe", SizeBytes: 10},
			wantReason: UnsupportedType,
		},
		{
			name:       "no extension",
			candidate:  UploadCandidate{Filename: "README", SizeBytes: 10},
			wantReason: UnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.candidate, policy)
			if tt.wantReason == "" {
				if err != nil {
					t.Fatalf("ValidateUpload() error = %v, want nil", err)
				}
				return
			}

			ve, ok := IsRejected(err)
			if !ok {
				t.Fatalf("ValidateUpload() error = %v, want *ValidationError", err)
			}
			if ve.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", ve.Reason, tt.wantReason)
			}
			if ve.Filename != tt.candidate.Filename {
				t.Errorf("Filename = %q, want %q", ve.Filename, tt.candidate.Filename)
			}
		})
	}
}

func TestValidateUpload_CustomPolicy(t *testing.T) {
	policy := UploadPolicy{AllowedExtensions: []string{"JSON", " .xml "}, MaxSizeBytes: 100}

	if err := ValidateUpload(UploadCandidate{Filename: "a.json", SizeBytes: 100}, policy); err != nil {
		t.Errorf("a.json rejected: %v", err)
	}
	if err := ValidateUpload(UploadCandidate{Filename: "b.XML", SizeBytes: 1}, policy); err != nil {
		t.Errorf("b.XML rejected: %v", err)
	}
	if _, ok := IsRejected(ValidateUpload(UploadCandidate{Filename: "c.csv", SizeBytes: 1}, policy)); !ok {
		t.Error("c.csv accepted, want rejection")
	}
}

func TestNormalizeExtensions(t *testing.T) {
	got := NormalizeExtensions([]string{"CSV", ".Xlsx", "", "  ods "})
	want := []string{".csv", ".xlsx", ".ods"}

	if len(got) != len(want) {
		t.Fatalf("NormalizeExtensions() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeExtensions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDescribePolicy(t *testing.T) {
	got := DescribePolicy(DefaultUploadPolicy())
	want := "Supported: CSV, XLSX, XLS, ODS (max 10MB)"
	if got != want {
		t.Errorf("DescribePolicy() = %q, want %q", got, want)
	}
}

func TestCandidateFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.csv")
	if err := os.WriteFile(path, []byte("id,title\n1,Song\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := CandidateFromFile(path)
	if err != nil {
		t.Fatalf("CandidateFromFile() error = %v", err)
	}
	if c.Filename != "catalog.csv" {
		t.Errorf("Filename = %q, want catalog.csv", c.Filename)
	}
	if c.SizeBytes != 16 {
		t.Errorf("SizeBytes = %d, want 16", c.SizeBytes)
	}
	if c.MIMEType != "text/csv" {
		t.Errorf("MIMEType = %q, want text/csv", c.MIMEType)
	}

	if _, err := CandidateFromFile(dir); !errors.Is(err, ErrNoFile) {
		t.Errorf("CandidateFromFile(dir) error = %v, want ErrNoFile", err)
	}
	if _, err := CandidateFromFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("CandidateFromFile(missing) error = nil, want error")
	}
}
