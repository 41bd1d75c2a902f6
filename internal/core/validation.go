package core

// validation.go checks upload candidates against the upload policy before
// any bytes leave the machine.
//
// Checks run in a fixed order:
//  1. File type: the lower-cased filename must end with an allowed extension
//  2. File size: the file must not exceed the policy maximum
//
// Type is checked first so that a wrong file is reported as the wrong type
// even when it is also too large.

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateUpload checks a candidate against the policy.
// Returns nil when the candidate is accepted, or a *ValidationError.
func ValidateUpload(c UploadCandidate, p UploadPolicy) error {
	allowed := NormalizeExtensions(p.AllowedExtensions)
	name := strings.ToLower(c.Filename)

	if !hasAllowedExtension(name, allowed) {
		return &ValidationError{
			Reason:   UnsupportedType,
			Filename: c.Filename,
			Size:     c.SizeBytes,
			Limit:    p.MaxSizeBytes,
			Allowed:  allowed,
		}
	}

	if c.SizeBytes > p.MaxSizeBytes {
		return &ValidationError{
			Reason:   TooLarge,
			Filename: c.Filename,
			Size:     c.SizeBytes,
			Limit:    p.MaxSizeBytes,
			Allowed:  allowed,
		}
	}

	return nil
}

func hasAllowedExtension(lowerName string, allowed []string) bool {
	for _, ext := range allowed {
		if strings.HasSuffix(lowerName, ext) {
			return true
		}
	}
	return false
}

// NormalizeExtensions lower-cases extensions and adds the leading dot
// where it is missing. Blank entries are dropped.
func NormalizeExtensions(exts []string) []string {
	result := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		result = append(result, ext)
	}
	return result
}

// CandidateFromFile builds an upload candidate from a file on disk.
func CandidateFromFile(path string) (UploadCandidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return UploadCandidate{}, fmt.Errorf("stat upload file: %w", err)
	}
	if info.IsDir() {
		return UploadCandidate{}, fmt.Errorf("%s is a directory: %w", path, ErrNoFile)
	}
	return UploadCandidate{
		Filename:  filepath.Base(path),
		SizeBytes: info.Size(),
		MIMEType:  mimeForExtension(filepath.Ext(path)),
	}, nil
}

// mimeForExtension returns the content type sent with the multipart upload.
func mimeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".csv":
		return "text/csv"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".ods":
		return "application/vnd.oasis.opendocument.spreadsheet"
	default:
		return "application/octet-stream"
	}
}

// DescribePolicy returns the user-facing hint shown next to the file picker,
// e.g. "Supported: CSV, XLSX, XLS, ODS (max 10MB)".
func DescribePolicy(p UploadPolicy) string {
	exts := NormalizeExtensions(p.AllowedExtensions)
	names := make([]string, len(exts))
	for i, ext := range exts {
		names[i] = strings.ToUpper(strings.TrimPrefix(ext, "."))
	}
	return fmt.Sprintf("Supported: %s (max %s)", strings.Join(names, ", "), formatSize(p.MaxSizeBytes))
}

func formatSize(n int64) string {
	const mb = 1024 * 1024
	if n >= mb && n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	if n >= mb {
		return fmt.Sprintf("%.1fMB", float64(n)/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}
