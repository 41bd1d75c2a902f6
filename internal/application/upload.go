package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/logging"
)

// DataRoute is where the UI lands after a successful upload.
const DataRoute = "/"

// ErrNoUploader is returned when the service was built without an uploader.
var ErrNoUploader = errors.New("uploads are not available")

// UploadResult is an accepted upload plus where the UI goes next.
type UploadResult struct {
	Message  string        `json:"message"`
	Rows     int           `json:"rows,omitempty"`
	Redirect string        `json:"redirect"`
	Delay    time.Duration `json:"-"`
	DelayMS  int64         `json:"delay_ms"`
}

// Upload validates the candidate, submits it and schedules a refresh once
// the redirect delay has passed. Validation failures never reach the backend.
func (s *Service) Upload(ctx context.Context, candidate core.UploadCandidate, r io.Reader) (UploadResult, error) {
	if r == nil || candidate.Filename == "" {
		return UploadResult{}, core.ErrNoFile
	}
	if err := core.ValidateUpload(candidate, s.policy); err != nil {
		return UploadResult{}, err
	}
	if s.uploader == nil {
		return UploadResult{}, ErrNoUploader
	}

	logger := logging.WithFields(ctx,
		"file", candidate.Filename,
		"size_bytes", candidate.SizeBytes,
	)

	start := time.Now()
	res, err := s.uploader.Upload(ctx, candidate, r)
	if err != nil {
		logger.Warn("upload failed", "error", err)
		return UploadResult{}, fmt.Errorf("upload %s: %w", candidate.Filename, err)
	}
	logger.Info("upload accepted",
		"rows", res.Rows,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.background(s.redirectDelay, func(ctx context.Context) {
		ctx = logging.With(ctx, "trigger", "upload")
		if err := s.Refresh(ctx); err != nil {
			logging.FromContext(ctx).Warn("post-upload refresh failed", "error", err)
		}
	})

	return UploadResult{
		Message:  res.Message,
		Rows:     res.Rows,
		Redirect: DataRoute,
		Delay:    s.redirectDelay,
		DelayMS:  s.redirectDelay.Milliseconds(),
	}, nil
}

// UploadFile uploads a file from disk.
func (s *Service) UploadFile(ctx context.Context, path string) (UploadResult, error) {
	candidate, err := core.CandidateFromFile(path)
	if err != nil {
		return UploadResult{}, err
	}
	// Reject before opening so oversized files are never read.
	if err := core.ValidateUpload(candidate, s.policy); err != nil {
		return UploadResult{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return UploadResult{}, fmt.Errorf("open %s: %w", candidate.Filename, err)
	}
	defer f.Close()

	return s.Upload(ctx, candidate, f)
}
