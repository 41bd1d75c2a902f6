package export

// runner.go runs exports off the caller's goroutine.
//
// Encoding a large record set takes long enough to stall a UI, so Start
// returns a Job immediately and does the work in the background:
//  1. Wait for a limiter slot
//  2. Encode the full record set
//  3. Hand the bytes to the Sink
//
// An empty record set finishes the job with core.ErrNothingToExport and
// never reaches the Sink.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/logging"
)

// Runner encodes exports and saves them to a Sink.
type Runner struct {
	sink    Sink
	limiter *Limiter
	opts    Options
}

// NewRunner creates a runner. A nil limiter uses the defaults.
func NewRunner(sink Sink, limiter *Limiter, opts Options) *Runner {
	if limiter == nil {
		limiter = NewLimiter(DefaultMaxConcurrent, DefaultMaxWait)
	}
	return &Runner{sink: sink, limiter: limiter, opts: opts}
}

// Limiter returns the runner's limiter.
func (r *Runner) Limiter() *Limiter {
	return r.limiter
}

// Job is one export in flight.
type Job struct {
	ID       string
	Format   Format
	Filename string

	done     chan struct{}
	location string
	err      error
}

// Done is closed when the job finishes.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is cancelled and returns where
// the file was saved.
func (j *Job) Wait(ctx context.Context) (string, error) {
	select {
	case <-j.done:
		return j.location, j.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Start begins exporting records in the background. records should be the
// full store contents; the slice must not be modified afterwards.
// Cancelling ctx aborts the job.
func (r *Runner) Start(ctx context.Context, f Format, records []core.Record, schema *core.Schema) *Job {
	job := &Job{
		ID:       uuid.NewString(),
		Format:   f,
		Filename: Filename(schema, f),
		done:     make(chan struct{}),
	}

	go func() {
		defer close(job.done)
		job.location, job.err = r.run(ctx, job, records, schema)
	}()

	return job
}

// Run exports synchronously.
func (r *Runner) Run(ctx context.Context, f Format, records []core.Record, schema *core.Schema) (string, error) {
	return r.Start(ctx, f, records, schema).Wait(ctx)
}

func (r *Runner) run(ctx context.Context, job *Job, records []core.Record, schema *core.Schema) (string, error) {
	logger := logging.WithFields(ctx,
		"job_id", job.ID,
		"schema", schema.Name,
		"format", string(job.Format),
		"records", len(records),
	)

	if len(records) == 0 {
		logger.Debug("export skipped, nothing to export")
		return "", core.ErrNothingToExport
	}

	if err := r.limiter.Acquire(ctx); err != nil {
		logger.Warn("export slot unavailable", "error", err)
		return "", err
	}
	defer r.limiter.Release()

	start := time.Now()
	data, err := Encode(job.Format, records, schema, r.opts)
	if err != nil {
		if errors.Is(err, core.ErrNothingToExport) {
			return "", err
		}
		logger.Error("export encoding failed", "error", err)
		return "", fmt.Errorf("export %s: %w", job.Filename, err)
	}

	location, err := r.sink.Save(ctx, job.Filename, data)
	if err != nil {
		logger.Error("export save failed", "error", err)
		return "", fmt.Errorf("save %s: %w", job.Filename, err)
	}

	logger.Info("export completed",
		"location", location,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return location, nil
}
