package application

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/export"
)

// Export starts exporting the full record set in format f and returns the
// running job. Search and sort state never narrow an export.
func (s *Service) Export(ctx context.Context, f export.Format) (*export.Job, error) {
	records := s.store.All()
	if len(records) == 0 {
		return nil, core.ErrNothingToExport
	}
	return s.runner.Start(ctx, f, records, s.schema), nil
}

// ExportAll writes every supported format concurrently and returns the saved
// locations in export.Formats order.
func (s *Service) ExportAll(ctx context.Context) ([]string, error) {
	records := s.store.All()
	if len(records) == 0 {
		return nil, core.ErrNothingToExport
	}

	locations := make([]string, len(export.Formats))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range export.Formats {
		g.Go(func() error {
			loc, err := s.runner.Run(gctx, f, records, s.schema)
			if err != nil {
				return fmt.Errorf("export %s: %w", f, err)
			}
			locations[i] = loc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return locations, nil
}

// Encode exports the full record set to memory for download. It shares the
// export slots with Export.
func (s *Service) Encode(ctx context.Context, f export.Format) ([]byte, error) {
	var (
		mu   sync.Mutex
		data []byte
	)
	capture := export.SinkFunc(func(_ context.Context, name string, b []byte) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		data = b
		return name, nil
	})

	runner := export.NewRunner(capture, s.runner.Limiter(), s.exportOpt)
	if _, err := runner.Run(ctx, f, s.store.All(), s.schema); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	return data, nil
}

// ExportStatus reports the export slot usage.
func (s *Service) ExportStatus() export.LimiterStatus {
	return s.runner.Limiter().Status()
}

// WaitForExports blocks until running exports finish or ctx is done.
func (s *Service) WaitForExports(ctx context.Context) error {
	return s.runner.Limiter().WaitForDrain(ctx)
}
