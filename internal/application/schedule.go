package application

// schedule.go runs refreshes in the background: on a cron schedule and when
// files land in a drop folder.
//
// Both loops are context-aware and stop when the context is cancelled.
// Failures are logged and never stop the loop.

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/JonMunkholm/dataflow/internal/core"
	"github.com/JonMunkholm/dataflow/internal/logging"
)

// StartRefreshSchedule refreshes the store on a standard five-field cron
// expression until ctx is cancelled. The returned function stops the
// schedule and waits for a running refresh to finish.
func (s *Service) StartRefreshSchedule(ctx context.Context, spec string) (stop func(), err error) {
	c := cron.New()
	ctx = logging.With(ctx, "trigger", "schedule")

	if _, err := c.AddFunc(spec, func() {
		if err := s.Refresh(ctx); err != nil {
			logging.FromContext(ctx).Warn("scheduled refresh failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}

	c.Start()
	logging.FromContext(ctx).Info("refresh schedule started", "schedule", spec)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		<-c.Stop().Done()
		close(stopped)
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-stopped
	}, nil
}

// WatchDropFolder uploads files created or written in dir once they have
// been quiet for the drop debounce period. The watcher runs until ctx is
// cancelled or Close is called.
func (s *Service) WatchDropFolder(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("drop folder %q: %w", dir, err)
	}
	if info, err := os.Stat(abs); err != nil {
		return fmt.Errorf("drop folder: %w", err)
	} else if !info.IsDir() {
		return fmt.Errorf("drop folder %q is not a directory", abs)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(abs); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %q: %w", abs, err)
	}

	ctx = logging.With(ctx, "trigger", "drop", "dir", abs)
	logging.FromContext(ctx).Info("watching drop folder")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer watcher.Close()
		s.watchLoop(ctx, watcher)
	}()
	return nil
}

func (s *Service) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	logger := logging.FromContext(ctx)

	// Debounce timers hand their path back to this loop, so uploads are
	// only started while the loop (and its WaitGroup slot) is alive. A timer
	// that fires after being replaced carries a stale generation and is
	// ignored.
	type pending struct {
		timer *time.Timer
		gen   uint64
	}
	type firing struct {
		path string
		gen  uint64
	}
	timers := make(map[string]pending)
	fired := make(chan firing)
	done := make(chan struct{})
	var gen uint64
	defer func() {
		close(done)
		for _, p := range timers {
			p.timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if ignoredDropFile(event.Name) {
				continue
			}
			if p, exists := timers[event.Name]; exists {
				p.timer.Stop()
			}
			gen++
			f := firing{path: event.Name, gen: gen}
			timers[f.path] = pending{
				gen: f.gen,
				timer: time.AfterFunc(s.dropDebounce, func() {
					select {
					case fired <- f:
					case <-done:
					}
				}),
			}
		case f := <-fired:
			if p, ok := timers[f.path]; !ok || p.gen != f.gen {
				continue
			}
			delete(timers, f.path)
			s.background(0, func(context.Context) {
				s.uploadDropped(ctx, f.path)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("drop folder watcher error", "error", err)
		}
	}
}

func (s *Service) uploadDropped(ctx context.Context, path string) {
	logger := logging.WithFields(ctx, "file", filepath.Base(path))

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	res, err := s.UploadFile(ctx, path)
	if err != nil {
		if ve, ok := core.IsRejected(err); ok {
			logger.Warn("dropped file rejected", "reason", ve.Reason)
			return
		}
		logger.Error("dropped file upload failed", "error", err)
		return
	}
	logger.Info("dropped file uploaded", "message", res.Message)
}

// ignoredDropFile skips hidden files and editor or download temporaries.
func ignoredDropFile(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmp", ".part", ".crdownload", ".swp":
		return true
	}
	return false
}
