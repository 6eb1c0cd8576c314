package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"redcapprep/internal/logging"
)

// ── Watchers (cron + file_watch) ──────────────────────────

// DefaultDebounce is the quiet period after a file event before a run starts.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions selects what re-triggers DiscoverAndRemap.
type WatchOptions struct {
	SourceDir string
	DictDir   string
	OutputDir string

	Files    bool   // re-run on writes/creates under SourceDir or DictDir
	Schedule string // cron expression; empty disables the schedule
	Debounce time.Duration
}

type watchers struct {
	mu        sync.Mutex
	cancel    context.CancelFunc
	watcher   *fsnotify.Watcher
	cronSched *cron.Cron
}

// Watch starts the configured triggers and returns. Call Stop to tear them
// down. Calling Watch again replaces the previous triggers.
func (s *PrepService) Watch(ctx context.Context, opts WatchOptions) error {
	if !opts.Files && opts.Schedule == "" {
		return fmt.Errorf("watch: no trigger selected")
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	s.Stop()

	w := &s.watchers
	w.mu.Lock()
	defer w.mu.Unlock()

	trigger := func(name string) {
		if _, err := s.runRemap(ctx, name, opts.SourceDir, opts.DictDir, opts.OutputDir); err != nil {
			logging.Error("watch: batch failed", "trigger", name, "error", err)
		}
	}

	// ── Cron ──
	if opts.Schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(opts.Schedule, func() {
			logging.Info("watch: scheduled run", "schedule", opts.Schedule)
			trigger("schedule")
		}); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", opts.Schedule, err)
		}
		c.Start()
		w.cronSched = c
		logging.Info("watch: schedule started", "schedule", opts.Schedule)
	}

	if !opts.Files {
		return nil
	}

	// ── File watcher ──
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.stopLocked()
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = watcher

	for _, dir := range []string{opts.SourceDir, opts.DictDir} {
		if dir == "" {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			logging.Warn("watch: cannot watch directory", "path", dir, "error", err)
		}
	}
	outputDir, _ := filepath.Abs(opts.OutputDir)

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	go func() {
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-watchCtx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				// Our own outputs must not re-trigger a run.
				if absPath, _ := filepath.Abs(event.Name); within(absPath, outputDir) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				changed := event.Name
				timer = time.AfterFunc(opts.Debounce, func() {
					if watchCtx.Err() != nil {
						return
					}
					logging.Info("watch: file changed", "path", changed)
					trigger("file_watch")
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn("watch: watcher error", "error", err)
			}
		}
	}()

	logging.Info("watch: watching directories", "source", opts.SourceDir, "dictionaries", opts.DictDir)
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Stop tears down all watchers and schedulers. It is safe to call repeatedly.
func (s *PrepService) Stop() {
	s.watchers.mu.Lock()
	defer s.watchers.mu.Unlock()
	s.watchers.stopLocked()
}

func (w *watchers) stopLocked() {
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher != nil {
		w.watcher.Close()
		w.watcher = nil
	}
	if w.cronSched != nil {
		w.cronSched.Stop()
		w.cronSched = nil
	}
}
