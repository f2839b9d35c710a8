// Package watch regenerates the plan whenever the outline or the state
// file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/HendryAvila/plansync/internal/pipeline"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce absorbs the burst of events an editor save produces.
const DefaultDebounce = 150 * time.Millisecond

// Options configures a watch loop.
type Options struct {
	Run      pipeline.Options
	Debounce time.Duration

	// OnSync is called after every regeneration attempt with its result.
	OnSync func(*pipeline.Result, error)
}

// Watch runs one sync immediately, then again after every change to the
// source or state file, until ctx is cancelled. Regenerations never
// overlap: events and syncs are handled on this goroutine only. Failed
// syncs are logged and reported to OnSync; they do not stop the loop.
//
// The parent directories are watched rather than the files, so editors
// that save by rename keep triggering.
func Watch(ctx context.Context, opts Options) error {
	log := opts.Run.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	targets := map[string]bool{
		filepath.Clean(opts.Run.Paths.Source): true,
		filepath.Clean(opts.Run.Paths.State):  true,
	}
	dirs := make(map[string]bool)
	for p := range targets {
		dirs[filepath.Dir(p)] = true
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watching %s: %w", d, err)
		}
	}

	sync := func() {
		res, err := pipeline.Run(ctx, opts.Run)
		if err != nil {
			log.Error("sync failed", "error", err)
		}
		if opts.OnSync != nil {
			opts.OnSync(res, err)
		}
	}

	log.Info("watching for changes", "source", opts.Run.Paths.Source, "state", opts.Run.Paths.State)
	sync()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] || ev.Op == fsnotify.Chmod {
				continue
			}
			log.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)

		case <-timer.C:
			sync()
		}
	}
}
