// Package watch re-runs a callback for CIF files that change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config configures a Watcher.
type Config struct {
	// Dir is the directory watched, subdirectories included.
	Dir string

	// Debounce is the quiet period after the last event for a file before
	// the callback runs (default: 200ms).
	Debounce time.Duration

	// Extensions are the file extensions of interest (default: .cif, .mmcif).
	Extensions []string
}

// Watcher watches a directory tree and reports changed CIF files.
type Watcher struct {
	cfg      Config
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
	debounce *Debouncer
}

// New creates a watcher. A nil logger discards output.
func New(cfg Config, logger *slog.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory cannot be empty")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 200 * time.Millisecond
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".cif", ".mmcif"}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:      cfg,
		logger:   logger,
		watcher:  fw,
		debounce: NewDebouncer(cfg.Debounce),
	}, nil
}

// Watch blocks until ctx is cancelled, calling onChange with the path of
// every matching file that was written or created. Calls for one path are
// debounced; calls for different paths are independent.
func (w *Watcher) Watch(ctx context.Context, onChange func(path string)) error {
	defer w.debounce.Stop()
	defer w.watcher.Close()

	if err := w.addTree(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.cfg.Dir, err)
	}

	w.logger.Info("watching for changes",
		"dir", w.cfg.Dir,
		"extensions", w.cfg.Extensions,
		"debounce_ms", w.cfg.Debounce.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}

			if event.Has(fsnotify.Create) && isDir(event.Name) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "dir", event.Name, "error", err)
				}
				continue
			}
			if !w.Matches(event) {
				continue
			}

			w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())
			path := event.Name
			w.debounce.Trigger(path, func() { onChange(path) })

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// Matches reports whether event should trigger the callback: a write or
// create of a visible file with a watched extension.
func (w *Watcher) Matches(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	return slices.ContainsFunc(w.cfg.Extensions, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

// addTree watches dir and every visible subdirectory.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", path, err)
		}
		w.logger.Debug("watching directory", "dir", path)
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
