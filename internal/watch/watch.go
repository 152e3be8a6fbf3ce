// Package watch rebuilds the site when files in the vault change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a rebuild.
const DefaultDebounce = 300 * time.Millisecond

// RebuildFunc regenerates the site. It is never called concurrently.
type RebuildFunc func(ctx context.Context)

// Options tune a watcher.
type Options struct {
	Debounce time.Duration
	// Ignore lists absolute paths whose subtrees never trigger a rebuild,
	// typically the output directory when it lives inside the vault.
	Ignore []string
}

// Watch starts an fsnotify watcher on root and calls rebuild after each burst
// of changes until ctx is cancelled.
//
// Changes are debounced. A change that arrives while a rebuild is running
// queues exactly one more rebuild, however many changes pile up. Watch
// returns only after a running rebuild has finished.
func Watch(ctx context.Context, root string, opts Options, logger *slog.Logger, rebuild RebuildFunc) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	f := filter{root: filepath.Clean(root), ignore: cleanAll(opts.Ignore)}
	if err := addDirsRecursive(w, root, f); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	schedule := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(opts.Debounce)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(opts.Debounce)
		}
	}

	// At most one rebuild runs, so one slot in doneCh never blocks it.
	var (
		running  bool
		queued   bool
		doneCh   = make(chan struct{}, 1)
		inFlight sync.WaitGroup
	)
	defer inFlight.Wait()

	start := func() {
		running = true
		inFlight.Add(1)
		go func() {
			defer inFlight.Done()
			rebuild(ctx)
			doneCh <- struct{}{}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-debounceCh:
			if running {
				queued = true
				logger.Debug("watcher: rebuild queued")
				continue
			}
			start()

		case <-doneCh:
			running = false
			if queued {
				queued = false
				start()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod || f.skip(ev.Name) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name, f); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
				}
			}

			logger.Debug("watcher: change",
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

type filter struct {
	root   string
	ignore []string
}

// skip reports whether a path lies under an ignored directory or is hidden
// below the root (any dot-prefixed segment such as .obsidian or .git).
func (f filter) skip(path string) bool {
	path = filepath.Clean(path)
	for _, ig := range f.ignore {
		if path == ig || strings.HasPrefix(path, ig+string(os.PathSeparator)) {
			return true
		}
	}
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if len(seg) > 1 && strings.HasPrefix(seg, ".") && seg != ".." {
			return true
		}
	}
	return false
}

func cleanAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if abs, err := filepath.Abs(p); err == nil {
			out = append(out, abs)
		}
	}
	return out
}

// addDirsRecursive adds root and all its non-skipped subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, f filter) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && f.skip(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
