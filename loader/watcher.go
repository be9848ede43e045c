/*
watcher.go - Inbox directory watcher

PURPOSE:
  Watches an inbox directory for incoming filing files and feeds them to
  the loader. New quarters are dropped into the inbox by the transfer
  job; the watcher picks them up without operator action.

BEHAVIOR:
  - One full sweep at startup, so files that arrived while the process
    was down are not missed.
  - File system events are debounced; transfer tools write in chunks
    and often finish with a rename.
  - A rejected file is logged and left in place. The sweep is cheap and
    already loaded periods are skipped, so reprocessing is harmless.

SEE ALSO:
  - csv.go: the loader the watcher feeds
*/
package loader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// defaultDebounce delays the sweep after an event burst settles.
const defaultDebounce = 500 * time.Millisecond

// Watcher runs the inbox loop. Create with NewWatcher.
type Watcher struct {
	loader   *Loader
	dir      string
	log      *zap.Logger
	debounce time.Duration
}

func NewWatcher(loader *Loader, dir string, log *zap.Logger) *Watcher {
	return &Watcher{
		loader:   loader,
		dir:      dir,
		log:      log,
		debounce: defaultDebounce,
	}
}

// Run sweeps the inbox once, then blocks processing file system events
// until the context is cancelled. Returns nil on clean shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.Sweep(ctx); err != nil {
		w.log.Warn("initial inbox sweep had rejected files", zap.Error(err))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.log.Info("watching inbox", zap.String("dir", w.dir))

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	sweeps := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, func() {
				select {
				case sweeps <- struct{}{}:
				default:
				}
			})

		case <-sweeps:
			if _, err := w.Sweep(ctx); err != nil {
				w.log.Warn("inbox sweep had rejected files", zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("file watcher error", zap.Error(err))
		}
	}
}

// Sweep loads every filing currently in the inbox. Already loaded
// periods are skipped. Returns how many files loaded fresh rows.
func (w *Watcher) Sweep(ctx context.Context) (int, error) {
	results, err := w.loader.LoadDir(ctx, w.dir, Options{})

	loaded := 0
	for _, r := range results {
		if !r.Skipped {
			loaded++
		}
	}
	if loaded > 0 {
		w.log.Info("inbox sweep finished",
			zap.Int("loaded", loaded),
			zap.Int("seen", len(results)),
		)
	}
	return loaded, err
}
