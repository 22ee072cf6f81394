package detect

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/macropower/rulecat/pkg/log"
)

// DefaultDebounce is how long Watch waits for events to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watch runs [Detector.Detect] for dir, then again every time the listed
// directories change, calling fn with each result. Bursts of events within
// debounce are coalesced into a single detection. Watch blocks until ctx is
// done.
func (d *Detector) Watch(ctx context.Context, dir string, debounce time.Duration, fn func(ProjectContext)) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck // Closed on exit.

	logger := log.FromContext(ctx).With(slog.String("dir", absDir))

	err = d.addWatches(watcher, absDir)
	if err != nil {
		return err
	}

	fn(d.Detect(ctx, absDir))

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Ignore events that are not related to file content changes.
			if evt.Has(fsnotify.Chmod) {
				continue
			}

			logger.DebugContext(ctx, "file event", slog.String("event", evt.String()))

			timer.Reset(debounce)

		case <-timer.C:
			// Pick up directories created since the last detection.
			err := d.addWatches(watcher, absDir)
			if err != nil {
				logger.DebugContext(ctx, "refresh watchers", slog.Any("error", err))
			}

			fn(d.Detect(ctx, absDir))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.WarnContext(ctx, "watch error", slog.Any("error", err))
		}
	}
}

func (d *Detector) addWatches(watcher *fsnotify.Watcher, absDir string) error {
	_, dirs, err := d.list(absDir)
	if err != nil {
		return err
	}

	for _, p := range append([]string{absDir}, dirs...) {
		err := watcher.Add(p)
		if err != nil {
			return fmt.Errorf("add path to watcher: %w", err)
		}
	}

	return nil
}
