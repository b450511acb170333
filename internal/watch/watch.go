// Package watch reports changes to a relation file.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Settle is how long events must stop arriving before a change is reported.
// A single rewrite shows up as several events: truncate and write when done
// in place, create when a temporary file is renamed over the target.
const Settle = 50 * time.Millisecond

// Watch calls fn each time the file at path changes, until ctx is done or fn
// fails. The parent directory is watched so the file may be replaced by a
// rename, or not exist yet. Cancellation returns nil.
func Watch(ctx context.Context, path string, fn func(ctx context.Context) error) error {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}
	slog.DebugContext(ctx, "Watching", "path", path)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				slog.DebugContext(ctx, "File event", "path", path, "op", event.Op.String())
				timer.Reset(Settle)
			}
		case <-timer.C:
			if err := fn(ctx); err != nil {
				return err
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "Error watching file", "path", path, "err", err)
		}
	}
}
