package prefs

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/sandeepkv93/reminderd/internal/logging"
)

// Watch reloads path into s whenever it is written, created or renamed into
// place, until ctx ends. A file that is empty or fails to parse leaves the
// previous preferences in effect. The directory is watched so editors that replace
// the file are followed.
func Watch(ctx context.Context, path string, s *Store, logger *slog.Logger) error {
	logger = logging.OrDiscard(logger)
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("prefs: resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("prefs: ensure dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("prefs: create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("prefs: watch %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				data, err := os.ReadFile(abs)
				if err != nil || len(bytes.TrimSpace(data)) == 0 {
					continue
				}
				next, err := Parse(data)
				if err != nil {
					logger.Warn("preferences reload failed", "path", abs, "err", err)
					continue
				}
				s.Set(next)
				logger.Info("preferences reloaded", "path", abs,
					"enabled", next.RemindersEnabled, "persistent", next.PersistentReminders,
					"snooze", s.SnoozeDuration())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("preferences watcher error", "err", err)
			}
		}
	}()
	return nil
}
