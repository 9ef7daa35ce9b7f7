package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/msyamsudin/S-Trade-Executor/internal/core/macro"
)

const defaultDebounce = 300 * time.Millisecond

// Watch blocks until ctx is done, calling onChange after the config file was modified by
// another process. Events are debounced and writes made through this Store are ignored.
func (s *Store) Watch(ctx context.Context, debounce time.Duration, logger macro.Logger, onChange func()) error {
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	// Editors and our own atomic save replace the file, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Debug("Watching config", "path", s.path)

	target := filepath.Clean(s.path)
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			changed, err := s.Reload()
			if err != nil {
				logger.Warn("Config reload failed", "path", s.path, "err", err)
				continue
			}
			if changed {
				logger.Info("Config changed on disk", "path", s.path)
				onChange()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Config watcher error", "err", err)
		}
	}
}
