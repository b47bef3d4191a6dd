package library

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"photowall/internal/logging"
)

// Watch rescans the library whenever files under the root change. Events
// burst during copies, so rescans coalesce behind a short settle delay.
// Blocks until ctx is cancelled.
func (s *Scanner) Watch(ctx context.Context, settle time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.root); err != nil {
		return fmt.Errorf("watch %s: %w", s.root, err)
	}
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("read library root: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name()[0] == '.' {
			continue
		}
		if err := watcher.Add(filepath.Join(s.root, entry.Name())); err != nil {
			s.logger.Warn("cannot watch album directory",
				logging.String(logging.FieldAlbum, entry.Name()),
				logging.Error(err),
			)
		}
	}

	logger := logging.NewComponentLogger(s.logger, "library-watch")
	var settleTimer *time.Timer
	var settleCh <-chan time.Time
	pending := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			logger.Debug("library change", slog.String("event", event.String()))
			if event.Has(fsnotify.Create) {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			pending = true
			if settleTimer == nil {
				settleTimer = time.NewTimer(settle)
			} else {
				if !settleTimer.Stop() {
					select {
					case <-settleTimer.C:
					default:
					}
				}
				settleTimer.Reset(settle)
			}
			settleCh = settleTimer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", logging.Error(err))
		case <-settleCh:
			settleCh = nil
			if !pending {
				continue
			}
			pending = false
			if err := s.Rescan(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("rescan failed", logging.Error(err))
			}
		}
	}
}
