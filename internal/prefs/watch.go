package prefs

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses bursts of filesystem events into one reload.
// Editors often emit several writes (truncate, write, rename) per save.
const watchDebounce = 200 * time.Millisecond

// Watch monitors the preference file for external edits and delivers the
// reloaded state on the returned channel. The channel carries the latest
// state only; a slow consumer sees the newest value, not a backlog.
//
// Watching observes the containing directory rather than the file itself,
// which survives the atomic rename dance editors and saveFile use.
// The goroutine exits when ctx is canceled.
func (s *Store) Watch(ctx context.Context, logger *slog.Logger) (<-chan State, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(s.path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	out := make(chan State, 1)
	go s.watchLoop(ctx, logger, fsw, out)
	return out, nil
}

func (s *Store) watchLoop(ctx context.Context, logger *slog.Logger, fsw *fsnotify.Watcher, out chan State) {
	defer fsw.Close()
	defer close(out)

	target := filepath.Base(s.path)

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(watchDebounce)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(watchDebounce)
			}

		case <-debounceC:
			debounce = nil
			debounceC = nil

			if err := s.Reload(); err != nil {
				logger.Warn("failed to reload preferences", "path", s.path, "error", err)
				continue
			}
			st := s.State()
			logger.Debug("preferences reloaded",
				"threshold", st.Threshold,
				"paused", st.PauseScanning)

			// Latest-wins delivery: drop the stale value if unread.
			select {
			case out <- st:
			default:
				select {
				case <-out:
				default:
				}
				out <- st
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("preference watcher error", "error", err)
		}
	}
}
