package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartFsNotify triggers detect() when fsnotify reports changes in the inbox.
func (w *Watcher) StartFsNotify(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	w.mu.RLock()
	dir := w.dir
	debounce := w.debounce
	stability := w.stability
	w.mu.RUnlock()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Channel to request debounce resets
	resetCh := make(chan time.Duration, 1)

	// Debounce goroutine
	go func() {
		var t *time.Timer
		for {
			select {
			case <-ctx.Done():
				if t != nil {
					t.Stop()
				}
				return
			case delay := <-resetCh:
				if t != nil {
					t.Stop()
				}
				t = time.AfterFunc(delay, func() {
					defer func() {
						if r := recover(); r != nil {
							w.log.Error("detect panic", "panic", r)
						}
					}()
					if ctx.Err() != nil {
						return
					}
					// nested writes do not reach a top-level watch; look again later
					if w.detect() {
						select {
						case resetCh <- stability:
						default:
						}
					}
				})
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				w.log.Error("events channel closed")
				return nil
			}

			w.log.Debug("event", "name", ev.Name, "op", ev.Op.String())

			if strings.HasPrefix(filepath.Base(ev.Name), ".") {
				continue
			}

			// Non-blocking send to reset debounce
			select {
			case resetCh <- debounce:
			default:
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", "error", err)
		}
	}
}
