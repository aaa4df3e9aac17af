package watcher

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/naming"
	"github.com/raoulx24/dropzip/internal/worker"
)

// detect adds new or changed inbox items to the selection and, with
// autoBuild, submits a build. It reports whether an item was still being
// written, so the caller can look again later.
func (w *Watcher) detect() (unsettled bool) {
	w.detectMu.Lock()
	defer w.detectMu.Unlock()

	w.mu.RLock()
	dir := w.dir
	w.mu.RUnlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.log.Error("watcher: failed to read inbox", "dir", dir, "error", err)
		return false
	}

	present := map[string]struct{}{}
	var candidates []string
	for _, e := range entries {
		// dotfiles are temp files, including our own probe files
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		present[path] = struct{}{}
		candidates = append(candidates, path)
	}

	stable, unsettled := w.settled(candidates)

	var added []string
	for _, path := range candidates {
		sig, ok := stable[path]
		if !ok {
			continue
		}

		w.mu.RLock()
		prev, known := w.seen[path]
		w.mu.RUnlock()
		if known && prev == sig {
			continue
		}

		if _, err := w.sel.Add(path); err != nil {
			w.log.Error("watcher: failed to add to selection", "path", path, "error", err)
			continue
		}

		w.mu.Lock()
		w.seen[path] = sig
		w.mu.Unlock()

		w.log.Info("inbox item selected", "path", path)
		added = append(added, path)
	}

	w.forget(present)

	w.mu.Lock()
	if len(added) > 0 && w.autoBuild {
		w.pending = true
	}
	build := w.pending && !unsettled
	w.mu.Unlock()

	if build {
		w.requestBuild()
	}
	return unsettled
}

// forget drops seen entries for items that left the inbox, so a re-drop of
// the same name is picked up again.
func (w *Watcher) forget(present map[string]struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path := range w.seen {
		if _, ok := present[path]; !ok {
			delete(w.seen, path)
		}
	}
}

func (w *Watcher) requestBuild() {
	w.mu.RLock()
	name := naming.FromPattern(w.namePattern, w.now())
	w.mu.RUnlock()

	_, err := w.submit.SubmitSelection(name, worker.TriggerInbox)
	switch {
	case err == nil:
		w.log.Info("inbox build submitted", "name", name)
	case apperr.IsBusy(err):
		// keep pending; the next scan retries
		w.log.Warn("inbox build deferred, worker busy", "name", name)
		return
	default:
		w.log.Error("inbox build rejected", "name", name, "error", err)
	}

	w.mu.Lock()
	w.pending = false
	w.mu.Unlock()
}
