package watcher

import (
	"io/fs"
	"path/filepath"
	"time"
)

// signature summarises a file or directory tree so a later scan can tell
// whether it is still being written.
type signature struct {
	files   int
	size    int64
	modTime time.Time
}

func signatureOf(path string) (signature, error) {
	var sig signature
	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if !d.IsDir() {
			sig.files++
			sig.size += info.Size()
		}
		if info.ModTime().After(sig.modTime) {
			sig.modTime = info.ModTime()
		}
		return nil
	})
	return sig, err
}

// settled samples every path twice, one stability window apart, and returns
// the signatures of the paths that did not change in between. unsettled
// reports whether any path was still changing or unreadable.
func (w *Watcher) settled(paths []string) (stable map[string]signature, unsettled bool) {
	w.mu.RLock()
	stability := w.stability
	w.mu.RUnlock()

	first := make(map[string]signature, len(paths))
	for _, p := range paths {
		sig, err := signatureOf(p)
		if err != nil {
			w.log.Debug("inbox item unreadable", "path", p, "error", err)
			unsettled = true
			continue
		}
		first[p] = sig
	}
	if len(first) == 0 {
		return nil, unsettled
	}

	time.Sleep(stability)

	stable = make(map[string]signature, len(first))
	for _, p := range paths {
		before, ok := first[p]
		if !ok {
			continue
		}
		after, err := signatureOf(p)
		if err != nil || after != before {
			w.log.Debug("inbox item still changing", "path", p)
			unsettled = true
			continue
		}
		stable[p] = after
	}
	return stable, unsettled
}
