package selection

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"github.com/raoulx24/dropzip/internal/apperr"
)

type stateFile struct {
	Items []Item `yaml:"items"`
}

// Store guards a Tracker with a mutex and persists every mutation to a YAML
// state file. The file is the source of truth: each call reloads it under an
// advisory lock, so several processes sharing one state file see each other's
// changes. An empty path keeps the selection in memory only.
type Store struct {
	mu      sync.Mutex
	path    string
	lock    *flock.Flock
	tracker *Tracker
}

// Open prepares the state file at path and checks that it parses. A missing
// file yields an empty selection.
func Open(path string) (*Store, error) {
	s := &Store{path: path, tracker: NewTracker()}
	if path == "" {
		return s, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create selection state directory",
			goerr.V("dir", dir),
			goerr.T(apperr.TagIO))
	}
	s.lock = flock.New(path + ".lock")

	if err := s.view(func(*Tracker) {}); err != nil {
		return nil, err
	}
	return s, nil
}

// view runs fn against the current state, read under a shared lock.
func (s *Store) view(fn func(t *Tracker)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		fn(s.tracker)
		return nil
	}

	if err := s.lock.RLock(); err != nil {
		return goerr.Wrap(err, "failed to lock selection state",
			goerr.V("path", s.path),
			goerr.T(apperr.TagIO))
	}
	defer func() { _ = s.lock.Unlock() }()

	t, err := s.load()
	if err != nil {
		return err
	}
	s.tracker = t
	fn(t)
	return nil
}

// update reads, modifies and writes the state under an exclusive lock. fn
// reports whether anything changed; unchanged state is not rewritten.
func (s *Store) update(fn func(t *Tracker) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lock == nil {
		_, err := fn(s.tracker)
		return err
	}

	if err := s.lock.Lock(); err != nil {
		return goerr.Wrap(err, "failed to lock selection state",
			goerr.V("path", s.path),
			goerr.T(apperr.TagIO))
	}
	defer func() { _ = s.lock.Unlock() }()

	t, err := s.load()
	if err != nil {
		return err
	}
	s.tracker = t

	changed, err := fn(t)
	if err != nil || !changed {
		return err
	}
	return s.save(t)
}

func (s *Store) load() (*Tracker, error) {
	t := NewTracker()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read selection state",
			goerr.V("path", s.path),
			goerr.T(apperr.TagIO))
	}

	var st stateFile
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, goerr.Wrap(err, "failed to parse selection state",
			goerr.V("path", s.path),
			goerr.T(apperr.TagConfig))
	}

	for _, it := range st.Items {
		if t.Add(it.Path) && !it.Included {
			_ = t.Toggle(it.Path, false)
		}
	}
	return t, nil
}

// Add inserts paths and returns how many were new.
func (s *Store) Add(paths ...string) (int, error) {
	added := 0
	err := s.update(func(t *Tracker) (bool, error) {
		for _, p := range paths {
			if t.Add(p) {
				added++
			}
		}
		return added > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

func (s *Store) Toggle(path string, included bool) error {
	return s.update(func(t *Tracker) (bool, error) {
		if err := t.Toggle(path, included); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Remove deletes paths; unknown paths are ignored.
func (s *Store) Remove(paths ...string) error {
	return s.update(func(t *Tracker) (bool, error) {
		removed := false
		for _, p := range paths {
			if t.Remove(p) {
				removed = true
			}
		}
		return removed, nil
	})
}

// Contains reports whether path is selected. A state file that cannot be
// read counts as not containing it.
func (s *Store) Contains(path string) bool {
	var ok bool
	_ = s.view(func(t *Tracker) {
		_, ok = t.index[path]
	})
	return ok
}

// IncludedPaths returns the paths flagged for the next archive. When the
// state file cannot be read, the last state seen is used.
func (s *Store) IncludedPaths() []string {
	var paths []string
	if err := s.view(func(t *Tracker) { paths = t.IncludedPaths() }); err != nil {
		s.mu.Lock()
		paths = s.tracker.IncludedPaths()
		s.mu.Unlock()
	}
	return paths
}

func (s *Store) Items() []Item {
	var items []Item
	if err := s.view(func(t *Tracker) { items = t.Items() }); err != nil {
		s.mu.Lock()
		items = s.tracker.Items()
		s.mu.Unlock()
	}
	return items
}

// save writes the state atomically via a temp file in the same directory.
// The caller holds the exclusive lock.
func (s *Store) save(t *Tracker) error {
	data, err := yaml.Marshal(stateFile{Items: t.Items()})
	if err != nil {
		return goerr.Wrap(err, "failed to marshal selection state")
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".selection-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create selection temp file", goerr.T(apperr.TagIO))
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to write selection state", goerr.T(apperr.TagIO))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to close selection state", goerr.T(apperr.TagIO))
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return goerr.Wrap(err, "failed to replace selection state",
			goerr.V("path", s.path),
			goerr.T(apperr.TagIO))
	}
	return nil
}
