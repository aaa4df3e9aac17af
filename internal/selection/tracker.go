// Package selection tracks the paths chosen for the next archive build.
package selection

import (
	"github.com/m-mizutani/goerr/v2"

	"github.com/raoulx24/dropzip/internal/apperr"
)

// Item is one chosen path and whether it goes into the next archive.
type Item struct {
	Path     string `yaml:"path"`
	Included bool   `yaml:"included"`
}

// Tracker is an ordered set of items, unique by path. It is not safe for
// concurrent use; Store adds locking and persistence on top of it.
type Tracker struct {
	items []Item
	index map[string]int
}

func NewTracker() *Tracker {
	return &Tracker{index: map[string]int{}}
}

// Add inserts path as included. It reports false if path was already tracked.
func (t *Tracker) Add(path string) bool {
	if _, ok := t.index[path]; ok {
		return false
	}
	t.index[path] = len(t.items)
	t.items = append(t.items, Item{Path: path, Included: true})
	return true
}

// Toggle sets the inclusion flag of a tracked path.
func (t *Tracker) Toggle(path string, included bool) error {
	i, ok := t.index[path]
	if !ok {
		return goerr.New("path is not in the selection",
			goerr.V("path", path),
			goerr.T(apperr.TagNotFound))
	}
	t.items[i].Included = included
	return nil
}

// Remove deletes path. It reports false if path was not tracked.
func (t *Tracker) Remove(path string) bool {
	i, ok := t.index[path]
	if !ok {
		return false
	}

	t.items = append(t.items[:i], t.items[i+1:]...)
	delete(t.index, path)
	for j := i; j < len(t.items); j++ {
		t.index[t.items[j].Path] = j
	}
	return true
}

// IncludedPaths returns the included paths in insertion order.
func (t *Tracker) IncludedPaths() []string {
	var out []string
	for _, it := range t.items {
		if it.Included {
			out = append(out, it.Path)
		}
	}
	return out
}

func (t *Tracker) Items() []Item {
	return append([]Item(nil), t.items...)
}

func (t *Tracker) Len() int {
	return len(t.items)
}
