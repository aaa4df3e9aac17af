// Package retention prunes old archives from the output folder.
package retention

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/config"
	"github.com/raoulx24/dropzip/internal/logging"
)

type Engine struct {
	mu        sync.RWMutex
	lastCount int
	log       logging.Logger
}

func New(cfg config.RetentionConfig, log logging.Logger) *Engine {
	return &Engine{
		lastCount: cfg.LastCount,
		log:       log,
	}
}

// UpdateConfig hot-reloads the retention count.
func (e *Engine) UpdateConfig(cfg config.RetentionConfig) {
	e.mu.Lock()
	e.lastCount = cfg.LastCount
	e.mu.Unlock()
}

type archiveFile struct {
	path    string
	modTime time.Time
}

// Apply keeps the newest lastCount archives in dir and deletes the rest.
// keep is never deleted. A zero count disables pruning.
func (e *Engine) Apply(ctx context.Context, dir, keep string) ([]string, error) {
	e.mu.RLock()
	count := e.lastCount
	e.mu.RUnlock()

	if count <= 0 {
		return nil, nil
	}

	archives, err := scanArchives(dir)
	if err != nil {
		return nil, err
	}
	if len(archives) <= count {
		return nil, nil
	}

	// newest first; name breaks ties so the order is stable
	sort.Slice(archives, func(i, j int) bool {
		if archives[i].modTime.Equal(archives[j].modTime) {
			return archives[i].path > archives[j].path
		}
		return archives[i].modTime.After(archives[j].modTime)
	})

	var removed []string
	kept := 0
	for _, a := range archives {
		if a.path == keep || kept < count {
			kept++
			continue
		}
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if err := os.Remove(a.path); err != nil {
			e.log.Error("retention: failed to remove archive", "path", a.path, "error", err)
			continue
		}
		e.log.Info("retention: removed archive", "path", a.path)
		removed = append(removed, a.path)
	}

	return removed, nil
}

// scanArchives lists the finished .zip files in dir, ignoring temp files.
func scanArchives(dir string) ([]archiveFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read output folder",
			goerr.V("dir", dir),
			goerr.T(apperr.TagIO))
	}

	var out []archiveFile
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".zip") {
			continue
		}
		info, err := ent.Info()
		if err != nil {
			continue
		}
		out = append(out, archiveFile{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}
	return out, nil
}
