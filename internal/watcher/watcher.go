// Package watcher monitors an inbox directory and feeds dropped items into the selection.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/config"
	"github.com/raoulx24/dropzip/internal/fsprobe"
	"github.com/raoulx24/dropzip/internal/logging"
	"github.com/raoulx24/dropzip/internal/worker"
)

// Selection receives the items found in the inbox.
type Selection interface {
	Add(paths ...string) (int, error)
}

// Submitter queues a build of the included selection.
type Submitter interface {
	SubmitSelection(name, trigger string) (<-chan worker.Outcome, error)
}

// Watcher observes the inbox and adds new, stable top-level items to the selection.
type Watcher struct {
	mu sync.RWMutex
	// serialises scans started by timers, ticks and Start
	detectMu sync.Mutex

	dir         string
	interval    time.Duration
	mode        string
	debounce    time.Duration
	stability   time.Duration
	namePattern string
	autoBuild   bool

	log logging.Logger

	sel    Selection
	submit Submitter

	// signature of every item already added, keyed by path
	seen map[string]signature
	// a build is owed because the last submission was rejected
	pending bool

	now func() time.Time
}

// New creates a watcher from the inbox configuration.
func New(cfg config.InboxConfig, log logging.Logger, sel Selection, submit Submitter) *Watcher {
	return &Watcher{
		dir:         cfg.Path,
		interval:    cfg.Watch.PollInterval,
		mode:        cfg.Watch.Mode,
		debounce:    cfg.Watch.DebounceWindow,
		stability:   cfg.Watch.StabilityWindow,
		namePattern: cfg.NamePattern,
		autoBuild:   cfg.AutoBuild,
		log:         log,
		sel:         sel,
		submit:      submit,
		seen:        map[string]signature{},
		now:         time.Now,
	}
}

// Start chooses the correct watching strategy based on config.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.RLock()
	dir, mode := w.dir, w.mode
	w.mu.RUnlock()

	if dir == "" {
		return goerr.New("inbox path is not configured", goerr.T(apperr.TagConfig))
	}

	// pick up whatever is already waiting
	w.detect()

	switch mode {
	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "auto":
		res := fsprobe.Probe(dir, 200*time.Millisecond)
		if res.FsnotifySupported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, falling back to polling", "reason", res.Reason)
		w.StartPolling(ctx)
		return nil

	default:
		return goerr.New("unknown watch mode", goerr.V("mode", mode), goerr.T(apperr.TagConfig))
	}
}
