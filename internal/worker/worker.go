// Package worker runs archive builds one at a time, off the caller's goroutine.
package worker

import (
	"context"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/archive"
	"github.com/raoulx24/dropzip/internal/config"
	"github.com/raoulx24/dropzip/internal/history"
	"github.com/raoulx24/dropzip/internal/logging"
	"github.com/raoulx24/dropzip/internal/mailbox"
	"github.com/raoulx24/dropzip/internal/naming"
)

// Worker owns the busy flag and the single pending-request slot. While a
// build runs, at most one more request may wait; anything beyond that is
// rejected with a busy error. Every accepted request receives exactly one
// Outcome, also when the loop stops before running it.
type Worker struct {
	mu        sync.RWMutex
	out       config.OutputConfig
	builder   *archive.Builder
	retention Retention
	history   Recorder
	selection Selection
	log       logging.Logger
	mb        *mailbox.Mailbox[job]
	busy      atomic.Bool

	// guards the slot handoff between Submit and the loop shutting down
	slotMu  sync.Mutex
	stopped bool

	freeSpace func(dir string) (uint64, error)
}

type Option func(*Worker)

func WithRetention(r Retention) Option {
	return func(w *Worker) { w.retention = r }
}

func WithHistory(r Recorder) Option {
	return func(w *Worker) { w.history = r }
}

func WithSelection(s Selection) Option {
	return func(w *Worker) { w.selection = s }
}

// WithFreeSpace replaces the disk usage probe used by the free-space check.
func WithFreeSpace(fn func(dir string) (uint64, error)) Option {
	return func(w *Worker) { w.freeSpace = fn }
}

// New creates a worker writing archives under the output configuration.
func New(out config.OutputConfig, log logging.Logger, b *archive.Builder, opts ...Option) *Worker {
	log.Debug("creating worker")
	w := &Worker{
		out:       out,
		builder:   b,
		log:       log,
		mb:        mailbox.New[job](),
		freeSpace: diskFree,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func diskFree(dir string) (uint64, error) {
	usage, err := disk.Usage(dir)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// UpdateConfig hot-reloads output settings.
func (w *Worker) UpdateConfig(out config.OutputConfig) {
	w.mu.Lock()
	w.out = out
	w.mu.Unlock()
}

// Busy reports whether a build is running.
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// Submit validates req and queues it. The returned channel receives exactly
// one Outcome.
func (w *Worker) Submit(req Request) (<-chan Outcome, error) {
	name, err := naming.ValidateBaseName(req.Name)
	if err != nil {
		return nil, err
	}
	req.Name = name

	if len(req.Inputs) == 0 {
		return nil, goerr.New("no input paths to archive", goerr.T(apperr.TagValidation))
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Trigger == "" {
		req.Trigger = TriggerCLI
	}

	j := job{req: req, done: make(chan Outcome, 1)}

	w.slotMu.Lock()
	defer w.slotMu.Unlock()
	if w.stopped {
		return nil, goerr.New("worker has stopped",
			goerr.V("name", req.Name),
			goerr.T(apperr.TagBusy))
	}
	if !w.mb.TryPut(j) {
		return nil, goerr.New("a build is already in progress and another is waiting",
			goerr.V("name", req.Name),
			goerr.T(apperr.TagBusy))
	}

	w.log.Debug("build request queued", "id", req.ID, "name", req.Name, "trigger", req.Trigger)
	return j.done, nil
}

// SubmitSelection queues a build of every included selection path. The paths
// are removed from the selection once the build succeeds.
func (w *Worker) SubmitSelection(name, trigger string) (<-chan Outcome, error) {
	if w.selection == nil {
		return nil, goerr.New("worker has no selection attached")
	}
	return w.Submit(Request{
		Name:          name,
		Inputs:        w.selection.IncludedPaths(),
		Trigger:       trigger,
		FromSelection: true,
	})
}

// Start runs the worker loop until ctx is done. A build that has started runs
// to completion even if ctx is cancelled meanwhile; a request still waiting
// when the loop stops is answered with an error outcome.
func (w *Worker) Start(ctx context.Context) {
	w.log.Info("starting worker")
	for {
		j, ok := w.mb.Take(ctx)
		if !ok {
			w.stop()
			w.log.Info("worker stopped")
			return
		}

		w.busy.Store(true)
		outcome := w.run(context.WithoutCancel(ctx), j.req)
		w.busy.Store(false)

		j.done <- outcome
		close(j.done)
	}
}

// stop refuses further requests and answers the one left in the slot.
func (w *Worker) stop() {
	w.slotMu.Lock()
	defer w.slotMu.Unlock()
	w.stopped = true

	j, ok := w.mb.TryTake()
	if !ok {
		return
	}
	now := time.Now()
	w.log.Warn("build dropped, worker stopped before it started", "id", j.req.ID, "name", j.req.Name)
	j.done <- Outcome{
		Request:    j.req,
		Err:        goerr.New("worker stopped before the build started", goerr.V("name", j.req.Name)),
		StartedAt:  now,
		FinishedAt: now,
	}
	close(j.done)
}

func (w *Worker) run(ctx context.Context, req Request) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("panic in build", "recover", r, "stack", string(debug.Stack()))
			outcome = Outcome{
				Request:    req,
				Err:        goerr.New("build panicked", goerr.V("recover", r)),
				FinishedAt: time.Now(),
			}
		}
	}()
	return w.Handle(ctx, req)
}

// Handle performs one build synchronously.
func (w *Worker) Handle(ctx context.Context, req Request) Outcome {
	w.log.Debug("entering Worker.Handle()", "id", req.ID)
	outcome := Outcome{Request: req, StartedAt: time.Now()}

	w.mu.RLock()
	out := w.out
	w.mu.RUnlock()

	path, res, err := w.build(ctx, out, req)
	outcome.Result = res
	outcome.Err = err
	outcome.FinishedAt = time.Now()

	if err == nil {
		w.log.Info("build finished", "id", req.ID, "path", path,
			"entries", len(res.Entries), "skipped", len(res.Skipped),
			"duration", outcome.FinishedAt.Sub(outcome.StartedAt))
		outcome.Pruned = w.afterSuccess(ctx, path, req)
	} else {
		w.log.Error("build failed", "id", req.ID, "name", req.Name, "kind", apperr.Kind(err), "error", err)
	}

	w.record(ctx, path, outcome)
	return outcome
}

func (w *Worker) build(ctx context.Context, out config.OutputConfig, req Request) (string, *archive.Result, error) {
	w.log.Info("build started", "id", req.ID, "name", req.Name, "inputs", len(req.Inputs), "trigger", req.Trigger)

	dir, err := naming.OutputDir(out.Root, out.Folder)
	if err != nil {
		return "", nil, err
	}
	path := naming.ArchivePath(dir, req.Name)

	plan, err := w.builder.Plan(ctx, path, req.Inputs)
	if err != nil {
		return path, nil, err
	}

	if out.CheckFreeSpace {
		if err := w.checkFreeSpace(dir, plan.Bytes); err != nil {
			return path, nil, err
		}
	}

	res, err := w.builder.Write(ctx, path, plan)
	if err != nil {
		return path, nil, err
	}
	return path, res, nil
}

// checkFreeSpace compares the uncompressed input size with the free space of
// the output volume. Deflate only shrinks data, so this is an upper bound.
func (w *Worker) checkFreeSpace(dir string, need int64) error {
	free, err := w.freeSpace(dir)
	if err != nil {
		w.log.Warn("free space check unavailable", "dir", dir, "error", err)
		return nil
	}
	if need > 0 && uint64(need) > free {
		return goerr.New("not enough free space for archive",
			goerr.V("dir", dir),
			goerr.V("need", need),
			goerr.V("free", free),
			goerr.T(apperr.TagIO))
	}
	return nil
}

func (w *Worker) afterSuccess(ctx context.Context, path string, req Request) []string {
	var pruned []string
	if w.retention != nil {
		removed, err := w.retention.Apply(ctx, filepath.Dir(path), path)
		if err != nil {
			w.log.Error("worker: retention failed", "error", err)
		}
		pruned = removed
	}

	if req.FromSelection && w.selection != nil {
		if err := w.selection.Remove(req.Inputs...); err != nil {
			w.log.Error("worker: failed to update selection", "error", err)
		}
	}
	return pruned
}

func (w *Worker) record(ctx context.Context, path string, o Outcome) {
	if w.history == nil {
		return
	}

	rec := history.Record{
		ID:         o.Request.ID,
		Name:       o.Request.Name,
		OutputPath: path,
		Trigger:    o.Request.Trigger,
		Status:     history.StatusSucceeded,
		StartedAt:  o.StartedAt,
		FinishedAt: o.FinishedAt,
	}
	if o.Result != nil {
		rec.Entries = len(o.Result.Entries)
		rec.Skipped = len(o.Result.Skipped)
		rec.Bytes = o.Result.Bytes
	}
	if o.Err != nil {
		rec.Status = history.StatusFailed
		rec.Error = o.Err.Error()
	}

	if err := w.history.Record(ctx, rec); err != nil {
		w.log.Error("worker: failed to record history", "id", rec.ID, "error", err)
	}
}
