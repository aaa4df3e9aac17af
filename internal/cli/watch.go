package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/raoulx24/dropzip/internal/config"
	"github.com/raoulx24/dropzip/internal/naming"
	"github.com/raoulx24/dropzip/internal/schedule"
	"github.com/raoulx24/dropzip/internal/watcher"
	"github.com/raoulx24/dropzip/internal/worker"
)

func cmdWatch(e *env) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run the drop-folder watcher and scheduled builds until interrupted",
		Description: "SIGHUP reloads the config file and applies output.*, retention.lastCount,\n" +
			"inbox.namePattern, inbox.autoBuild and inbox.watch.stabilityWindow.\n" +
			"Changes to inbox.path, inbox.watch.mode, inbox.watch.pollInterval,\n" +
			"inbox.watch.debounceWindow, schedule.*, archive.*, selection.*, history.*\n" +
			"and logging.* take effect after a restart.",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runWatch(ctx, e)
		},
	}
}

func runWatch(ctx context.Context, e *env) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := e.openSelection()
	if err != nil {
		return err
	}

	w, ret, cleanup, err := e.newWorker(store)
	if err != nil {
		return err
	}
	defer cleanup()
	go w.Start(ctx)

	var watch *watcher.Watcher
	if e.cfg.Inbox.Path != "" {
		watch = watcher.New(e.cfg.Inbox, e.logger, store, w)
		go func() {
			if err := watch.Start(ctx); err != nil {
				e.logger.Error("watcher stopped", "error", err)
				cancel()
			}
		}()
	}

	sched := schedule.New(e.logger)
	if e.cfg.Schedule.Cron != "" {
		pattern := e.cfg.Schedule.NamePattern
		if err := sched.Add(e.cfg.Schedule.Cron, "selection", func() {
			submitScheduled(e, w, pattern)
		}); err != nil {
			return err
		}
		sched.Start()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
			defer stop()
			sched.Stop(stopCtx)
		}()
	}

	if watch == nil && sched.Len() == 0 {
		e.logger.Warn("neither inbox.path nor schedule.cron is configured; nothing will trigger builds")
	}

	// hot reload on SIGHUP
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	e.logger.Info("watching", "inbox", e.cfg.Inbox.Path, "cron", e.cfg.Schedule.Cron)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("shutting down")
			return nil
		case <-hup:
			reload(e, w, watch, ret)
		}
	}
}

func submitScheduled(e *env, w *worker.Worker, pattern string) {
	name := naming.FromPattern(pattern, time.Now())
	done, err := w.SubmitSelection(name, worker.TriggerSchedule)
	if err != nil {
		e.logger.Warn("scheduled build not submitted", "name", name, "error", err)
		return
	}
	go func() {
		o := <-done
		if o.Err != nil {
			e.logger.Error("scheduled build failed", "name", name, "error", o.Err)
		}
	}()
}

type reloader interface {
	UpdateConfig(cfg config.RetentionConfig)
}

func reload(e *env, w *worker.Worker, watch *watcher.Watcher, ret reloader) {
	cfg, err := config.Load(e.configPath)
	if err != nil {
		e.logger.Error("config reload failed", "error", err)
		return
	}

	if cfg.Schedule != e.cfg.Schedule || cfg.Archive != e.cfg.Archive ||
		cfg.Selection != e.cfg.Selection || cfg.History != e.cfg.History {
		e.logger.Warn("schedule, archive, selection and history changes need a restart")
	}

	w.UpdateConfig(cfg.Output)
	if watch != nil {
		watch.UpdateConfig(cfg.Inbox)
	}
	ret.UpdateConfig(cfg.Retention)
	e.cfg = cfg

	e.logger.Info("config reloaded")
}
