package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/archive"
	"github.com/raoulx24/dropzip/internal/history"
	"github.com/raoulx24/dropzip/internal/retention"
	"github.com/raoulx24/dropzip/internal/selection"
	"github.com/raoulx24/dropzip/internal/worker"
)

func (e *env) newBuilder() *archive.Builder {
	return archive.New(
		archive.WithLogger(e.logger),
		archive.WithSymlinkPolicy(archive.SymlinkPolicy(e.cfg.Archive.Symlinks)),
		archive.WithLevel(e.cfg.Archive.Level),
	)
}

// newWorker assembles a worker with retention, history and the selection.
// The returned func releases the history database.
func (e *env) newWorker(sel *selection.Store) (*worker.Worker, *retention.Engine, func(), error) {
	ret := retention.New(e.cfg.Retention, e.logger)
	opts := []worker.Option{
		worker.WithRetention(ret),
		worker.WithSelection(sel),
	}

	cleanup := func() {}
	if !e.cfg.History.Disabled {
		hist, err := history.Open(e.cfg.History.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		opts = append(opts, worker.WithHistory(hist))
		cleanup = func() {
			if err := hist.Close(); err != nil {
				e.logger.Warn("failed to close history database", "error", err)
			}
		}
	}

	w := worker.New(e.cfg.Output, e.logger, e.newBuilder(), opts...)
	return w, ret, cleanup, nil
}

func cmdBuild(e *env) *cli.Command {
	var name string

	return &cli.Command{
		Name:      "build",
		Aliases:   []string{"b"},
		Usage:     "Write <output>/<name>.zip from PATHs or from the included selection",
		ArgsUsage: "[PATH...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "name",
				Aliases:     []string{"n"},
				Usage:       "Archive base name, without extension",
				Destination: &name,
				Sources:     cli.EnvVars("DROPZIP_NAME"),
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := e.openSelection()
			if err != nil {
				return err
			}

			req := worker.Request{Name: name, Trigger: worker.TriggerCLI}
			if c.Args().Len() > 0 {
				if req.Inputs, err = absPaths(c.Args().Slice()); err != nil {
					return err
				}
			} else {
				req.Inputs = store.IncludedPaths()
				req.FromSelection = true
				if len(req.Inputs) == 0 {
					return goerr.New("nothing is selected; add paths or pass them as arguments",
						goerr.T(apperr.TagValidation))
				}
			}

			w, _, cleanup, err := e.newWorker(store)
			if err != nil {
				return err
			}
			defer cleanup()

			loopCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go w.Start(loopCtx)

			done, err := w.Submit(req)
			if err != nil {
				return err
			}

			// no cancellation once started: wait for the outcome
			outcome := <-done
			if outcome.Err != nil {
				return goerr.Wrap(outcome.Err, "archive build failed", goerr.V("name", req.Name))
			}

			printSuccess(e.out, outcome.Result)
			return nil
		},
	}
}
