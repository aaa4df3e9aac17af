// Package cli wires configuration, logging and the archive components into commands.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/raoulx24/dropzip/internal/config"
	"github.com/raoulx24/dropzip/internal/logging"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	return newApp(os.Stdout, os.Stderr).Run(ctx, args)
}

type app struct {
	cmd *cli.Command
	env *env
}

// env is filled by the root Before hook and shared by every command.
type env struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
	out        io.Writer
}

func newApp(out, logOut io.Writer) *app {
	var loggerCfg logging.Config
	e := &env{out: out}

	flags := append(loggerCfg.Flags(), &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to YAML config file",
		Destination: &e.configPath,
		Sources:     cli.EnvVars("DROPZIP_CONFIG"),
	})

	cmd := &cli.Command{
		Name:    "dropzip",
		Usage:   "Bundle selected files and folders into a ZIP archive",
		Version: Version,
		Writer:  out,
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			cfg, err := config.Load(e.configPath)
			if err != nil {
				return nil, err
			}
			e.cfg = cfg

			// the config file supplies logging defaults, flags win
			if !c.IsSet("log-level") && cfg.Logging.Level != "" {
				loggerCfg.Level = cfg.Logging.Level
			}
			if !c.IsSet("log-json") && cfg.Logging.Format == "json" {
				loggerCfg.JSON = true
			}

			logger, err := loggerCfg.Configure(logOut)
			if err != nil {
				return nil, err
			}
			e.logger = logger
			slog.SetDefault(logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdAdd(e),
			cmdList(e),
			cmdToggle(e),
			cmdRemove(e),
			cmdBuild(e),
			cmdWatch(e),
			cmdHistory(e),
		},
	}

	return &app{cmd: cmd, env: e}
}

func (a *app) Run(ctx context.Context, args []string) error {
	if err := a.cmd.Run(ctx, args); err != nil {
		logger := a.env.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("CLI execution failed", slog.Any("error", err))
		printFailure(a.env.out, err)
		return err
	}
	return nil
}
