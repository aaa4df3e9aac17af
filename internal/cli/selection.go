package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/selection"
)

func (e *env) openSelection() (*selection.Store, error) {
	return selection.Open(e.cfg.Selection.StateFile)
}

// absPaths makes every argument absolute so selections from different working
// directories do not collide.
func absPaths(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for _, a := range args {
		abs, err := filepath.Abs(a)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve path", goerr.V("path", a), goerr.T(apperr.TagValidation))
		}
		out = append(out, abs)
	}
	return out, nil
}

func requireArgs(c *cli.Command, min int) error {
	if c.Args().Len() < min {
		return goerr.New("missing arguments",
			goerr.V("command", c.Name),
			goerr.V("usage", c.ArgsUsage),
			goerr.T(apperr.TagValidation))
	}
	return nil
}

func cmdAdd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add files or folders to the selection",
		ArgsUsage: "PATH...",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			paths, err := absPaths(c.Args().Slice())
			if err != nil {
				return err
			}

			store, err := e.openSelection()
			if err != nil {
				return err
			}
			added, err := store.Add(paths...)
			if err != nil {
				return err
			}

			e.logger.Debug("selection updated", "added", added, "requested", len(paths))
			_, _ = fmt.Fprintf(e.out, "added %d path(s), %d already selected\n", added, len(paths)-added)
			return nil
		},
	}
}

func cmdList(e *env) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Show the selection",
		Action: func(ctx context.Context, c *cli.Command) error {
			store, err := e.openSelection()
			if err != nil {
				return err
			}

			items := store.Items()
			if len(items) == 0 {
				_, _ = fmt.Fprintln(e.out, "selection is empty")
				return nil
			}
			for _, it := range items {
				mark := " "
				if it.Included {
					mark = "x"
				}
				_, _ = fmt.Fprintf(e.out, "[%s] %s\n", mark, it.Path)
			}
			return nil
		},
	}
}

func cmdToggle(e *env) *cli.Command {
	return &cli.Command{
		Name:      "toggle",
		Usage:     "Include or exclude a selected path from the next archive",
		ArgsUsage: "PATH on|off",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := requireArgs(c, 2); err != nil {
				return err
			}

			var included bool
			switch c.Args().Get(1) {
			case "on", "true", "yes":
				included = true
			case "off", "false", "no":
				included = false
			default:
				return goerr.New("flag must be on or off",
					goerr.V("value", c.Args().Get(1)),
					goerr.T(apperr.TagValidation))
			}

			paths, err := absPaths([]string{c.Args().Get(0)})
			if err != nil {
				return err
			}
			store, err := e.openSelection()
			if err != nil {
				return err
			}
			return store.Toggle(paths[0], included)
		},
	}
}

func cmdRemove(e *env) *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Remove paths from the selection",
		ArgsUsage: "PATH...",
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := requireArgs(c, 1); err != nil {
				return err
			}
			paths, err := absPaths(c.Args().Slice())
			if err != nil {
				return err
			}
			store, err := e.openSelection()
			if err != nil {
				return err
			}
			return store.Remove(paths...)
		},
	}
}
