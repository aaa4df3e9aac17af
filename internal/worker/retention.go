package worker

import (
	"context"

	"github.com/raoulx24/dropzip/internal/history"
)

// Retention prunes old archives after a successful build.
type Retention interface {
	Apply(ctx context.Context, dir, keep string) ([]string, error)
}

// Recorder stores the outcome of every build.
type Recorder interface {
	Record(ctx context.Context, r history.Record) error
}

// Selection is the part of the selection store the worker reads and updates.
type Selection interface {
	IncludedPaths() []string
	Remove(paths ...string) error
}
