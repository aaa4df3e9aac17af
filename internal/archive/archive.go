// Package archive flattens files and directory trees into ZIP archives.
//
// A build is split in two phases. Plan walks the inputs and decides which
// entries the archive will hold and which paths are skipped. Write streams the
// planned entries into a temporary file next to the output path and renames it
// into place once the archive is finalized.
package archive

import (
	"os"
	"time"

	"github.com/raoulx24/dropzip/internal/fs"
	"github.com/raoulx24/dropzip/internal/logging"
)

// Entry is one file stored in the archive.
type Entry struct {
	Name    string // slash-separated, relative to the chosen item's parent
	Source  string
	Size    int64
	ModTime time.Time
	Mode    os.FileMode
}

// Skip records a path that was not archived and why.
type Skip struct {
	Path   string
	Reason string
}

const (
	ReasonMissing   = "missing or broken link"
	ReasonSpecial   = "not a regular file or directory"
	ReasonSymlink   = "symbolic link"
	ReasonCycle     = "symbolic link cycle"
	ReasonDuplicate = "duplicate entry name"
	ReasonOutput    = "output archive itself"
)

type Plan struct {
	Entries []Entry
	Skipped []Skip
	Bytes   int64
}

type Result struct {
	Path    string
	Entries []Entry
	Skipped []Skip
	Bytes   int64 // uncompressed bytes read from sources
}

// SymlinkPolicy decides how links met during the walk are treated.
type SymlinkPolicy string

const (
	// FollowSymlinks archives link targets; directory cycles are skipped.
	FollowSymlinks SymlinkPolicy = "follow"
	// SkipSymlinks ignores every link.
	SkipSymlinks SymlinkPolicy = "skip"
)

type Builder struct {
	fs       fs.FS
	log      logging.Logger
	symlinks SymlinkPolicy
	level    int
}

type Option func(*Builder)

func WithFS(filesystem fs.FS) Option {
	return func(b *Builder) { b.fs = filesystem }
}

func WithLogger(log logging.Logger) Option {
	return func(b *Builder) { b.log = log }
}

func WithSymlinkPolicy(p SymlinkPolicy) Option {
	return func(b *Builder) { b.symlinks = p }
}

// WithLevel sets the deflate level; 0 keeps the library default.
func WithLevel(level int) Option {
	return func(b *Builder) { b.level = level }
}

func New(opts ...Option) *Builder {
	b := &Builder{
		fs:       fs.New(),
		log:      logging.Discard(),
		symlinks: FollowSymlinks,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}
