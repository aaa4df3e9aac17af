// Package fs defines the filesystem abstraction used by dropzip.
// It provides the FS interface and the FileInfo type shared across the system.
package fs

import (
	"context"
	"io"
	"os"
	"time"
)

// Kind classifies a path the way the archive builder cares about.
type Kind int

const (
	KindOther Kind = iota
	KindFile
	KindDir
	KindSymlink
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

func kindOf(mode os.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&os.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}

type FileInfo struct {
	Path  string
	Name  string
	Kind  Kind
	Size  int64
	MTime time.Time
	Mode  os.FileMode
	Inode uint64
}

type FS interface {
	// Stat follows symbolic links, Lstat does not.
	Stat(path string) (FileInfo, error)
	Lstat(path string) (FileInfo, error)
	// ReadDir lists a directory sorted by name with Lstat semantics.
	ReadDir(path string) ([]FileInfo, error)
	RealPath(path string) (string, error)
	MkdirAll(path string) error
	Remove(path string) error
	Rename(ctx context.Context, oldPath, newPath string) error
	CreateTemp(dir, pattern string) (*os.File, error)
	// CopyTo streams src into w and fails if src changes while being read.
	CopyTo(ctx context.Context, w io.Writer, src string) (int64, error)
}
