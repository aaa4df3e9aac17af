package archive

import (
	"context"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/raoulx24/dropzip/internal/apperr"
	"github.com/raoulx24/dropzip/internal/fs"
)

type planner struct {
	b       *Builder
	exclude string
	plan    *Plan
	names   map[string]struct{}
	// real paths of the directories on the current recursion stack
	stack map[string]struct{}
}

// Plan resolves inputs into archive entries without writing anything. Inputs
// are processed in order; regular files become one entry named by their base
// name and directories are expanded under their own base name. Anything else
// is skipped. outputPath, if it shows up in a tree, is skipped too.
func (b *Builder) Plan(ctx context.Context, outputPath string, inputs []string) (*Plan, error) {
	if len(inputs) == 0 {
		return nil, goerr.New("no input paths to archive", goerr.T(apperr.TagValidation))
	}

	p := &planner{
		b:     b,
		plan:  &Plan{},
		names: map[string]struct{}{},
		stack: map[string]struct{}{},
	}
	if outputPath != "" {
		if abs, err := filepath.Abs(outputPath); err == nil {
			p.exclude = abs
		}
	}

	for _, in := range inputs {
		info, ok := p.resolve(in)
		if !ok {
			continue
		}

		switch info.Kind {
		case fs.KindFile:
			p.addFile(in, filepath.Base(in), info)
		case fs.KindDir:
			if err := p.expand(ctx, in, rootPrefix(in)); err != nil {
				return nil, err
			}
		default:
			p.skip(in, ReasonSpecial)
		}
	}

	return p.plan, nil
}

// resolve stats path according to the symlink policy. It records a skip and
// returns false when the path cannot be archived.
func (p *planner) resolve(path string) (fs.FileInfo, bool) {
	info, err := p.b.fs.Lstat(path)
	if err != nil {
		p.skip(path, ReasonMissing)
		return fs.FileInfo{}, false
	}
	if info.Kind != fs.KindSymlink {
		return info, true
	}

	if p.b.symlinks == SkipSymlinks {
		p.skip(path, ReasonSymlink)
		return fs.FileInfo{}, false
	}

	target, err := p.b.fs.Stat(path)
	if err != nil {
		p.skip(path, ReasonMissing)
		return fs.FileInfo{}, false
	}
	return target, true
}

// expand adds every file under dir as prefix/name, files before
// subdirectories, each group in name order.
func (p *planner) expand(ctx context.Context, dir, prefix string) error {
	real, err := p.b.fs.RealPath(dir)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve directory",
			goerr.V("dir", dir),
			goerr.T(apperr.TagIO))
	}
	if _, onStack := p.stack[real]; onStack {
		p.skip(dir, ReasonCycle)
		return nil
	}
	p.stack[real] = struct{}{}
	defer delete(p.stack, real)

	children, err := p.b.fs.ReadDir(dir)
	if err != nil {
		return goerr.Wrap(err, "failed to read directory",
			goerr.V("dir", dir),
			goerr.T(apperr.TagIO))
	}

	var subdirs []fs.FileInfo
	for _, child := range children {
		info, ok := p.resolve(child.Path)
		if !ok {
			continue
		}
		switch info.Kind {
		case fs.KindFile:
			p.addFile(child.Path, joinName(prefix, child.Name), info)
		case fs.KindDir:
			subdirs = append(subdirs, child)
		default:
			p.skip(child.Path, ReasonSpecial)
		}
	}

	for _, sub := range subdirs {
		if err := p.expand(ctx, sub.Path, joinName(prefix, sub.Name)); err != nil {
			return err
		}
	}
	return nil
}

func (p *planner) addFile(path, name string, info fs.FileInfo) {
	if p.exclude != "" {
		if abs, err := filepath.Abs(path); err == nil && abs == p.exclude {
			p.skip(path, ReasonOutput)
			return
		}
	}
	if _, dup := p.names[name]; dup {
		p.skip(path, ReasonDuplicate)
		return
	}
	p.names[name] = struct{}{}

	p.plan.Entries = append(p.plan.Entries, Entry{
		Name:    name,
		Source:  path,
		Size:    info.Size,
		ModTime: info.MTime,
		Mode:    info.Mode,
	})
	p.plan.Bytes += info.Size
}

func (p *planner) skip(path, reason string) {
	p.b.log.Warn("skipping path", "path", path, "reason", reason)
	p.plan.Skipped = append(p.plan.Skipped, Skip{Path: path, Reason: reason})
}

// rootPrefix is the base name of a chosen directory, taken from its absolute
// form so relative inputs such as ".." name the real directory. A filesystem
// root has no usable base name, so its contents land at the top of the archive.
func rootPrefix(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	base := filepath.Base(dir)
	if base == string(filepath.Separator) || base == "." || base == ".." || base == filepath.VolumeName(dir) {
		return ""
	}
	return filepath.ToSlash(base)
}

// joinName always uses "/" regardless of the host separator.
func joinName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
