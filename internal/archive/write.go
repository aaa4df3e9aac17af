package archive

import (
	"archive/zip"
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/m-mizutani/goerr/v2"

	"github.com/raoulx24/dropzip/internal/apperr"
)

// Build deletes any archive at outputPath and writes a new one holding inputs.
func (b *Builder) Build(ctx context.Context, outputPath string, inputs []string) (*Result, error) {
	plan, err := b.Plan(ctx, outputPath, inputs)
	if err != nil {
		return nil, err
	}
	return b.Write(ctx, outputPath, plan)
}

// Write replaces outputPath with an archive of the planned entries. The
// archive is assembled in a temporary sibling file which is removed on
// failure and renamed over outputPath on success.
func (b *Builder) Write(ctx context.Context, outputPath string, plan *Plan) (*Result, error) {
	if !strings.EqualFold(filepath.Ext(outputPath), ".zip") {
		return nil, goerr.New("archive path must end in .zip",
			goerr.V("path", outputPath),
			goerr.T(apperr.TagValidation))
	}

	dir := filepath.Dir(outputPath)
	if err := b.fs.MkdirAll(dir); err != nil {
		return nil, goerr.Wrap(err, "failed to create archive directory",
			goerr.V("dir", dir),
			goerr.T(apperr.TagDirectoryCreation))
	}

	// overwrite, never merge with an existing archive
	if err := b.fs.Remove(outputPath); err != nil {
		return nil, goerr.Wrap(err, "failed to delete existing archive",
			goerr.V("path", outputPath),
			goerr.T(apperr.TagIO))
	}

	tmp, err := b.fs.CreateTemp(dir, ".dropzip-*.zip.tmp")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create archive",
			goerr.V("dir", dir),
			goerr.T(apperr.TagIO))
	}
	tmpName := tmp.Name()
	b.log.Debug("writing archive", "tmp", tmpName, "entries", len(plan.Entries))

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tmp.Close()
		_ = b.fs.Remove(tmpName)
	}()

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, b.compressor())

	var total int64
	for _, e := range plan.Entries {
		n, err := b.writeEntry(ctx, zw, e)
		if err != nil {
			_ = zw.Close()
			return nil, err
		}
		total += n
	}

	if err := zw.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize archive", goerr.T(apperr.TagIO))
	}
	if err := tmp.Sync(); err != nil {
		return nil, goerr.Wrap(err, "failed to flush archive", goerr.T(apperr.TagIO))
	}
	if err := tmp.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to close archive", goerr.T(apperr.TagIO))
	}

	if err := b.fs.Rename(ctx, tmpName, outputPath); err != nil {
		return nil, goerr.Wrap(err, "failed to move archive into place",
			goerr.V("path", outputPath),
			goerr.T(apperr.TagIO))
	}
	committed = true

	b.log.Info("archive written",
		"path", outputPath,
		"entries", len(plan.Entries),
		"skipped", len(plan.Skipped),
		"bytes", total)

	return &Result{
		Path:    outputPath,
		Entries: plan.Entries,
		Skipped: plan.Skipped,
		Bytes:   total,
	}, nil
}

func (b *Builder) writeEntry(ctx context.Context, zw *zip.Writer, e Entry) (int64, error) {
	hdr := &zip.FileHeader{
		Name:     e.Name,
		Method:   zip.Deflate,
		Modified: e.ModTime,
	}
	hdr.SetMode(e.Mode.Perm())

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to add archive entry",
			goerr.V("entry", e.Name),
			goerr.T(apperr.TagIO))
	}

	b.log.Debug("adding entry", "entry", e.Name, "src", e.Source)
	n, err := b.fs.CopyTo(ctx, w, e.Source)
	if err != nil {
		return n, goerr.Wrap(err, "failed to write archive entry",
			goerr.V("entry", e.Name),
			goerr.V("src", e.Source),
			goerr.T(apperr.TagIO))
	}
	return n, nil
}

func (b *Builder) compressor() zip.Compressor {
	level := b.level
	if level == 0 {
		level = flate.DefaultCompression
	}
	return func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	}
}
