package fs

import (
	"context"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
)

// copyChecked streams a source file into w. Opening is retried on transient
// errors; once bytes have been written the copy cannot be retried, so a source
// that changed mid-copy fails the whole operation.
func copyChecked(ctx context.Context, f FS, w io.Writer, src string) (int64, error) {
	orig, err := f.Stat(src)
	if err != nil {
		return 0, err
	}

	var in *os.File
	err = retry(ctx, "open", func() error {
		var openErr error
		in, openErr = os.Open(src)
		return openErr
	})
	if err != nil {
		return 0, err
	}
	defer in.Close()

	n, err := io.Copy(w, in)
	if err != nil {
		return n, goerr.Wrap(err, "failed to copy file content", goerr.V("src", src))
	}

	now, err := f.Stat(src)
	if err != nil {
		return n, err
	}
	if sourceChanged(orig, now) || n != orig.Size {
		return n, goerr.New("source changed during copy", goerr.V("src", src))
	}

	return n, nil
}

func sourceChanged(orig, now FileInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if now.MTime.After(orig.MTime) {
		return true
	}
	if now.Size != orig.Size {
		return true
	}
	return false
}
