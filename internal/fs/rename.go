package fs

import (
	"context"
	"os"
)

// renameWithRetry wraps os.Rename with retry logic.
// Archives are finalized by renaming the temp file over the output path.
func renameWithRetry(ctx context.Context, oldPath, newPath string) error {
	return retry(ctx, "rename", func() error {
		return os.Rename(oldPath, newPath)
	})
}
