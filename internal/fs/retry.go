package fs

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// retry implements retry logic with exponential backoff.
// It is used by open and rename operations to handle transient filesystem errors.

var retryBase = 100 * time.Millisecond

func retry(ctx context.Context, opName string, fn func() error) error {
	const maxRetries = 5

	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isTransient(err) {
			return goerr.Wrap(err, opName+" failed permanently")
		}

		if attempt == maxRetries {
			break
		}

		t := time.NewTimer(retryBase * (1 << (attempt - 1)))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	return goerr.Wrap(lastErr, opName+" failed after retries", goerr.V("retries", maxRetries))
}
