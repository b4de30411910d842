package catalog

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds how often a storage call is retried.
// Attempt n (starting at 1) waits n*Backoff before retrying.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultRetryPolicy is used for sidecar and manifest writes.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 200 * time.Millisecond}

// retry calls fn until it succeeds, the attempts are used up or ctx is done.
// The final error is wrapped with ErrStorage.
func retry(ctx context.Context, p RetryPolicy, op string, fn func() error) error {
	attempts := max(p.Attempts, 1)
	var err error
	for n := 1; n <= attempts; n++ {
		if err = fn(); err == nil {
			return nil
		}
		if n == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %w", ErrStorage, op, ctx.Err())
		case <-time.After(time.Duration(n) * p.Backoff):
		}
	}
	return fmt.Errorf("%w: %s after %d attempts: %w", ErrStorage, op, attempts, err)
}
