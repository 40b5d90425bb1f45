package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/yungbote/tray-validation-backend/internal/platform/apierr"
)

// ReadDelay is the pause before the single retry of an idempotent read.
var ReadDelay = 50 * time.Millisecond

// Read runs an idempotent read and retries it once when it fails with a
// storage error. Taxonomy errors (not found, access denied, ...) and context
// cancellation are returned as-is. Never wrap a mutation with Read.
func Read(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(ReadDelay), 1), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae.Code == apierr.CodeInternal
	}
	return true
}
