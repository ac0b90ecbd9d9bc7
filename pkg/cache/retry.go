package cache

import (
	"context"
	"errors"
	"net"
	"time"
)

// ErrUnavailable is returned when the Redis backend cannot be reached.
var ErrUnavailable = errors.New("cache unavailable")

// backoff retries calls to a remote backend that fail with network errors.
type backoff struct {
	attempts int
	delay    time.Duration
}

// redisBackoff is used for connecting and writing. Reads are not retried:
// a failed read is reported and the runner recomputes the value.
var redisBackoff = backoff{attempts: 3, delay: 250 * time.Millisecond}

func (b backoff) do(ctx context.Context, fn func() error) error {
	delay := b.delay
	var err error
	for i := 0; i < b.attempts; i++ {
		if err = fn(); err == nil || !transient(err) {
			return err
		}
		if i == b.attempts-1 {
			break
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return err
}

// transient reports whether err is worth another attempt.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.Is(err, ErrUnavailable) || errors.As(err, &netErr)
}
