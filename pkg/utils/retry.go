package utils

import (
	"context"
	"time"
)

// Retry runs fn up to maxAttempts times, sleeping backoff[i] between attempt
// i and i+1 (the last schedule entry is reused when attempts outnumber it).
// isRetryable may be nil, in which case every error is retried. The save
// path and the container-creation path share this so their behavior cannot
// drift apart.
func Retry(ctx context.Context, maxAttempts int, backoff []time.Duration, isRetryable func(error) bool, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if isRetryable != nil && !isRetryable(err) {
			return err
		}
		if attempt == maxAttempts-1 {
			break
		}
		wait := backoff[len(backoff)-1]
		if attempt < len(backoff) {
			wait = backoff[attempt]
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
