package worker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rzbill/inferq/internal/stream"
	"github.com/rzbill/inferq/pkg/log"
)

func retryTransport(err error) bool { return stream.IsTransport(err) }

func retryAll(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (w *Worker) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.opts.RetryInitial
	b.MaxInterval = w.opts.RetryMax
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// retry runs fn until it succeeds, fails with an error retryable rejects, or
// ctx ends. There is no attempt cap.
func (w *Worker) retry(ctx context.Context, op string, retryable func(error) bool, fn func() error) error {
	return backoff.RetryNotify(func() error {
		err := fn()
		if err == nil || retryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(w.newBackOff(), ctx), func(err error, next time.Duration) {
		w.hooks.TransportRetry(op)
		w.logger.Warn("stream operation failed, retrying",
			log.Str("op", op), log.Err(err), log.Dur("backoff", next))
	})
}
