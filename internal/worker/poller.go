package worker

import (
	"context"

	"github.com/rzbill/inferq/internal/stream"
	"github.com/rzbill/inferq/pkg/log"
)

// poll reads the input stream into queue until ctx ends. The cursor lives in
// memory and starts at the beginning of the stream; acknowledgement removes
// handled messages, so a restart rereads only what is still pending.
func (w *Worker) poll(ctx context.Context, queue chan<- stream.Message) {
	logger := w.logger.WithComponent("poller")
	cursor := ""
	for ctx.Err() == nil {
		var msgs []stream.Message
		err := w.retry(ctx, "read", retryAll, func() error {
			var err error
			msgs, err = w.client.Read(ctx, w.opts.InputStream, cursor)
			return err
		})
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("read failed", log.Err(err))
			}
			return
		}
		for _, m := range msgs {
			select {
			case queue <- m:
				cursor = m.ID
			case <-ctx.Done():
				return
			}
		}
	}
}
