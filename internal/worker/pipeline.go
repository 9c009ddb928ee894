package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rzbill/inferq/internal/codec"
	"github.com/rzbill/inferq/internal/inference"
	"github.com/rzbill/inferq/internal/stream"
	"github.com/rzbill/inferq/pkg/log"
)

// process takes one message from Received to Acknowledged or Failed.
func (w *Worker) process(ctx context.Context, msg stream.Message) (State, Outcome) {
	start := time.Now()
	w.hooks.InFlight(1)
	defer w.hooks.InFlight(-1)

	logger := w.logger.With(log.Str("msg_id", msg.ID))
	state, outcome := StateReceived, OutcomeFailed
	defer func() {
		w.hooks.JobDone(outcome, state, time.Since(start))
		fields := []log.Field{log.Str("state", state.String()), log.Str("outcome", string(outcome)), log.Dur("elapsed", time.Since(start))}
		if state == StateFailed {
			logger.Error("job failed", fields...)
		} else {
			logger.Info("job done", fields...)
		}
	}()

	job, err := w.codec.DecodeJob(msg.Payload)
	if err != nil {
		outcome = OutcomeMalformed
		logger.Warn("dropping malformed payload", log.Err(err))
		if err := w.ack(ctx, msg); err != nil {
			logger.Error("ack of malformed payload failed", log.Err(err))
			state = StateFailed
			return state, outcome
		}
		state = StateAcknowledged
		return state, outcome
	}
	state = StateDecoded
	logger = logger.With(log.Str("job_id", job.JobID))

	result, inferOutcome := w.infer(ctx, job, logger)
	outcome = inferOutcome
	state = StateInferred

	payload, err := w.codec.EncodeResult(result)
	if err != nil {
		logger.Error("encode result", log.Err(err))
		state, outcome = StateFailed, OutcomeFailed
		return state, outcome
	}
	err = w.retry(ctx, "append", retryTransport, func() error {
		_, err := w.client.Append(ctx, w.opts.OutputStream, payload)
		return err
	})
	if err != nil {
		logger.Error("publish result failed, leaving message unacknowledged", log.Err(err))
		state, outcome = StateFailed, OutcomeFailed
		return state, outcome
	}
	state = StatePublished

	if err := w.ack(ctx, msg); err != nil {
		logger.Error("ack failed after publish; result may be duplicated on redelivery", log.Err(err))
		state, outcome = StateFailed, OutcomeFailed
		return state, outcome
	}
	state = StateAcknowledged
	return state, outcome
}

func (w *Worker) ack(ctx context.Context, msg stream.Message) error {
	return w.retry(ctx, "ack", retryTransport, func() error {
		return w.client.Ack(ctx, w.opts.InputStream, msg.ID)
	})
}

type inferResult struct {
	answer inference.Answer
	err    error
}

// infer applies the admission filter and runs the backend under the
// inference timeout. It always returns a Result for job.
func (w *Worker) infer(ctx context.Context, job codec.Job, logger log.Logger) (codec.Result, Outcome) {
	res := codec.Result{JobID: job.JobID}

	ok, err := w.filter.Allow(job)
	if err != nil {
		logger.Warn("job filter evaluation failed", log.Err(err))
	}
	if !ok {
		res.Error = RejectedCause
		return res, OutcomeRejected
	}

	qaContext := job.Context
	if strings.TrimSpace(qaContext) == "" {
		qaContext = w.opts.DefaultContext
	}

	start := time.Now()
	ictx, cancel := context.WithTimeout(ctx, w.opts.InferenceTimeout)
	defer cancel()

	// Buffered so the call can finish after we stop waiting.
	ch := make(chan inferResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- inferResult{err: fmt.Errorf("backend panic: %v", r)}
			}
		}()
		a, err := w.backend.Infer(ictx, job.Question, qaContext)
		ch <- inferResult{answer: a, err: err}
	}()

	var r inferResult
	select {
	case r = <-ch:
	case <-ictx.Done():
		r.err = ictx.Err()
	}

	outcome := OutcomeAnswered
	switch {
	case r.err == nil:
		res.Answer = r.answer.Text
	case errors.Is(ictx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		outcome = OutcomeTimeout
		res.Error = fmt.Sprintf("inference timed out after %s", w.opts.InferenceTimeout)
	default:
		outcome = OutcomeError
		res.Error = inference.AsInferenceError(r.err).Cause
		if res.Error == "" {
			res.Error = "inference failed"
		}
	}
	w.hooks.InferenceDone(outcome, time.Since(start))
	if res.Error != "" {
		logger.Warn("inference failed", log.Str("cause", res.Error))
	}
	return res, outcome
}
