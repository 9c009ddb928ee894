package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rzbill/inferq/internal/codec"
	"github.com/rzbill/inferq/internal/inference"
	"github.com/rzbill/inferq/internal/stream"
	"github.com/rzbill/inferq/pkg/log"
)

// DrainHeadroom is the time a default grace allows past InferenceTimeout for
// publishing and acknowledging.
const DrainHeadroom = 5 * time.Second

// Options configure a Worker. Zero values take the listed defaults.
type Options struct {
	InputStream  string
	OutputStream string
	// Concurrency is the number of pipeline tasks. Default 1.
	Concurrency int
	// InferenceTimeout bounds each backend call. Default 30s.
	InferenceTimeout time.Duration
	// ShutdownGrace is how long in-flight jobs may run after shutdown starts.
	// Default InferenceTimeout plus DrainHeadroom.
	ShutdownGrace time.Duration
	// DefaultContext replaces a blank job context before inference.
	DefaultContext string
	// Filter is an optional CEL admission expression.
	Filter string
	// RetryInitial and RetryMax bound the transport backoff. Defaults 100ms and 10s.
	RetryInitial time.Duration
	RetryMax     time.Duration
}

func (o *Options) setDefaults() {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.InferenceTimeout <= 0 {
		o.InferenceTimeout = 30 * time.Second
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = o.InferenceTimeout + DrainHeadroom
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = 100 * time.Millisecond
	}
	if o.RetryMax < o.RetryInitial {
		o.RetryMax = 10 * time.Second
	}
}

// Worker is the job loop. Create it with New and start it with Run.
type Worker struct {
	client  stream.Client
	backend inference.Backend
	codec   codec.Codec
	filter  *Filter
	opts    Options
	hooks   Hooks
	logger  log.Logger

	running atomic.Bool
	ready   atomic.Bool
}

// New validates opts and compiles the job filter. hooks and logger may be nil.
func New(client stream.Client, backend inference.Backend, c codec.Codec, opts Options, hooks Hooks, logger log.Logger) (*Worker, error) {
	if client == nil || backend == nil {
		return nil, errors.New("worker: stream client and backend are required")
	}
	if opts.InputStream == "" || opts.OutputStream == "" {
		return nil, errors.New("worker: input and output streams are required")
	}
	if c == nil {
		c = codec.JSON{}
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	opts.setDefaults()
	filter, err := NewFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	return &Worker{
		client:  client,
		backend: backend,
		codec:   c,
		filter:  filter,
		opts:    opts,
		hooks:   hooks,
		logger:  logger.WithComponent("worker"),
	}, nil
}

// Ready reports whether the poller is running and accepting new messages.
func (w *Worker) Ready() bool { return w.ready.Load() }

// Run polls until ctx is cancelled, then waits for in-flight jobs. It
// returns only after the poller and every task have stopped. A Worker runs
// at most once at a time.
func (w *Worker) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return errors.New("worker: already running")
	}
	defer w.running.Store(false)

	drainCtx, cancelDrain := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelDrain()

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.graceTimer(ctx, done, cancelDrain)
	}()

	queue := make(chan stream.Message, w.opts.Concurrency)
	var tasks sync.WaitGroup
	for i := 0; i < w.opts.Concurrency; i++ {
		tasks.Add(1)
		go func() {
			defer tasks.Done()
			for msg := range queue {
				w.process(drainCtx, msg)
			}
		}()
	}

	w.logger.Info("worker started",
		log.Str("input", w.opts.InputStream), log.Str("output", w.opts.OutputStream),
		log.Int("concurrency", w.opts.Concurrency), log.Dur("inference_timeout", w.opts.InferenceTimeout))

	w.ready.Store(true)
	w.poll(ctx, queue)
	w.ready.Store(false)
	close(queue)

	w.logger.Info("worker draining", log.Dur("grace", w.opts.ShutdownGrace))
	tasks.Wait()
	close(done)
	wg.Wait()
	w.logger.Info("worker stopped")
	return nil
}

// graceTimer cancels the drain context ShutdownGrace after ctx ends, unless
// done closes first.
func (w *Worker) graceTimer(ctx context.Context, done <-chan struct{}, cancelDrain context.CancelFunc) {
	select {
	case <-ctx.Done():
	case <-done:
		return
	}
	t := time.NewTimer(w.opts.ShutdownGrace)
	defer t.Stop()
	select {
	case <-t.C:
		w.logger.Warn("shutdown grace expired, cancelling in-flight jobs")
		cancelDrain()
	case <-done:
	}
}
