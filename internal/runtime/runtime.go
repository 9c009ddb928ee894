package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rzbill/inferq/internal/codec"
	cfgpkg "github.com/rzbill/inferq/internal/config"
	"github.com/rzbill/inferq/internal/inference"
	"github.com/rzbill/inferq/internal/metrics"
	"github.com/rzbill/inferq/internal/stream"
	_ "github.com/rzbill/inferq/internal/stream/localstream"
	_ "github.com/rzbill/inferq/internal/stream/redisstream"
	"github.com/rzbill/inferq/internal/worker"
	"github.com/rzbill/inferq/pkg/log"
)

// DefaultConnectTimeout bounds the startup Ping retries.
const DefaultConnectTimeout = 10 * time.Second

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger log.Logger
	// Metrics is optional. When set it receives worker and storage observations.
	Metrics *metrics.Metrics
	// ConnectTimeout bounds Ping retries in Open. Zero means DefaultConnectTimeout.
	ConnectTimeout time.Duration
	// Client and Backend override the ones built from Config.
	Client  stream.Client
	Backend inference.Backend
}

// Runtime wires the stream client, codec, backend and worker for one process.
type Runtime struct {
	config  cfgpkg.Config
	client  stream.Client
	codec   codec.Codec
	backend inference.Backend
	metrics *metrics.Metrics
	logger  log.Logger

	mu     sync.Mutex
	worker *worker.Worker
}

// Open connects to the configured stream store and waits until it answers
// Ping, retrying with backoff for up to opts.ConnectTimeout.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewLogger(log.WithOutput(log.NullOutput{}))
	}
	client := opts.Client
	if client == nil {
		sopts := stream.Options{
			ReadBatch: cfg.ReadBatch,
			ReadBlock: cfg.ReadBlock.Std(),
			Fields: map[string]string{
				cfg.InputStream:  cfg.PayloadField,
				cfg.OutputStream: cfg.ResultField,
			},
			DefaultField: cfg.PayloadField,
			MaxBytes:     cfg.MaxStreamBytes,
			MaxAge:       cfg.MaxStreamAge.Std(),
			Logger:       logger.WithComponent("stream"),
		}
		if opts.Metrics != nil {
			sopts.StorageMetrics = opts.Metrics
		}
		var err error
		client, err = stream.Open(ctx, cfg.StreamEndpoint, sopts)
		if err != nil {
			return nil, fmt.Errorf("open stream store %s: %w", cfgpkg.RedactEndpoint(cfg.StreamEndpoint), err)
		}
	}
	rt := &Runtime{
		config:  cfg,
		client:  client,
		codec:   codec.JSON{},
		backend: opts.Backend,
		metrics: opts.Metrics,
		logger:  logger,
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	if err := rt.connect(ctx, timeout); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cannot connect to stream store at %s: %w", cfgpkg.RedactEndpoint(cfg.StreamEndpoint), err)
	}
	return rt, nil
}

func (r *Runtime) connect(ctx context.Context, timeout time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout
	op := func() error {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := r.client.Ping(pctx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		r.logger.Warn("stream store not reachable, retrying", log.Err(err), log.Dur("next", next))
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

// Close closes the stream client.
func (r *Runtime) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// CheckHealth pings the stream store.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.client == nil {
		return errors.New("stream client not open")
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.Ping(ctx)
}

// Worker returns the job worker, building it and the inference backend on
// first use.
func (r *Runtime) Worker() (*worker.Worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.worker != nil {
		return r.worker, nil
	}
	if r.backend == nil {
		b, err := inference.Open(r.config.Backend)
		if err != nil {
			return nil, err
		}
		r.backend = b
	}
	var hooks worker.Hooks
	if r.metrics != nil {
		hooks = r.metrics
	}
	cfg := r.config
	w, err := worker.New(r.client, r.backend, r.codec, worker.Options{
		InputStream:      cfg.InputStream,
		OutputStream:     cfg.OutputStream,
		Concurrency:      cfg.WorkerConcurrency,
		InferenceTimeout: cfg.InferenceTimeout.Std(),
		ShutdownGrace:    cfg.ShutdownGrace.Std(),
		DefaultContext:   cfg.DefaultContext,
		Filter:           cfg.JobFilter,
		RetryInitial:     cfg.Retry.Initial.Std(),
		RetryMax:         cfg.Retry.Max.Std(),
	}, hooks, r.logger)
	if err != nil {
		return nil, err
	}
	r.worker = w
	return w, nil
}

// Ready reports whether the worker has been built and its poller is running.
func (r *Runtime) Ready() bool {
	r.mu.Lock()
	w := r.worker
	r.mu.Unlock()
	return w != nil && w.Ready()
}

// Client exposes the stream client for producer and consumer helpers.
func (r *Runtime) Client() stream.Client { return r.client }

// Codec returns the wire codec.
func (r *Runtime) Codec() codec.Codec { return r.codec }

// Metrics returns the metrics sink, or nil when none was configured.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

