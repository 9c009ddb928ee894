package workerrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	cfgpkg "github.com/rzbill/inferq/internal/config"
	"github.com/rzbill/inferq/internal/inference"
	"github.com/rzbill/inferq/internal/metrics"
	"github.com/rzbill/inferq/internal/runtime"
	grpcserver "github.com/rzbill/inferq/internal/server/grpc"
	httpserver "github.com/rzbill/inferq/internal/server/http"
	logpkg "github.com/rzbill/inferq/pkg/log"
)

type Options struct {
	Config cfgpkg.Config
	// Logger overrides the one built from Config.Log.
	Logger logpkg.Logger
	// ConnectTimeout bounds the startup Ping retries. Zero means
	// runtime.DefaultConnectTimeout.
	ConnectTimeout time.Duration
	// Backend overrides the one selected by Config.Backend.
	Backend inference.Backend
}

// Run starts the servers and the worker and blocks until the worker has
// drained after ctx is cancelled. It fails fast when the stream store
// cannot be reached.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	procLogger := opts.Logger
	if procLogger == nil {
		l, err := logpkg.ApplyConfig(&logpkg.Config{
			Level:            cfg.Log.Level,
			Format:           cfg.Log.Format,
			File:             cfg.Log.File,
			Redact:           cfg.Log.Redact,
			SampleInitial:    cfg.Log.SampleInitial,
			SampleThereafter: cfg.Log.SampleThereafter,
		})
		if err != nil {
			return fmt.Errorf("logger: %w", err)
		}
		procLogger = l
	}
	logpkg.RedirectStdLog(procLogger)

	m := metrics.New()
	rt, err := runtime.Open(sctx, runtime.Options{
		Config:         cfg,
		Logger:         procLogger,
		Metrics:        m,
		ConnectTimeout: opts.ConnectTimeout,
		Backend:        opts.Backend,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	w, err := rt.Worker()
	if err != nil {
		return err
	}

	procLogger.Info("Starting inferq worker",
		logpkg.Str("endpoint", cfgpkg.RedactEndpoint(cfg.StreamEndpoint)),
		logpkg.Str("input", cfg.InputStream),
		logpkg.Str("output", cfg.OutputStream),
		logpkg.Int("concurrency", cfg.WorkerConcurrency),
		logpkg.Str("backend", cfg.Backend.Kind),
		logpkg.Str("http", cfg.HTTPAddr),
		logpkg.Str("grpc", cfg.GRPCAddr),
	)

	// Servers stop after the worker has drained, not when the signal arrives.
	serveCtx, stopServe := context.WithCancel(context.WithoutCancel(ctx))
	defer stopServe()

	var wg sync.WaitGroup
	var gsrv *grpcserver.Server
	if cfg.GRPCAddr != "" {
		gsrv = grpcserver.New(rt, procLogger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gsrv.ListenAndServe(serveCtx, cfg.GRPCAddr); err != nil && serveCtx.Err() == nil {
				procLogger.Error("grpc server failed", logpkg.Err(err))
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-sctx.Done():
				gsrv.Shutdown()
			case <-serveCtx.Done():
			}
		}()
	}
	if cfg.HTTPAddr != "" {
		hsrv := httpserver.New(rt, procLogger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hsrv.ListenAndServe(serveCtx, cfg.HTTPAddr); err != nil && serveCtx.Err() == nil {
				procLogger.Error("http server failed", logpkg.Err(err))
			}
		}()
	}

	runErr := w.Run(sctx)
	procLogger.Info("worker stopped; shutting down servers")
	stopServe()
	wg.Wait()
	return runErr
}
