package workerrun

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/inferq/internal/codec"
	cfgpkg "github.com/rzbill/inferq/internal/config"
	"github.com/rzbill/inferq/internal/inference"
	"github.com/rzbill/inferq/internal/runtime"
	logpkg "github.com/rzbill/inferq/pkg/log"
)

func testConfig(t *testing.T) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.StreamEndpoint = cfgpkg.LocalEndpoint(t.TempDir())
	cfg.ReadBlock = cfgpkg.Duration(20 * time.Millisecond)
	cfg.InferenceTimeout = cfgpkg.Duration(2 * time.Second)
	cfg.ShutdownGrace = cfgpkg.Duration(5 * time.Second)
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.GRPCAddr = "127.0.0.1:0"
	return cfg
}

func quietLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
}

func TestRunProcessesJobAndDrains(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	seed, err := runtime.Open(ctx, runtime.Options{Config: cfg})
	if err != nil {
		t.Fatalf("seed open: %v", err)
	}
	payload, _ := seed.Codec().EncodeJob(codec.Job{JobID: "42", Question: "What is Redis?", Context: "cache"})
	if _, err := seed.Client().Append(ctx, cfg.InputStream, payload); err != nil {
		t.Fatalf("seed append: %v", err)
	}
	_ = seed.Close()

	called := make(chan struct{}, 1)
	backend := inference.Func(func(_ context.Context, q, c string) (inference.Answer, error) {
		select {
		case called <- struct{}{}:
		default:
		}
		time.Sleep(50 * time.Millisecond)
		return inference.Answer{Text: "an in-memory store"}, nil
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- Run(runCtx, Options{Config: cfg, Logger: quietLogger(), Backend: backend})
	}()

	select {
	case <-called:
	case err := <-done:
		t.Fatalf("run returned early: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatalf("backend never called")
	}
	// Cancel while the job is in flight; it must still be published.
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("run did not return after cancel")
	}

	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rt.Close()
	msgs, err := rt.Client().Read(ctx, cfg.OutputStream, "")
	if err != nil {
		t.Fatalf("read results: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 result, got %d", len(msgs))
	}
	res, err := rt.Codec().DecodeResult(msgs[0].Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.JobID != "42" || res.Answer != "an in-memory store" {
		t.Fatalf("unexpected result: %+v", res)
	}
	jobs, err := rt.Client().Read(ctx, cfg.InputStream, "")
	if err != nil {
		t.Fatalf("read jobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("job left unacknowledged: %d", len(jobs))
	}
}

func TestRunUnreachableStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.StreamEndpoint = "redis://127.0.0.1:1/0"
	err := Run(context.Background(), Options{Config: cfg, Logger: quietLogger(), ConnectTimeout: 200 * time.Millisecond})
	if err == nil || !strings.Contains(err.Error(), "cannot connect to stream store") {
		t.Fatalf("expected connect error, got %v", err)
	}
}

func TestRunBadLogConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.Level = "loud"
	if err := Run(context.Background(), Options{Config: cfg}); err == nil {
		t.Fatalf("expected logger error")
	}
}

func TestRunUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backend.Kind = "telepathy"
	if err := Run(context.Background(), Options{Config: cfg, Logger: quietLogger()}); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestRunWritesLogFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.HTTPAddr = ""
	cfg.GRPCAddr = ""
	cfg.Log.Format = "json"
	cfg.Log.File = filepath.Join(t.TempDir(), "inferq.log")
	backend := inference.Func(func(context.Context, string, string) (inference.Answer, error) {
		return inference.Answer{Text: "ok"}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Run(ctx, Options{Config: cfg, Backend: backend}) }()

	deadline := time.Now().Add(10 * time.Second)
	for {
		data, _ := os.ReadFile(cfg.Log.File)
		if strings.Contains(string(data), "Starting inferq worker") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("startup line missing from log file: %s", data)
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestRunLogFileUnwritable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Log.File = filepath.Join(t.TempDir(), "missing", "inferq.log")
	if err := Run(context.Background(), Options{Config: cfg}); err == nil || !strings.Contains(err.Error(), "log file") {
		t.Fatalf("expected log file error, got %v", err)
	}
}
