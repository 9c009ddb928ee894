package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// FromEnv overlays INFERQ_* environment variables onto cfg. REDIS_URL is
// honoured as a stream endpoint when INFERQ_STREAM_ENDPOINT is unset.
// Unparseable values are reported rather than silently ignored.
func FromEnv(cfg *Config) error {
	var bad []string
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				bad = append(bad, name)
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				bad = append(bad, name)
				return
			}
			*dst = Duration(d)
		}
	}

	str("REDIS_URL", &cfg.StreamEndpoint)
	str("INFERQ_STREAM_ENDPOINT", &cfg.StreamEndpoint)
	str("INFERQ_INPUT_STREAM", &cfg.InputStream)
	str("INFERQ_OUTPUT_STREAM", &cfg.OutputStream)
	str("INFERQ_PAYLOAD_FIELD", &cfg.PayloadField)
	str("INFERQ_RESULT_FIELD", &cfg.ResultField)
	if v := os.Getenv("INFERQ_MAX_STREAM_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			bad = append(bad, "INFERQ_MAX_STREAM_BYTES")
		} else {
			cfg.MaxStreamBytes = n
		}
	}
	dur("INFERQ_MAX_STREAM_AGE", &cfg.MaxStreamAge)
	num("INFERQ_WORKER_CONCURRENCY", &cfg.WorkerConcurrency)
	dur("INFERQ_INFERENCE_TIMEOUT", &cfg.InferenceTimeout)
	num("INFERQ_READ_BATCH", &cfg.ReadBatch)
	dur("INFERQ_READ_BLOCK", &cfg.ReadBlock)
	dur("INFERQ_SHUTDOWN_GRACE", &cfg.ShutdownGrace)
	str("INFERQ_DEFAULT_CONTEXT", &cfg.DefaultContext)
	str("INFERQ_JOB_FILTER", &cfg.JobFilter)

	str("INFERQ_BACKEND_KIND", &cfg.Backend.Kind)
	str("INFERQ_BACKEND_URL", &cfg.Backend.URL)
	str("INFERQ_BACKEND_MODEL", &cfg.Backend.Model)
	str("INFERQ_BACKEND_API_KEY", &cfg.Backend.APIKey)
	if v := os.Getenv("INFERQ_BACKEND_COMMAND"); v != "" {
		cfg.Backend.Command = strings.Fields(v)
	}

	dur("INFERQ_RETRY_INITIAL", &cfg.Retry.Initial)
	dur("INFERQ_RETRY_MAX", &cfg.Retry.Max)
	str("INFERQ_LOG_LEVEL", &cfg.Log.Level)
	str("INFERQ_LOG_FORMAT", &cfg.Log.Format)
	str("INFERQ_LOG_FILE", &cfg.Log.File)
	str("INFERQ_HTTP_ADDR", &cfg.HTTPAddr)
	str("INFERQ_GRPC_ADDR", &cfg.GRPCAddr)

	if len(bad) > 0 {
		return fmt.Errorf("config: invalid values in %s", strings.Join(bad, ", "))
	}
	return nil
}
