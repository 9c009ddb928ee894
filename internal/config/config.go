package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultContext is substituted for a blank job context.
const DefaultContext = "Redis is an in-memory database widely used for caching and real-time data."

// Config is the top-level configuration loaded from file/env.
type Config struct {
	StreamEndpoint    string   `json:"stream_endpoint" yaml:"stream_endpoint"`
	InputStream       string   `json:"input_stream" yaml:"input_stream"`
	OutputStream      string   `json:"output_stream" yaml:"output_stream"`
	PayloadField      string   `json:"payload_field" yaml:"payload_field"`
	ResultField       string   `json:"result_field" yaml:"result_field"`
	MaxStreamBytes    int64    `json:"max_stream_bytes" yaml:"max_stream_bytes"`
	MaxStreamAge      Duration `json:"max_stream_age" yaml:"max_stream_age"`
	WorkerConcurrency int      `json:"worker_concurrency" yaml:"worker_concurrency"`
	InferenceTimeout  Duration `json:"inference_timeout" yaml:"inference_timeout"`
	ReadBatch         int      `json:"read_batch" yaml:"read_batch"`
	ReadBlock         Duration `json:"read_block" yaml:"read_block"`
	ShutdownGrace     Duration `json:"shutdown_grace" yaml:"shutdown_grace"`
	DefaultContext    string   `json:"default_context" yaml:"default_context"`
	JobFilter         string   `json:"job_filter" yaml:"job_filter"`

	Backend BackendConfig `json:"backend" yaml:"backend"`
	Retry   RetryConfig   `json:"retry" yaml:"retry"`
	Log     LogConfig     `json:"log" yaml:"log"`

	HTTPAddr string `json:"http_addr" yaml:"http_addr"`
	GRPCAddr string `json:"grpc_addr" yaml:"grpc_addr"`
}

// BackendConfig selects and parameterizes the inference backend.
type BackendConfig struct {
	Kind    string   `json:"kind" yaml:"kind"`
	URL     string   `json:"url" yaml:"url"`
	Model   string   `json:"model" yaml:"model"`
	APIKey  string   `json:"api_key" yaml:"api_key"`
	Command []string `json:"command" yaml:"command"`
}

// RetryConfig bounds exponential backoff on transport errors.
type RetryConfig struct {
	Initial Duration `json:"initial" yaml:"initial"`
	Max     Duration `json:"max" yaml:"max"`
}

// LogConfig mirrors pkg/log.Config for the fields exposed to operators.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// File, when set, also appends log lines to this path.
	File   string   `json:"file,omitempty" yaml:"file,omitempty"`
	Redact []string `json:"redact,omitempty" yaml:"redact,omitempty"`
	// Sampling is enabled when SampleThereafter > 0.
	SampleInitial    int `json:"sample_initial,omitempty" yaml:"sample_initial,omitempty"`
	SampleThereafter int `json:"sample_thereafter,omitempty" yaml:"sample_thereafter,omitempty"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		StreamEndpoint:    "redis://localhost:6379/0",
		InputStream:       "llm_jobs",
		OutputStream:      "llm_results",
		PayloadField:      "payload",
		ResultField:       "result",
		WorkerConcurrency: 4,
		InferenceTimeout:  Duration(30 * time.Second),
		ReadBatch:         16,
		ReadBlock:         Duration(5 * time.Second),
		ShutdownGrace:     Duration(30 * time.Second),
		DefaultContext:    DefaultContext,
		Backend: BackendConfig{
			Kind:    "exec",
			Command: []string{"python", "llm_qa.py"},
		},
		Retry: RetryConfig{
			Initial: Duration(100 * time.Millisecond),
			Max:     Duration(10 * time.Second),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Redact: []string{"api_key"},
		},
		HTTPAddr: ":8080",
		GRPCAddr: ":9090",
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate enforces the invariants the worker relies on.
func (c Config) Validate() error {
	var errs []error
	if c.StreamEndpoint == "" {
		errs = append(errs, errors.New("stream_endpoint is required"))
	}
	if c.InputStream == "" || c.OutputStream == "" {
		errs = append(errs, errors.New("input_stream and output_stream are required"))
	}
	if c.InputStream != "" && c.InputStream == c.OutputStream {
		errs = append(errs, fmt.Errorf("input_stream and output_stream must differ (both %q)", c.InputStream))
	}
	if c.WorkerConcurrency < 1 {
		errs = append(errs, fmt.Errorf("worker_concurrency must be >= 1, got %d", c.WorkerConcurrency))
	}
	if c.InferenceTimeout <= 0 {
		errs = append(errs, errors.New("inference_timeout must be positive"))
	}
	if c.ReadBatch < 1 {
		errs = append(errs, fmt.Errorf("read_batch must be >= 1, got %d", c.ReadBatch))
	}
	if c.ReadBlock < 0 {
		errs = append(errs, errors.New("read_block must not be negative"))
	}
	if c.InferenceTimeout > 0 && c.ShutdownGrace < c.InferenceTimeout {
		errs = append(errs, fmt.Errorf("shutdown_grace (%s) must be at least inference_timeout (%s)",
			c.ShutdownGrace.Std(), c.InferenceTimeout.Std()))
	}
	if c.MaxStreamBytes < 0 || c.MaxStreamAge < 0 {
		errs = append(errs, errors.New("max_stream_bytes and max_stream_age must not be negative"))
	}
	if c.Retry.Initial <= 0 || c.Retry.Max < c.Retry.Initial {
		errs = append(errs, errors.New("retry.initial must be positive and not exceed retry.max"))
	}
	if c.Backend.Kind == "" {
		errs = append(errs, errors.New("backend.kind is required"))
	}
	return errors.Join(errs...)
}
