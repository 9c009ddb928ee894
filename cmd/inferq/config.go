package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "github.com/rzbill/inferq/internal/config"
)

// loadConfig layers the config file, then INFERQ_* environment variables,
// then flags the user actually set.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	if err := cfgpkg.FromEnv(&cfg); err != nil {
		return cfgpkg.Config{}, err
	}
	applyFlags(cmd.Flags(), &cfg)
	return cfg, cfg.Validate()
}

func applyFlags(fs *pflag.FlagSet, cfg *cfgpkg.Config) {
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if fs.Changed(name) {
			*dst, _ = fs.GetInt(name)
		}
	}
	dur := func(name string, dst *cfgpkg.Duration) {
		if fs.Changed(name) {
			d, _ := fs.GetDuration(name)
			*dst = cfgpkg.Duration(d)
		}
	}

	str("endpoint", &cfg.StreamEndpoint)
	if fs.Changed("data-dir") {
		dir, _ := fs.GetString("data-dir")
		cfg.StreamEndpoint = cfgpkg.LocalEndpoint(dir)
	}
	str("input-stream", &cfg.InputStream)
	str("output-stream", &cfg.OutputStream)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	str("log-file", &cfg.Log.File)

	num("concurrency", &cfg.WorkerConcurrency)
	dur("inference-timeout", &cfg.InferenceTimeout)
	num("read-batch", &cfg.ReadBatch)
	dur("read-block", &cfg.ReadBlock)
	dur("shutdown-grace", &cfg.ShutdownGrace)
	str("backend", &cfg.Backend.Kind)
	str("backend-url", &cfg.Backend.URL)
	str("model", &cfg.Backend.Model)
	str("filter", &cfg.JobFilter)
	str("http", &cfg.HTTPAddr)
	str("grpc", &cfg.GRPCAddr)
}
