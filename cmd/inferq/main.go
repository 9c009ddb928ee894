package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/inferq/internal/cmd/client"
	workerrun "github.com/rzbill/inferq/internal/cmd/worker"
)

func main() {
	// A missing .env is fine; a malformed one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "inferq: load .env: %v\n", err)
		os.Exit(1)
	}
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "inferq",
		Short: "LLM question-answering stream worker",
		Long: "inferq reads question-answering jobs from a stream, runs them through an " +
			"inference backend and publishes one result per job to an output stream.",
		SilenceUsage: true,
	}
	pf := rootCmd.PersistentFlags()
	pf.String("config", os.Getenv("INFERQ_CONFIG"), "Config file (.json, .yaml or .yml)")
	pf.String("endpoint", "", "Stream store endpoint: redis://host:port/db or pebble:///dir")
	pf.String("data-dir", "", "Use the embedded store in this directory (overrides --endpoint)")
	pf.String("input-stream", "", "Stream jobs are read from")
	pf.String("output-stream", "", "Stream results are appended to")
	pf.String("log-level", "", "Log level: debug|info|warn|error")
	pf.String("log-format", "", "Log format: text|json")
	pf.String("log-file", "", "Also append logs to this file")

	workerCmd := &cobra.Command{Use: "worker", Short: "Worker commands"}
	workerStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Run the job worker with its HTTP and gRPC probes",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := workerrun.Run(cmd.Context(), workerrun.Options{Config: cfg}); err != nil {
				return fmt.Errorf("worker error: %w", err)
			}
			return nil
		},
	}
	wf := workerStartCmd.Flags()
	wf.Int("concurrency", 0, "Concurrent pipeline tasks")
	wf.Duration("inference-timeout", 0, "Per-job inference timeout")
	wf.Int("read-batch", 0, "Messages fetched per read")
	wf.Duration("read-block", 0, "Longest wait for new messages per read")
	wf.Duration("shutdown-grace", 0, "Time in-flight jobs get after shutdown starts")
	wf.String("backend", "", "Inference backend: exec|ollama|openai")
	wf.String("backend-url", "", "Backend base URL")
	wf.String("model", "", "Backend model name")
	wf.String("filter", "", "CEL job admission filter over job_id, question and context")
	wf.String("http", "", "HTTP listen address for probes and metrics (empty string disables)")
	wf.String("grpc", "", "gRPC health listen address (empty string disables)")
	workerCmd.AddCommand(workerStartCmd)
	rootCmd.AddCommand(workerCmd)

	rootCmd.AddCommand(
		clientcmd.NewJobCommand(loadConfig),
		clientcmd.NewResultCommand(loadConfig),
		clientcmd.NewStreamCommand(loadConfig),
	)
	return rootCmd
}
