// Package workerrun exposes the Run entrypoint behind `inferq worker start`.
// It builds the logger and metrics, connects to the stream store, starts
// the HTTP and gRPC servers and runs the job worker until the context is
// cancelled or SIGINT/SIGTERM arrives. The servers outlive the worker's
// drain so probes keep answering while in-flight jobs finish.
//
// Example:
//
//	cfg, _ := config.Load("inferq.yaml")
//	_ = config.FromEnv(&cfg)
//	_ = workerrun.Run(ctx, workerrun.Options{Config: cfg})
package workerrun
