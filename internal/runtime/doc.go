// Package runtime wires configuration into a running process: the stream
// client chosen by endpoint scheme, the wire codec, the inference backend
// and the job worker. It exposes Open/Close, a health check, and readiness
// for the HTTP and gRPC servers.
//
// Example:
//
//	cfg := config.Default()
//	cfg.StreamEndpoint = config.LocalEndpoint("./data")
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg, Metrics: metrics.New()})
//	defer rt.Close()
//	w, _ := rt.Worker()
//	_ = w.Run(ctx)
package runtime
