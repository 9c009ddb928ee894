// Package httpserver exposes the worker's operational endpoints:
// /v1/healthz (stream store reachable), /v1/readyz (worker loop running)
// and /metrics (Prometheus).
//
// Example:
//
//	rt, _ := runtime.Open(ctx, runtime.Options{Config: cfg, Metrics: metrics.New()})
//	s := httpserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
