// Package grpcserver hosts the standard grpc.health.v1.Health service for
// the worker. Status is SERVING while the worker loop runs and the stream
// store is reachable, and NOT_SERVING once shutdown starts.
//
// Example:
//
//	s := grpcserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":9090")
package grpcserver
