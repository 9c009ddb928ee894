// Package stream abstracts the durable append-only store the worker reads
// jobs from and writes results to.
//
// Implementations register themselves by URL scheme; Open picks one from
// the endpoint:
//
//	import _ "github.com/rzbill/inferq/internal/stream/redisstream"
//
//	c, err := stream.Open(ctx, "redis://localhost:6379/0", stream.Options{ReadBatch: 16})
//	msgs, err := c.Read(ctx, "llm_jobs", "")
//	id, err := c.Append(ctx, "llm_results", payload)
//	err = c.Ack(ctx, "llm_jobs", msgs[0].ID)
//
// Every store or connection failure surfaces as *TransportError. Clients do
// not retry; that is the caller's policy.
package stream
