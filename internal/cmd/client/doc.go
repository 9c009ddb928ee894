// Package client provides the producer and consumer helper commands of the
// `inferq` CLI. They talk to the stream store directly, using the same
// endpoint and stream names as the worker.
//
// Usage
//
//	inferq job submit --question "What is Redis?" --context "Redis is ..." --id 42
//
//	# Print every result, then exit
//	inferq result tail
//	# Follow new results after a given id
//	inferq result tail --from 1712345678901-0 --follow
//
//	# Drop a job by hand
//	inferq stream ack --stream llm_jobs --id 1712345678901-0
//
// Notes
//
//   - result tail never acknowledges results; consumers own that.
//   - A job submitted with a blank --context is answered against the
//     worker's default context.
package client
