// Package worker runs the job loop: one poller reads the input stream into a
// bounded queue, and a fixed pool of tasks drains it. Each task decodes the
// job, runs inference under a timeout, publishes exactly one result and only
// then acknowledges the input message.
//
// Failure handling per message:
//   - malformed payload: logged, acknowledged, no result
//   - inference error or timeout: error result published, then acknowledged
//   - transport error: the read, append or ack is retried with backoff
//
// Shutdown stops the poller at once. In-flight jobs keep a separate drain
// context that is cancelled only after Options.ShutdownGrace, so a job is
// never abandoned between publish and ack unless the grace period runs out;
// such a message stays unacknowledged and is redelivered on the next run.
package worker
