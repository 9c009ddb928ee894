// Package codec defines the job and result wire formats.
//
// Jobs arrive as JSON objects {"job_id", "question", "context"}; results
// leave as {"job_id", "answer"} or {"job_id", "error"}. Decoding never
// panics and reports malformed input as *DecodeError, which carries the raw
// bytes so callers can log what they dropped.
package codec
