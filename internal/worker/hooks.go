package worker

import "time"

// Hooks observe the worker. Implementations must be safe for concurrent use
// and must not block.
type Hooks interface {
	// JobDone is called once per message with its final state.
	JobDone(outcome Outcome, state State, elapsed time.Duration)
	// InferenceDone is called after every backend call, including timeouts.
	InferenceDone(outcome Outcome, elapsed time.Duration)
	// TransportRetry is called before each retry of a failed stream operation.
	TransportRetry(op string)
	// InFlight reports a change in the number of messages being processed.
	InFlight(delta int)
}

// NopHooks discards all observations.
type NopHooks struct{}

func (NopHooks) JobDone(Outcome, State, time.Duration) {}
func (NopHooks) InferenceDone(Outcome, time.Duration)  {}
func (NopHooks) TransportRetry(string)                 {}
func (NopHooks) InFlight(int)                          {}
