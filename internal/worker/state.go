package worker

// State is the lifecycle position of one message.
type State int

const (
	StateReceived State = iota
	StateDecoded
	StateInferred
	StatePublished
	StateAcknowledged
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateDecoded:
		return "decoded"
	case StateInferred:
		return "inferred"
	case StatePublished:
		return "published"
	case StateAcknowledged:
		return "acknowledged"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome classifies how a message ended.
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeError     Outcome = "inference_error"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeRejected  Outcome = "rejected"
	OutcomeMalformed Outcome = "malformed"
	// OutcomeFailed means the result or ack could not be written; the
	// message was left unacknowledged.
	OutcomeFailed Outcome = "failed"
)
