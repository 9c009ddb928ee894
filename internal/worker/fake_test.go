package worker

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rzbill/inferq/internal/codec"
	"github.com/rzbill/inferq/internal/stream"
)

// memStream is an in-memory stream.Client with fault injection.
type memStream struct {
	mu      sync.Mutex
	seq     int
	entries map[string][]stream.Message
	acks    map[string]int

	failReads   int
	failAppends int
	failAcks    int
}

func newMemStream() *memStream {
	return &memStream{entries: map[string][]stream.Message{}, acks: map[string]int{}}
}

var errConnReset = errors.New("connection reset by peer")

func (m *memStream) Read(ctx context.Context, s, cursor string) ([]stream.Message, error) {
	after := 0
	if cursor != "" {
		after, _ = strconv.Atoi(cursor)
	}
	m.mu.Lock()
	if m.failReads > 0 {
		m.failReads--
		m.mu.Unlock()
		return nil, stream.Wrap("read", s, errConnReset)
	}
	var out []stream.Message
	for _, e := range m.entries[s] {
		if id, _ := strconv.Atoi(e.ID); id > after {
			out = append(out, e)
		}
	}
	m.mu.Unlock()
	if len(out) > 0 {
		return out, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Millisecond):
		return nil, nil
	}
}

func (m *memStream) Append(ctx context.Context, s string, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppends > 0 {
		m.failAppends--
		return "", stream.Wrap("append", s, errConnReset)
	}
	m.seq++
	id := strconv.Itoa(m.seq)
	m.entries[s] = append(m.entries[s], stream.Message{ID: id, Payload: append([]byte(nil), payload...)})
	return id, nil
}

func (m *memStream) Ack(ctx context.Context, s, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAcks > 0 {
		m.failAcks--
		return stream.Wrap("ack", s, errConnReset)
	}
	kept := m.entries[s][:0]
	for _, e := range m.entries[s] {
		if e.ID == id {
			m.acks[s+"/"+id]++
			continue
		}
		kept = append(kept, e)
	}
	m.entries[s] = kept
	return nil
}

func (m *memStream) Ping(context.Context) error { return nil }
func (m *memStream) Close() error               { return nil }

func (m *memStream) Len(_ context.Context, s string) (int64, error) {
	return int64(m.pending(s)), nil
}

func (m *memStream) pending(s string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries[s])
}

func (m *memStream) results() []codec.Result {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]codec.Result, 0, len(m.entries["out"]))
	for _, e := range m.entries["out"] {
		r, err := codec.JSON{}.DecodeResult(e.Payload)
		if err == nil {
			out = append(out, r)
		}
	}
	return out
}

func (m *memStream) rawResults() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries["out"]))
	for _, e := range m.entries["out"] {
		out = append(out, string(e.Payload))
	}
	return out
}

// recHooks records observations for assertions.
type recHooks struct {
	mu       sync.Mutex
	outcomes map[Outcome]int
	states   map[State]int
	retries  map[string]int
	inFlight int
	maxIn    int
}

func newRecHooks() *recHooks {
	return &recHooks{outcomes: map[Outcome]int{}, states: map[State]int{}, retries: map[string]int{}}
}

func (h *recHooks) JobDone(o Outcome, s State, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcomes[o]++
	h.states[s]++
}

func (h *recHooks) InferenceDone(Outcome, time.Duration) {}

func (h *recHooks) TransportRetry(op string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retries[op]++
}

func (h *recHooks) InFlight(d int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inFlight += d
	if h.inFlight > h.maxIn {
		h.maxIn = h.inFlight
	}
}

func (h *recHooks) outcome(o Outcome) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcomes[o]
}

func (h *recHooks) retried(op string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.retries[op]
}
