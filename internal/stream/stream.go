package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rzbill/inferq/pkg/log"
)

// Message is one stream entry. IDs are opaque, unique within a stream and
// increase with append order.
type Message struct {
	ID      string
	Payload []byte
}

// Client is the contract the worker and CLI need from a stream store.
//
// Read returns messages with an ID greater than cursor in ascending order.
// An empty cursor means the start of the stream. Read may block for up to
// Options.ReadBlock and returns an empty slice, not an error, when nothing
// arrives. Append is durable once it returns. Ack removes a message and is
// a no-op for IDs that are already gone.
type Client interface {
	Read(ctx context.Context, stream, cursor string) ([]Message, error)
	Append(ctx context.Context, stream string, payload []byte) (string, error)
	Ack(ctx context.Context, stream, id string) error
	// Len reports how many entries the stream holds, acknowledged ones excluded.
	Len(ctx context.Context, stream string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options tune a Client at open time.
type Options struct {
	// ReadBatch caps the messages returned by one Read. Zero means 16.
	ReadBatch int
	// ReadBlock is the longest a Read waits for new messages. Zero does not wait.
	ReadBlock time.Duration
	// Fields maps a stream name to the entry field holding the payload, for
	// stores with multi-field entries. Streams not listed use DefaultField.
	Fields       map[string]string
	DefaultField string
	// MaxBytes bounds embedded stores by trimming the oldest entries on
	// append. Zero disables trimming.
	MaxBytes int64
	// MaxAge trims entries older than this on append. Zero disables it.
	MaxAge time.Duration
	// StorageMetrics observes embedded store I/O. Optional.
	StorageMetrics StorageMetrics
	Logger         log.Logger
}

// StorageMetrics receives latency and size observations from embedded stores.
type StorageMetrics interface {
	ObserveWrite(elapsed time.Duration, bytes int)
	ObserveRead(elapsed time.Duration, bytes int)
	ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int)
}

const (
	defaultReadBatch = 16
	defaultField     = "payload"
)

// Batch returns ReadBatch or its default.
func (o Options) Batch() int {
	if o.ReadBatch <= 0 {
		return defaultReadBatch
	}
	return o.ReadBatch
}

// FieldFor returns the payload field for stream.
func (o Options) FieldFor(stream string) string {
	if f, ok := o.Fields[stream]; ok && f != "" {
		return f
	}
	if o.DefaultField != "" {
		return o.DefaultField
	}
	return defaultField
}

// Log returns the configured logger or a discarding one.
func (o Options) Log() log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.NewLogger(log.WithOutput(log.NullOutput{}))
}

// TransportError reports a failed store operation. It is always retryable.
type TransportError struct {
	Op     string
	Stream string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Stream == "" {
		return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("stream %s %s: %v", e.Op, e.Stream, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Wrap turns a store error into a *TransportError. nil stays nil and context
// cancellation is passed through untouched so callers can tell shutdown
// from failure.
func Wrap(op, stream string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &TransportError{Op: op, Stream: stream, Err: err}
}
