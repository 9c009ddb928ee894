package eventlog

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/inferq/internal/storage/pebble"
)

// ErrEmptyStream is returned by OpenLog when no stream name is given.
var ErrEmptyStream = errors.New("eventlog: stream name is required")

// Log provides append-only operations for one named stream.
type Log struct {
	db     *pebblestore.DB
	stream string
	now    func() time.Time

	mu       sync.Mutex
	lastSeq  uint64
	notifyCh chan struct{}
}

// OpenLog initializes a Log and loads the last sequence from metadata (if any).
func OpenLog(db *pebblestore.DB, stream string) (*Log, error) {
	if stream == "" {
		return nil, ErrEmptyStream
	}
	l := &Log{db: db, stream: stream, now: time.Now, notifyCh: make(chan struct{})}
	meta, err := db.Get(KeyLogMeta(stream))
	switch {
	case err == nil && len(meta) >= 8:
		l.lastSeq = binary.BigEndian.Uint64(meta[:8])
	case err != nil && !errors.Is(err, pebble.ErrNotFound):
		return nil, err
	}
	return l, nil
}

// Stream returns the stream name this log was opened for.
func (l *Log) Stream() string { return l.stream }

// LastSeq returns the highest sequence ever assigned.
func (l *Log) LastSeq() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// Append appends the payloads as a single atomic batch. Returns assigned seq numbers.
func (l *Log) Append(ctx context.Context, payloads [][]byte) ([]uint64, error) {
	if len(payloads) == 0 {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.db.NewBatch()
	defer b.Close()

	header := timestampHeader(l.now())
	next := l.lastSeq
	seqs := make([]uint64, len(payloads))
	for i, p := range payloads {
		next++
		if err := b.Set(KeyLogEntry(l.stream, next), EncodeRecord(header, p), nil); err != nil {
			return nil, err
		}
		seqs[i] = next
	}

	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], next)
	if err := b.Set(KeyLogMeta(l.stream), meta[:], nil); err != nil {
		return nil, err
	}

	if err := l.db.CommitBatch(ctx, b); err != nil {
		return nil, err
	}
	l.lastSeq = next

	close(l.notifyCh)
	l.notifyCh = make(chan struct{})
	return seqs, nil
}

// Delete removes the entry with the given sequence. It reports whether the
// entry existed; deleting a missing entry is not an error.
func (l *Log) Delete(ctx context.Context, seq uint64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := KeyLogEntry(l.stream, seq)
	ok, err := l.db.Has(key)
	if err != nil || !ok {
		return false, err
	}
	if err := l.db.Delete(key); err != nil {
		return false, err
	}
	return true, nil
}

// Count returns the number of entries currently stored.
func (l *Log) Count() (int, error) {
	iter, err := l.newEntryIter()
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	return n, iter.Error()
}

func (l *Log) newEntryIter() (*pebble.Iterator, error) {
	lo, hi := entryBounds(l.stream)
	return l.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
}
