// Package localstream implements stream.Client on an embedded Pebble store,
// one eventlog.Log per stream. Importing it registers the pebble:// scheme:
//
//	pebble:///var/lib/inferq?fsync=interval
//
// Message IDs are decimal sequence numbers. Options.MaxAge and
// Options.MaxBytes are enforced after each append. It serves single-node
// deployments and tests that need a real durable store without Redis.
package localstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rzbill/inferq/internal/eventlog"
	pebblestore "github.com/rzbill/inferq/internal/storage/pebble"
	"github.com/rzbill/inferq/internal/stream"
	"github.com/rzbill/inferq/pkg/log"
)

func init() {
	stream.Register("pebble", open)
}

var errClosed = errors.New("store closed")

// trimBatch bounds deletes per commit when enforcing MaxBytes.
const trimBatch = 512

type Client struct {
	db     *pebblestore.DB
	opts   stream.Options
	logger log.Logger

	// mu guards closed; operations hold it shared so Close waits for them.
	mu     sync.RWMutex
	closed bool

	logsMu sync.Mutex
	logs   map[string]*eventlog.Log
}

var _ stream.Client = (*Client)(nil)

func open(_ context.Context, u *url.URL, opts stream.Options) (stream.Client, error) {
	dir := u.Host + u.Path
	if dir == "" {
		return nil, errors.New("localstream: endpoint needs a directory, e.g. pebble:///var/lib/inferq")
	}
	fsync, err := pebblestore.ParseFsyncMode(u.Query().Get("fsync"))
	if err != nil {
		return nil, fmt.Errorf("localstream: %w", err)
	}
	return Open(pebblestore.Options{DataDir: dir, Fsync: fsync}, opts)
}

// Open opens (or creates) the store described by po.
func Open(po pebblestore.Options, opts stream.Options) (*Client, error) {
	if po.Metrics == nil && opts.StorageMetrics != nil {
		po.Metrics = opts.StorageMetrics
	}
	db, err := pebblestore.Open(po)
	if err != nil {
		return nil, stream.Wrap("open", "", err)
	}
	return &Client{
		db:     db,
		opts:   opts,
		logger: opts.Log().WithComponent("localstream"),
		logs:   make(map[string]*eventlog.Log),
	}, nil
}

// logFor returns the log for s, opening it on first use. Callers hold c.mu.RLock.
func (c *Client) logFor(s string) (*eventlog.Log, error) {
	c.logsMu.Lock()
	defer c.logsMu.Unlock()
	if l, ok := c.logs[s]; ok {
		return l, nil
	}
	l, err := eventlog.OpenLog(c.db, s)
	if err != nil {
		return nil, err
	}
	c.logs[s] = l
	return l, nil
}

// acquire read-locks the client and fails once it has been closed.
func (c *Client) acquire() error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return errClosed
	}
	return nil
}

func (c *Client) Read(ctx context.Context, s, cursor string) ([]stream.Message, error) {
	after, err := parseID(cursor)
	if err != nil {
		return nil, err
	}
	l, err := c.openLog(s)
	if err != nil {
		return nil, stream.Wrap("read", s, err)
	}

	sig := l.AppendSignal()
	var items []stream.Message
	if after < l.LastSeq() {
		items, err = c.readAfter(l, after)
		if err != nil || len(items) > 0 {
			return items, err
		}
	}
	if c.opts.ReadBlock <= 0 {
		return []stream.Message{}, nil
	}
	if !eventlog.WaitSignal(ctx, sig, c.opts.ReadBlock) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []stream.Message{}, nil
	}
	return c.readAfter(l, after)
}

func (c *Client) readAfter(l *eventlog.Log, after uint64) ([]stream.Message, error) {
	if err := c.acquire(); err != nil {
		return nil, stream.Wrap("read", l.Stream(), err)
	}
	defer c.mu.RUnlock()
	items, err := l.ReadAfter(after, c.opts.Batch())
	if err != nil {
		return nil, stream.Wrap("read", l.Stream(), err)
	}
	out := make([]stream.Message, len(items))
	for i, it := range items {
		out[i] = stream.Message{ID: formatID(it.Seq), Payload: it.Payload}
	}
	return out, nil
}

func (c *Client) openLog(s string) (*eventlog.Log, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.mu.RUnlock()
	return c.logFor(s)
}

func (c *Client) Append(ctx context.Context, s string, payload []byte) (string, error) {
	if err := c.acquire(); err != nil {
		return "", stream.Wrap("append", s, err)
	}
	defer c.mu.RUnlock()
	l, err := c.logFor(s)
	if err != nil {
		return "", stream.Wrap("append", s, err)
	}
	seqs, err := l.Append(ctx, [][]byte{payload})
	if err != nil {
		return "", stream.Wrap("append", s, err)
	}
	c.retain(ctx, l)
	return formatID(seqs[0]), nil
}

// retain applies MaxAge, then MaxBytes. Failures are logged; the append
// has already succeeded.
func (c *Client) retain(ctx context.Context, l *eventlog.Log) {
	deleted := 0
	if c.opts.MaxAge > 0 {
		n, _, err := l.TrimOlderThan(ctx, time.Now().Add(-c.opts.MaxAge), trimBatch)
		if err != nil {
			c.logger.Warn("age retention failed", log.Str("stream", l.Stream()), log.Err(err))
		}
		deleted += n
	}
	if c.opts.MaxBytes > 0 {
		n, err := l.TrimToMaxBytes(ctx, c.opts.MaxBytes, trimBatch)
		if err != nil {
			c.logger.Warn("size retention failed", log.Str("stream", l.Stream()), log.Err(err))
		}
		deleted += n
	}
	if deleted > 0 {
		c.logger.Debug("retention trimmed entries", log.Str("stream", l.Stream()), log.Int("deleted", deleted))
	}
}

func (c *Client) Len(_ context.Context, s string) (int64, error) {
	if err := c.acquire(); err != nil {
		return 0, stream.Wrap("len", s, err)
	}
	defer c.mu.RUnlock()
	l, err := c.logFor(s)
	if err != nil {
		return 0, stream.Wrap("len", s, err)
	}
	n, err := l.Count()
	if err != nil {
		return 0, stream.Wrap("len", s, err)
	}
	return int64(n), nil
}

func (c *Client) Ack(ctx context.Context, s, id string) error {
	seq, err := parseID(id)
	if err != nil {
		return err
	}
	if err := c.acquire(); err != nil {
		return stream.Wrap("ack", s, err)
	}
	defer c.mu.RUnlock()
	l, err := c.logFor(s)
	if err != nil {
		return stream.Wrap("ack", s, err)
	}
	existed, err := l.Delete(ctx, seq)
	if err != nil {
		return stream.Wrap("ack", s, err)
	}
	if !existed {
		c.logger.Debug("ack of missing entry", log.Str("stream", s), log.Str("msg_id", id))
	}
	return nil
}

func (c *Client) Ping(context.Context) error {
	if err := c.acquire(); err != nil {
		return stream.Wrap("ping", "", err)
	}
	c.mu.RUnlock()
	return nil
}

// Close closes the underlying store. Later calls fail with a TransportError.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

func formatID(seq uint64) string { return strconv.FormatUint(seq, 10) }

func parseID(id string) (uint64, error) {
	if id == "" {
		return 0, nil
	}
	seq, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("localstream: invalid id %q", id)
	}
	return seq, nil
}
