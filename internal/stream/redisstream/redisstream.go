// Package redisstream implements stream.Client on Redis Streams
// (XREAD / XADD / XDEL). Importing it registers the redis:// and rediss://
// schemes.
package redisstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rzbill/inferq/internal/stream"
	"github.com/rzbill/inferq/pkg/log"
)

func init() {
	stream.Register("redis", open)
	stream.Register("rediss", open)
}

// startCursor is the XREAD id preceding every entry.
const startCursor = "0-0"

// Client talks to one Redis server. It is safe for concurrent use.
type Client struct {
	rdb    *redis.Client
	opts   stream.Options
	logger log.Logger
}

var _ stream.Client = (*Client)(nil)

func open(_ context.Context, u *url.URL, opts stream.Options) (stream.Client, error) {
	ro, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, fmt.Errorf("redisstream: %w", err)
	}
	return New(redis.NewClient(ro), opts), nil
}

// New wraps an existing go-redis client. Close closes rdb.
func New(rdb *redis.Client, opts stream.Options) *Client {
	return &Client{rdb: rdb, opts: opts, logger: opts.Log().WithComponent("redisstream")}
}

func (c *Client) Read(ctx context.Context, s, cursor string) ([]stream.Message, error) {
	if cursor == "" {
		cursor = startCursor
	}
	block := c.opts.ReadBlock
	if block <= 0 {
		// go-redis omits BLOCK for negative values; BLOCK 0 would wait forever.
		block = -1
	}
	res, err := c.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s, cursor},
		Count:   int64(c.opts.Batch()),
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return []stream.Message{}, nil
	}
	if err != nil {
		return nil, stream.Wrap("read", s, err)
	}

	field := c.opts.FieldFor(s)
	out := make([]stream.Message, 0, c.opts.Batch())
	for _, xs := range res {
		for _, xm := range xs.Messages {
			payload, ok := payloadOf(xm.Values, field)
			if !ok {
				c.logger.Warn("entry has no payload field",
					log.Str("stream", s), log.Str("msg_id", xm.ID), log.Str("field", field), log.Int("fields", len(xm.Values)))
			}
			out = append(out, stream.Message{ID: xm.ID, Payload: payload})
		}
	}
	return out, nil
}

// payloadOf returns values[field], or the only value of a single-field entry.
func payloadOf(values map[string]interface{}, field string) ([]byte, bool) {
	if v, ok := values[field]; ok {
		return toBytes(v), true
	}
	if len(values) == 1 {
		for _, v := range values {
			return toBytes(v), true
		}
	}
	return nil, false
}

func toBytes(v interface{}) []byte {
	switch x := v.(type) {
	case string:
		return []byte(x)
	case []byte:
		return x
	default:
		return []byte(fmt.Sprint(x))
	}
}

func (c *Client) Append(ctx context.Context, s string, payload []byte) (string, error) {
	args := &redis.XAddArgs{
		Stream: s,
		Values: []interface{}{c.opts.FieldFor(s), payload},
	}
	if c.opts.MaxAge > 0 {
		// Stream ids start with the entry's millisecond timestamp.
		args.MinID = strconv.FormatInt(time.Now().Add(-c.opts.MaxAge).UnixMilli(), 10) + "-0"
		args.Approx = true
	}
	id, err := c.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", stream.Wrap("append", s, err)
	}
	return id, nil
}

// Ack deletes the entry. XDEL of a missing id returns 0 and is not an error.
func (c *Client) Ack(ctx context.Context, s, id string) error {
	n, err := c.rdb.XDel(ctx, s, id).Result()
	if err != nil {
		return stream.Wrap("ack", s, err)
	}
	if n == 0 {
		c.logger.Debug("ack of missing entry", log.Str("stream", s), log.Str("msg_id", id))
	}
	return nil
}

func (c *Client) Len(ctx context.Context, s string) (int64, error) {
	n, err := c.rdb.XLen(ctx, s).Result()
	if err != nil {
		return 0, stream.Wrap("len", s, err)
	}
	return n, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return stream.Wrap("ping", "", c.rdb.Ping(ctx).Err())
}

func (c *Client) Close() error { return c.rdb.Close() }
