package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap("read", "s", nil))

	err := Wrap("append", "llm_results", io.ErrUnexpectedEOF)
	require.True(t, IsTransport(err))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "stream append llm_results: unexpected EOF", err.Error())

	assert.Equal(t, context.Canceled, Wrap("read", "s", context.Canceled))
	wrapped := fmt.Errorf("xread: %w", context.DeadlineExceeded)
	assert.False(t, IsTransport(Wrap("read", "s", wrapped)))
}

func TestIsTransportThroughWrapping(t *testing.T) {
	err := fmt.Errorf("worker: %w", &TransportError{Op: "ack", Err: errors.New("conn reset")})
	assert.True(t, IsTransport(err))
	assert.False(t, IsTransport(errors.New("plain")))
	assert.Equal(t, "stream ack: conn reset", errors.Unwrap(err).Error())
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	assert.Equal(t, 16, o.Batch())
	assert.Equal(t, "payload", o.FieldFor("llm_jobs"))
	assert.NotNil(t, o.Log())

	o = Options{ReadBatch: 3, DefaultField: "data", Fields: map[string]string{"llm_results": "result"}}
	assert.Equal(t, 3, o.Batch())
	assert.Equal(t, "result", o.FieldFor("llm_results"))
	assert.Equal(t, "data", o.FieldFor("llm_jobs"))
}

type nopClient struct{ u *url.URL }

func (nopClient) Read(context.Context, string, string) ([]Message, error) { return nil, nil }
func (nopClient) Append(context.Context, string, []byte) (string, error)  { return "1", nil }
func (nopClient) Ack(context.Context, string, string) error               { return nil }
func (nopClient) Len(context.Context, string) (int64, error)              { return 0, nil }
func (nopClient) Ping(context.Context) error                              { return nil }
func (nopClient) Close() error                                            { return nil }

func TestOpenDispatchesOnScheme(t *testing.T) {
	var got *url.URL
	Register("Test-Mem", func(_ context.Context, u *url.URL, _ Options) (Client, error) {
		got = u
		return nopClient{u: u}, nil
	})
	c, err := Open(context.Background(), "test-mem://host/db?x=1", Options{})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "host", got.Host)
	assert.Contains(t, Schemes(), "test-mem")
}

func TestOpenUnknownScheme(t *testing.T) {
	_, err := Open(context.Background(), "kafka://broker:9092", Options{})
	assert.ErrorIs(t, err, ErrUnknownScheme)

	_, err = Open(context.Background(), "://bad", Options{})
	assert.Error(t, err)
}
