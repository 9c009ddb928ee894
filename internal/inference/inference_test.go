package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/inferq/internal/config"
)

func TestAsInferenceError(t *testing.T) {
	assert.Nil(t, AsInferenceError(nil))

	ie := &InferenceError{Cause: "model overloaded"}
	assert.Same(t, ie, AsInferenceError(ie))

	wrapped := AsInferenceError(io.ErrUnexpectedEOF)
	assert.Equal(t, "unexpected EOF", wrapped.Cause)
	assert.ErrorIs(t, wrapped, io.ErrUnexpectedEOF)

	assert.Equal(t, "inference failed", AsInferenceError(errors.New("  ")).Cause)
}

func TestFuncAdapter(t *testing.T) {
	var b Backend = Func(func(_ context.Context, q, c string) (Answer, error) {
		return Answer{Text: q + "|" + c}, nil
	})
	a, err := b.Infer(context.Background(), "q", "c")
	require.NoError(t, err)
	assert.Equal(t, "q|c", a.Text)
}

func TestOpen(t *testing.T) {
	b, err := Open(config.BackendConfig{Kind: "ollama"})
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, b)

	b, err = Open(config.BackendConfig{Kind: "OpenAI", APIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, b)

	_, err = Open(config.BackendConfig{Kind: "openai"})
	assert.Error(t, err)

	_, err = Open(config.BackendConfig{Kind: "exec"})
	assert.Error(t, err)

	_, err = Open(config.BackendConfig{Kind: "tensorrt"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func shBackend(t *testing.T, script string) *Exec {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	e, err := NewExec([]string{"sh", "-c", script, "qa"})
	require.NoError(t, err)
	return e
}

func TestExecAnswer(t *testing.T) {
	e := shBackend(t, `echo "loading model..."; printf '{"answer":"%s / %s"}\n' "$1" "$2"`)
	a, err := e.Infer(context.Background(), "What is Redis?", "db")
	require.NoError(t, err)
	assert.Equal(t, "What is Redis? / db", a.Text)
}

func TestExecErrorField(t *testing.T) {
	e := shBackend(t, `echo '{"error":"context too long"}'`)
	_, err := e.Infer(context.Background(), "q", "c")
	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "context too long", ie.Cause)
}

func TestExecNonZeroExitCarriesStderr(t *testing.T) {
	e := shBackend(t, `echo "CUDA out of memory" >&2; exit 3`)
	_, err := e.Infer(context.Background(), "q", "c")
	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Cause, "exit status 3")
	assert.Contains(t, ie.Cause, "CUDA out of memory")
}

func TestExecBadOutput(t *testing.T) {
	e := shBackend(t, `echo not-json`)
	_, err := e.Infer(context.Background(), "q", "c")
	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Cause, "unreadable output")
}

func TestExecHonoursContext(t *testing.T) {
	e := shBackend(t, `sleep 10`)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := e.Infer(ctx, "q", "c")
	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream)
		assert.Contains(t, req.Prompt, "Question: What is Redis?")
		_, _ = io.WriteString(w, `{"response":" an in-memory database "}`)
	}))
	defer srv.Close()

	a, err := NewOllama(srv.URL+"/", "").Infer(context.Background(), "What is Redis?", "")
	require.NoError(t, err)
	assert.Equal(t, "an in-memory database", a.Text)
}

func TestOllamaStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "missing").Infer(context.Background(), "q", "c")
	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "ollama error (status 404): model not found", ie.Cause)
}

func TestOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.True(t, strings.HasPrefix(req.Messages[1].Content, "Context:\nsome context"))
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"42"}}]}`)
	}))
	defer srv.Close()

	a, err := NewOpenAI(srv.URL, "", "sk-test").Infer(context.Background(), "q", "some context")
	require.NoError(t, err)
	assert.Equal(t, "42", a.Text)
}

func TestOpenAIErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"api error", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, "openai error (status 401): bad key"},
		{"plain error", http.StatusBadGateway, `upstream down`, "openai error (status 502): upstream down"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "openai: response has no choices"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewOpenAI(srv.URL, "m", "k").Infer(context.Background(), "q", "c")
			var ie *InferenceError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.want, ie.Cause)
		})
	}
}

func TestHTTPBackendsHonourContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewOllama(srv.URL, "m").Infer(ctx, "q", "c")
	var ie *InferenceError
	require.ErrorAs(t, err, &ie)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
