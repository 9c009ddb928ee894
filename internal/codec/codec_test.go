package codec

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecodeJob(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Job
	}{
		{"full", `{"job_id":"42","question":"What is Redis?","context":"db"}`, Job{JobID: "42", Question: "What is Redis?", Context: "db"}},
		{"no context", `{"job_id":"42","question":"What is Redis?"}`, Job{JobID: "42", Question: "What is Redis?"}},
		{"numeric id", `{"job_id":7,"question":"x","context":"y"}`, Job{JobID: "7", Question: "x", Context: "y"}},
		{"extra fields", `{"job_id":"a","question":"q","useKnowledgeBase":"true"}`, Job{JobID: "a", Question: "q"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSON{}.DecodeJob([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJobMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":      `not json at all`,
		"missing id":    `{"question":"q"}`,
		"blank id":      `{"job_id":"  ","question":"q"}`,
		"null id":       `{"job_id":null,"question":"q"}`,
		"object id":     `{"job_id":{},"question":"q"}`,
		"missing q":     `{"job_id":"1"}`,
		"blank q":       `{"job_id":"1","question":""}`,
		"question type": `{"job_id":"1","question":3}`,
		"array":         `[1,2,3]`,
		"empty":         ``,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := JSON{}.DecodeJob([]byte(in))
			require.Error(t, err)
			var de *DecodeError
			require.True(t, errors.As(err, &de), "want *DecodeError, got %T", err)
			assert.Equal(t, []byte(in), de.Raw)
			assert.True(t, IsDecode(err))
		})
	}
}

func TestEncodeResultShape(t *testing.T) {
	ok, err := JSON{}.EncodeResult(Result{JobID: "42", Answer: "an in-memory database"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"42","answer":"an in-memory database"}`, string(ok))

	empty, err := JSON{}.EncodeResult(Result{JobID: "1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"1","answer":""}`, string(empty))

	failed, err := JSON{}.EncodeResult(Result{JobID: "7", Answer: "ignored", Error: "backend down"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"7","error":"backend down"}`, string(failed))
}

func TestDecodeResult(t *testing.T) {
	r, err := JSON{}.DecodeResult([]byte(`{"job_id":"7","error":"boom"}`))
	require.NoError(t, err)
	assert.True(t, r.Failed())
	assert.Equal(t, "boom", r.Error)

	_, err = JSON{}.DecodeResult([]byte(`{"answer":"x"}`))
	assert.True(t, IsDecode(err))
}

func TestEncodeJobRequiresID(t *testing.T) {
	_, err := JSON{}.EncodeJob(Job{Question: "q"})
	assert.Error(t, err)
}

func TestDecodeErrorPreviewTruncates(t *testing.T) {
	raw := []byte(strings.Repeat("x", 500))
	err := &DecodeError{Raw: raw, Msg: "bad"}
	assert.Less(t, len(err.Error()), 120)
	assert.Contains(t, err.Error(), "...")
}

func TestJobRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		j := Job{
			JobID:    rapid.StringMatching(`[A-Za-z0-9_-]{1,24}`).Draw(t, "id"),
			Question: rapid.StringMatching(`[a-zA-Z0-9][ -~]{0,40}`).Draw(t, "q"),
			Context:  rapid.String().Draw(t, "ctx"),
		}
		b, err := JSON{}.EncodeJob(j)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, err := JSON{}.DecodeJob(b)
		if err != nil {
			t.Fatalf("decode %s: %v", b, err)
		}
		if got != j {
			t.Fatalf("round trip: got %+v want %+v", got, j)
		}
	})
}

func TestResultPreservesJobIDProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := Result{
			JobID:  rapid.StringMatching(`.{1,32}`).Draw(t, "id"),
			Answer: rapid.String().Draw(t, "answer"),
			Error:  rapid.SampledFrom([]string{"", "timeout", "backend failed"}).Draw(t, "err"),
		}
		b, err := JSON{}.EncodeResult(r)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(b, &raw); err != nil {
			t.Fatalf("not json: %v", err)
		}
		_, hasAnswer := raw["answer"]
		_, hasError := raw["error"]
		if hasAnswer == hasError {
			t.Fatalf("exactly one of answer/error expected: %s", b)
		}
		got, err := JSON{}.DecodeResult(b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.JobID != r.JobID {
			t.Fatalf("job_id changed: %q -> %q", r.JobID, got.JobID)
		}
	})
}
