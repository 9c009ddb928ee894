package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Job is a single question-answering request.
type Job struct {
	JobID    string `json:"job_id"`
	Question string `json:"question"`
	Context  string `json:"context,omitempty"`
}

// Result is published once per job. Error is empty on success.
type Result struct {
	JobID  string
	Answer string
	Error  string
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool { return r.Error != "" }

// DecodeError describes a payload that could not be decoded.
type DecodeError struct {
	Raw []byte
	Msg string
}

func (e *DecodeError) Error() string {
	return "decode: " + e.Msg + " (payload " + preview(e.Raw) + ")"
}

// IsDecode reports whether err is or wraps a *DecodeError.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// Codec converts jobs and results to and from stream payloads.
type Codec interface {
	EncodeJob(Job) ([]byte, error)
	DecodeJob([]byte) (Job, error)
	EncodeResult(Result) ([]byte, error)
	DecodeResult([]byte) (Result, error)
}

// JSON is the default Codec.
type JSON struct{}

var _ Codec = JSON{}

type jobWire struct {
	JobID    json.RawMessage `json:"job_id"`
	Question *string         `json:"question"`
	Context  *string         `json:"context"`
}

type resultWire struct {
	JobID  string  `json:"job_id"`
	Answer *string `json:"answer,omitempty"`
	Error  string  `json:"error,omitempty"`
}

func (JSON) EncodeJob(j Job) ([]byte, error) {
	if strings.TrimSpace(j.JobID) == "" {
		return nil, errors.New("encode job: job_id is required")
	}
	return json.Marshal(j)
}

// DecodeJob parses a job payload. job_id may be a string or a JSON number and
// must not be blank; question must be a non-blank string. Unknown fields are
// ignored. Context is returned as sent; substituting a default is up to the
// caller.
func (JSON) DecodeJob(b []byte) (Job, error) {
	var w jobWire
	if err := json.Unmarshal(b, &w); err != nil {
		return Job{}, &DecodeError{Raw: b, Msg: err.Error()}
	}
	id, err := jobIDFromRaw(w.JobID)
	if err != nil {
		return Job{}, &DecodeError{Raw: b, Msg: err.Error()}
	}
	if w.Question == nil || strings.TrimSpace(*w.Question) == "" {
		return Job{}, &DecodeError{Raw: b, Msg: "question is required"}
	}
	j := Job{JobID: id, Question: *w.Question}
	if w.Context != nil {
		j.Context = *w.Context
	}
	return j, nil
}

func jobIDFromRaw(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("job_id is required")
	}
	var id string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("job_id: %w", err)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("job_id: %w", err)
		}
		id = n.String()
	default:
		return "", errors.New("job_id must be a string or number")
	}
	if strings.TrimSpace(id) == "" {
		return "", errors.New("job_id is required")
	}
	return id, nil
}

// EncodeResult emits answer on success and error on failure, never both.
func (JSON) EncodeResult(r Result) ([]byte, error) {
	w := resultWire{JobID: r.JobID}
	if r.Failed() {
		w.Error = r.Error
	} else {
		w.Answer = &r.Answer
	}
	return json.Marshal(w)
}

func (JSON) DecodeResult(b []byte) (Result, error) {
	var w resultWire
	if err := json.Unmarshal(b, &w); err != nil {
		return Result{}, &DecodeError{Raw: b, Msg: err.Error()}
	}
	if w.JobID == "" {
		return Result{}, &DecodeError{Raw: b, Msg: "job_id is required"}
	}
	r := Result{JobID: w.JobID, Error: w.Error}
	if w.Answer != nil {
		r.Answer = *w.Answer
	}
	return r, nil
}

const previewLen = 64

func preview(b []byte) string {
	if len(b) <= previewLen {
		return fmt.Sprintf("%q", b)
	}
	cut := previewLen
	for cut > 0 && !utf8.RuneStart(b[cut]) {
		cut--
	}
	return fmt.Sprintf("%q...", b[:cut])
}
