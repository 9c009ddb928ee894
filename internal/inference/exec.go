package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// maxStderr bounds how much subprocess stderr is copied into a cause.
const maxStderr = 512

// Exec runs a command per job with the question and context appended as the
// last two arguments. The command prints {"answer": "..."} on stdout, or
// {"error": "..."} to report a failure.
type Exec struct {
	path string
	args []string
}

// NewExec validates command (program followed by fixed arguments).
func NewExec(command []string) (*Exec, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, errors.New("inference: exec backend needs backend.command")
	}
	return &Exec{path: command[0], args: append([]string(nil), command[1:]...)}, nil
}

type execOutput struct {
	Answer *string `json:"answer"`
	Error  string  `json:"error"`
}

func (e *Exec) Infer(ctx context.Context, question, qaContext string) (Answer, error) {
	args := append(append([]string(nil), e.args...), question, qaContext)
	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Answer{}, &InferenceError{Cause: "inference cancelled: " + ctxErr.Error(), Err: ctxErr}
		}
		cause := err.Error()
		if msg := tail(stderr.String(), maxStderr); msg != "" {
			cause += ": " + msg
		}
		return Answer{}, &InferenceError{Cause: cause, Err: err}
	}

	var out execOutput
	if err := json.Unmarshal(lastLine(stdout.Bytes()), &out); err != nil {
		return Answer{}, Errorf("exec: unreadable output: %w", err)
	}
	if out.Error != "" {
		return Answer{}, &InferenceError{Cause: out.Error}
	}
	if out.Answer == nil {
		return Answer{}, &InferenceError{Cause: "exec: output has no answer"}
	}
	return Answer{Text: *out.Answer}, nil
}

// lastLine returns the final non-empty line, skipping library chatter
// printed before the JSON document.
func lastLine(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return bytes.TrimSpace(b[i+1:])
	}
	return b
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

func (e *Exec) String() string {
	return fmt.Sprintf("exec(%s)", strings.Join(append([]string{e.path}, e.args...), " "))
}
