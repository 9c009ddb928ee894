// Package inference defines the backend that turns a question and its
// context into an answer, plus the bundled implementations: a subprocess
// runner (exec), Ollama and OpenAI-compatible chat APIs.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rzbill/inferq/internal/config"
)

// ErrUnknownBackend is returned by Open for an unrecognised backend kind.
var ErrUnknownBackend = errors.New("inference: unknown backend")

// Answer is a successful inference.
type Answer struct {
	Text string
}

// Backend answers a question given a context. Infer must honour ctx.
type Backend interface {
	Infer(ctx context.Context, question, qaContext string) (Answer, error)
}

// Func adapts a function to Backend.
type Func func(ctx context.Context, question, qaContext string) (Answer, error)

func (f Func) Infer(ctx context.Context, question, qaContext string) (Answer, error) {
	return f(ctx, question, qaContext)
}

// InferenceError is a permanent failure for one job. Cause is what ends up
// in the published result.
type InferenceError struct {
	Cause string
	Err   error
}

func (e *InferenceError) Error() string { return e.Cause }
func (e *InferenceError) Unwrap() error { return e.Err }

// Errorf builds an InferenceError with a formatted cause.
func Errorf(format string, args ...any) *InferenceError {
	err := fmt.Errorf(format, args...)
	return &InferenceError{Cause: err.Error(), Err: errors.Unwrap(err)}
}

// AsInferenceError returns err as an *InferenceError, wrapping it if needed.
// It returns nil for a nil err.
func AsInferenceError(err error) *InferenceError {
	if err == nil {
		return nil
	}
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie
	}
	cause := strings.TrimSpace(err.Error())
	if cause == "" {
		cause = "inference failed"
	}
	return &InferenceError{Cause: cause, Err: err}
}

// Open builds the backend selected by cfg.Kind.
func Open(cfg config.BackendConfig) (Backend, error) {
	switch strings.ToLower(cfg.Kind) {
	case "exec":
		return NewExec(cfg.Command)
	case "ollama":
		return NewOllama(cfg.URL, cfg.Model), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("inference: openai backend needs backend.api_key")
		}
		return NewOpenAI(cfg.URL, cfg.Model, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("%w %q (want exec, ollama or openai)", ErrUnknownBackend, cfg.Kind)
	}
}
