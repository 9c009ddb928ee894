package worker

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/inferq/internal/codec"
)

// RejectedCause is the error published for jobs the admission filter refuses.
const RejectedCause = "job rejected by filter"

// Filter admits or rejects jobs with a CEL expression over job_id, question
// and context. An empty expression admits everything.
type Filter struct {
	prog cel.Program
	expr string
}

// NewFilter compiles expr. The expression must evaluate to a bool.
func NewFilter(expr string) (*Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Filter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("job_id", cel.StringType),
		cel.Variable("question", cel.StringType),
		cel.Variable("context", cel.StringType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("job filter: %w", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("job filter: expression must return bool, got %s", ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("job filter: %w", err)
	}
	return &Filter{prog: prog, expr: expr}, nil
}

// Allow evaluates the filter. Evaluation errors reject the job.
func (f *Filter) Allow(j codec.Job) (bool, error) {
	if f == nil || f.prog == nil {
		return true, nil
	}
	out, _, err := f.prog.Eval(map[string]any{
		"job_id":   j.JobID,
		"question": j.Question,
		"context":  j.Context,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	return ok && b, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.expr
}
