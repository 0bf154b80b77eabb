// Package runtime provides the top-level PureLisp orchestrator: it wires the
// reader, validator, evaluator, middle-end and code generators together.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/cgen"
	"github.com/thomasrohde/purelisp/pkg/compiler"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/evaluator"
	"github.com/thomasrohde/purelisp/pkg/formatter"
	"github.com/thomasrohde/purelisp/pkg/llvmgen"
	"github.com/thomasrohde/purelisp/pkg/parser"
	"github.com/thomasrohde/purelisp/pkg/stdlib"
	"github.com/thomasrohde/purelisp/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	// Values has one entry per top-level form.
	Values []evaluator.Value
}

// Runtime wires together all PureLisp components.
type Runtime struct {
	out         io.Writer
	prelude     *stdlib.Registry
	trace       func(stage compiler.Stage, prog ast.Program)
	stageChecks bool
	maxDepth    int
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithOutput sets where print writes. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.out = w
	}
}

// WithPrelude replaces the prelude registry used by the interpreter.
func WithPrelude(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.prelude = r
	}
}

// WithTrace sets a callback that receives the program after every
// compilation stage.
func WithTrace(fn func(stage compiler.Stage, prog ast.Program)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithStageChecks makes Compile verify the shape of every stage's output.
func WithStageChecks(on bool) Option {
	return func(rt *Runtime) {
		rt.stageChecks = on
	}
}

// WithMaxDepth bounds nested calls in the interpreter.
func WithMaxDepth(n int) Option {
	return func(rt *Runtime) {
		rt.maxDepth = n
	}
}

// New creates a new Runtime with the given options.
// By default the full prelude is installed and print writes to stdout.
func New(opts ...Option) *Runtime {
	rt := &Runtime{out: os.Stdout}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.prelude == nil {
		rt.prelude = stdlib.Default(rt.out)
	}
	return rt
}

// Run parses, validates, and evaluates a program.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, err := rt.parseAndValidate(source, filename, rt.prelude.Names())
	if err != nil {
		return nil, err
	}
	result, err := evaluator.Execute(ctx, program, rt.buildExecOptions())
	if result == nil {
		return nil, err
	}
	return &Result{Values: result.Values}, err
}

// Check parses and validates a program for the interpreter without running it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program, rt.prelude.Names())
}

// Format parses and pretty-prints a program. Comments are not preserved.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.FormatProgram(program), nil
}

// Compile lowers a program and generates code for target. Compiled programs
// may only use the primitive operators, not the interpreter's prelude.
func (rt *Runtime) Compile(source, filename string, target Target) (*Output, error) {
	program, err := rt.parseAndValidate(source, filename, ast.Builtins)
	if err != nil {
		return nil, err
	}

	opts := compiler.Options{Trace: rt.trace}
	if rt.stageChecks {
		opts.Check = validator.CheckStage
	}
	lowered, err := compiler.Lower(program, opts)
	if err != nil {
		return nil, err
	}

	out := &Output{Target: target}
	switch target {
	case TargetIR:
		out.Code = formatter.FormatProgram(lowered)
	case TargetC:
		out.Code, err = cgen.Generate(lowered)
		out.RuntimeFile, out.RuntimeSource = cgen.RuntimeFile, cgen.RuntimeSource()
	case TargetLLVM:
		out.Code, err = llvmgen.Generate(lowered)
		out.RuntimeFile, out.RuntimeSource = llvmgen.RuntimeFile, llvmgen.RuntimeSource()
	default:
		return nil, fmt.Errorf("unknown target %s", target)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (rt *Runtime) parseAndValidate(source, filename string, globals []string) (ast.Program, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	if vDiags := validator.Validate(program, globals); len(vDiags) > 0 {
		return nil, &DiagnosticError{Diagnostics: vDiags}
	}
	return program, nil
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() evaluator.ExecOptions {
	return evaluator.ExecOptions{
		Globals:  rt.prelude.Globals(),
		MaxDepth: rt.maxDepth,
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}

// IsIncomplete reports whether err is a read error caused by input that
// ended in the middle of a form.
func IsIncomplete(err error) bool {
	var dErr *DiagnosticError
	return errors.As(err, &dErr) && parser.IsIncomplete(dErr.Diagnostics)
}

// ExitCode maps an error returned by the Runtime to a process exit status:
// 0 for nil, 2 for read and validation diagnostics, 4 for evaluation and
// compiler errors, 1 for anything else.
func ExitCode(err error) int {
	var (
		dErr   *DiagnosticError
		rtErr  *evaluator.RuntimeError
		invErr *diagnostics.InvariantError
	)
	switch {
	case err == nil:
		return 0
	case errors.As(err, &dErr):
		return 2
	case errors.As(err, &rtErr), errors.As(err, &invErr):
		return 4
	}
	return 1
}

// Diagnostics converts any error returned by the Runtime into diagnostics.
func Diagnostics(err error) []diagnostics.Diagnostic {
	var (
		dErr   *DiagnosticError
		rtErr  *evaluator.RuntimeError
		invErr *diagnostics.InvariantError
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &dErr):
		return dErr.Diagnostics
	case errors.As(err, &rtErr):
		return []diagnostics.Diagnostic{rtErr.Diagnostic()}
	case errors.As(err, &invErr):
		return []diagnostics.Diagnostic{invErr.Diagnostic()}
	}
	return []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.EIO, err.Error(), nil, "")}
}
