package runtime

import (
	"context"
	"sort"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/compiler"
	"github.com/thomasrohde/purelisp/pkg/evaluator"
	"github.com/thomasrohde/purelisp/pkg/validator"
)

// Session evaluates input incrementally against one global scope, the way
// an interactive prompt needs it.
type Session struct {
	rt *Runtime
	ev *evaluator.Evaluator
}

// NewSession starts a session with the runtime's prelude.
func (rt *Runtime) NewSession() *Session {
	return &Session{rt: rt, ev: evaluator.New(rt.buildExecOptions())}
}

// Eval reads, validates and evaluates every form in source. Definitions
// persist for later calls. Input that stops in the middle of a form yields
// an error for which IsIncomplete is true.
func (s *Session) Eval(ctx context.Context, source, filename string) ([]evaluator.Value, error) {
	program, err := s.rt.parseAndValidate(source, filename, s.Globals())
	if err != nil {
		return nil, err
	}
	return s.ev.Run(ctx, program)
}

// Globals returns every name currently defined at top level, sorted.
func (s *Session) Globals() []string {
	names := s.ev.Globals().Names()
	sort.Strings(names)
	return names
}

// Lower shows how source is lowered, without evaluating it. source may refer
// to names defined earlier in the session. The returned slice
// holds the program after each stage, in compiler.Stages order.
func (s *Session) Lower(source, filename string) ([]ast.Program, error) {
	program, err := s.rt.parseAndValidate(source, filename, s.Globals())
	if err != nil {
		return nil, err
	}
	var stages []ast.Program
	_, err = compiler.Lower(program, compiler.Options{
		Trace: func(_ compiler.Stage, prog ast.Program) { stages = append(stages, prog) },
		Check: validator.CheckStage,
	})
	return stages, err
}
