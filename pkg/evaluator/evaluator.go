package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
)

// ExecOptions configures an Evaluator.
type ExecOptions struct {
	// Globals seeds the global scope, usually with the prelude.
	Globals map[string]Value
	// MaxDepth bounds nested closure calls. Zero means DefaultMaxDepth.
	MaxDepth int
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	// Values has one entry per top-level form, definitions included.
	Values []Value
}

// RuntimeError represents an error raised while evaluating a program.
type RuntimeError struct {
	Code    string
	Message string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts the error into a diagnostic with the same code.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, nil, "")
}

func runtimeErrorf(code, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Evaluator interprets programs against a global scope that persists across
// calls, so a REPL can define a function in one line and call it in the next.
type Evaluator struct {
	ctx     context.Context
	globals *Env
	budget  Budget
	tracker BudgetTracker
}

// New creates an evaluator whose global scope holds opts.Globals.
func New(opts ExecOptions) *Evaluator {
	globals := NewEnv(nil)
	for name, v := range opts.Globals {
		globals.Set(name, v)
	}
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Evaluator{
		ctx:     context.Background(),
		globals: globals,
		budget:  Budget{MaxDepth: maxDepth},
	}
}

// Execute runs program on a fresh evaluator.
func Execute(ctx context.Context, program ast.Program, opts ExecOptions) (*ExecResult, error) {
	ev := New(opts)
	values, err := ev.Run(ctx, program)
	return &ExecResult{Values: values}, err
}

// Globals returns the global scope.
func (ev *Evaluator) Globals() *Env {
	return ev.globals
}

// Calls reports how many closure calls have been made so far.
func (ev *Evaluator) Calls() int64 {
	return ev.tracker.Calls
}

// Run evaluates every top-level form in order and returns their values. On
// error it returns the values of the forms that completed.
func (ev *Evaluator) Run(ctx context.Context, program ast.Program) ([]Value, error) {
	values := make([]Value, 0, len(program))
	for _, form := range program {
		v, err := ev.EvalTop(ctx, form)
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

// EvalTop evaluates a single top-level form. Definitions bind their name in
// the global scope and evaluate to the bound value.
func (ev *Evaluator) EvalTop(ctx context.Context, form ast.Expr) (Value, error) {
	ev.ctx = ctx
	ev.tracker.Depth = 0

	switch f := form.(type) {
	case *ast.Def:
		val, err := ev.eval(f.Value, ev.globals)
		if err != nil {
			return nil, err
		}
		ev.globals.Set(f.Name, val)
		return val, nil

	case *ast.Defun:
		clos := &Closure{Name: f.Name, Params: f.Params, Body: f.Body, Env: ev.globals}
		ev.globals.Set(f.Name, clos)
		return clos, nil
	}
	return ev.eval(form, ev.globals)
}

func (ev *Evaluator) eval(e ast.Expr, env *Env) (Value, error) {
	switch n := e.(type) {
	case *ast.Nil:
		return NewNil(), nil
	case *ast.Bool:
		return NewBool(n.Value), nil
	case *ast.Int:
		return NewInt(n.Value), nil
	case *ast.Float:
		return NewFloat(n.Value), nil
	case *ast.Str:
		return NewStr(n.Value), nil

	case *ast.Id:
		if v, ok := env.Get(n.Name); ok {
			return v, nil
		}
		return nil, runtimeErrorf(diagnostics.EUnbound, "undefined identifier: %s", n.Name)

	case *ast.Form:
		return ev.evalForm(n, env)

	case *ast.Let:
		scope := env
		for _, b := range n.Bindings {
			val, err := ev.eval(b.Value, scope)
			if err != nil {
				return nil, err
			}
			scope = scope.Child()
			scope.Set(b.Name, val)
		}
		return ev.eval(n.Body, scope)

	case *ast.If:
		cond, err := ev.evalBool("if condition", n.Cond, env)
		if err != nil {
			return nil, err
		}
		if cond {
			return ev.eval(n.Then, env)
		}
		return ev.eval(n.Else, env)

	case *ast.And:
		for _, sub := range n.Exprs {
			b, err := ev.evalBool("and", sub, env)
			if err != nil {
				return nil, err
			}
			if !b {
				return NewBool(false), nil
			}
		}
		return NewBool(true), nil

	case *ast.Or:
		for _, sub := range n.Exprs {
			b, err := ev.evalBool("or", sub, env)
			if err != nil {
				return nil, err
			}
			if b {
				return NewBool(true), nil
			}
		}
		return NewBool(false), nil

	case *ast.Not:
		b, err := ev.evalBool("not", n.Expr, env)
		if err != nil {
			return nil, err
		}
		return NewBool(!b), nil

	case *ast.Fn:
		return &Closure{Params: n.Params, Body: n.Body, Env: env}, nil

	case *ast.LetFun:
		scope := env.Child()
		scope.Set(n.Name, &Closure{Name: n.Name, Params: n.Params, Body: n.FunBody, Env: scope})
		return ev.eval(n.Body, scope)

	case *ast.Def, *ast.Defun:
		return nil, runtimeErrorf(diagnostics.EInvariant, "%s is only allowed at top level", kindKeyword(e))

	case *ast.DefClos, *ast.LetClos:
		return nil, runtimeErrorf(diagnostics.EInvariant, "%s only appears in closure-converted programs and cannot be interpreted", e.Kind())
	}
	return nil, runtimeErrorf(diagnostics.EInvariant, "unknown expression kind %s", e.Kind())
}

func kindKeyword(e ast.Expr) string {
	if _, ok := e.(*ast.Def); ok {
		return "def"
	}
	return "defun"
}

func (ev *Evaluator) evalBool(what string, e ast.Expr, env *Env) (bool, error) {
	v, err := ev.eval(e, env)
	if err != nil {
		return false, err
	}
	b, ok := v.(Bool)
	if !ok {
		return false, runtimeErrorf(diagnostics.EType, "%s expects a bool, got %s", what, TypeName(v))
	}
	return b.Value, nil
}

// evalForm evaluates the callee and then the arguments, left to right, before
// applying.
func (ev *Evaluator) evalForm(n *ast.Form, env *Env) (Value, error) {
	if len(n.Items) == 0 {
		return nil, runtimeErrorf(diagnostics.ECall, "empty application")
	}
	vals := make([]Value, len(n.Items))
	for i, item := range n.Items {
		v, err := ev.eval(item, env)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return ev.Apply(vals[0], vals[1:])
}

// Apply calls fn with args. A closure given fewer arguments than it has
// parameters returns a new closure waiting for the rest.
func (ev *Evaluator) Apply(fn Value, args []Value) (Value, error) {
	switch f := fn.(type) {
	case *Builtin:
		result, err := f.Fn(args)
		if err != nil {
			var rtErr *RuntimeError
			if errors.As(err, &rtErr) {
				return nil, rtErr
			}
			return nil, runtimeErrorf(diagnostics.ECall, "%s: %v", f.Name, err)
		}
		return result, nil

	case *Closure:
		all := make([]Value, 0, len(f.Bound)+len(args))
		all = append(all, f.Bound...)
		all = append(all, args...)
		if len(all) > len(f.Params) {
			return nil, runtimeErrorf(diagnostics.EArity, "%s expects %d arguments, got %d", closureName(f), len(f.Params), len(all))
		}
		if len(all) < len(f.Params) {
			partial := *f
			partial.Bound = all
			return &partial, nil
		}

		if err := ev.ctx.Err(); err != nil {
			return nil, runtimeErrorf(diagnostics.EBudget, "evaluation cancelled: %v", err)
		}
		if err := ev.enter(); err != nil {
			return nil, err
		}
		defer ev.leave()

		scope := f.Env.Child()
		for i, param := range f.Params {
			scope.Set(param, all[i])
		}
		return ev.eval(f.Body, scope)
	}
	return nil, runtimeErrorf(diagnostics.ECall, "cannot call a value of type %s", TypeName(fn))
}

func closureName(c *Closure) string {
	if c.Name == "" {
		return "anonymous function"
	}
	return c.Name
}
