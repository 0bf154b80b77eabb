package validator

import (
	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/compiler"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/formatter"
)

// Pass is the pass name reported by CheckStage.
const Pass = "check"

// rules describes the tree shape a stage guarantees.
type rules struct {
	stage        compiler.Stage
	sugar        bool // and, or, not, fn
	defun        bool
	multiLet     bool
	complexArgs  bool // non-atomic application items and if conditions
	nestedLet    bool // let or letfun in binding position
	atomBindings bool
	letFun       bool
	closures     bool // defclos, letclos
}

func rulesFor(stage compiler.Stage) rules {
	r := rules{stage: stage}
	switch stage {
	case compiler.StageSurface:
		r.sugar, r.defun, r.multiLet, r.complexArgs, r.nestedLet, r.atomBindings, r.letFun = true, true, true, true, true, true, true
	case compiler.StageKNormal:
		r.nestedLet, r.atomBindings, r.letFun = true, true, true
	case compiler.StageANormal:
		r.atomBindings, r.letFun = true, true
	case compiler.StageCopyProp:
		r.letFun = true
	case compiler.StageClosure:
		r.defun, r.closures = true, true
	}
	return r
}

// CheckStage verifies that prog has the shape stage promises and returns an
// *diagnostics.InvariantError for the first node that does not. It is meant
// to be plugged into compiler.Options.Check.
func CheckStage(stage compiler.Stage, prog ast.Program) error {
	r := rulesFor(stage)
	for _, form := range prog {
		if err := r.top(form); err != nil {
			return err
		}
	}
	return nil
}

func (r rules) fail(e ast.Expr, format string, args ...any) error {
	args = append([]any{r.stage}, args...)
	return diagnostics.Invariantf(Pass, formatter.Format(e), "%s program: "+format, args...)
}

func (r rules) top(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Def:
		return r.expr(n.Value)
	case *ast.Defun:
		if !r.defun {
			return r.fail(e, "unexpected defun")
		}
		return r.expr(n.Body)
	case *ast.DefClos:
		if !r.closures {
			return r.fail(e, "unexpected defclos")
		}
		return r.expr(n.Body)
	}
	return r.expr(e)
}

func (r rules) expr(e ast.Expr) error {
	switch n := e.(type) {
	case nil:
		return diagnostics.Invariantf(Pass, "", "%s program: missing expression", r.stage)

	case *ast.Nil, *ast.Bool, *ast.Int, *ast.Float, *ast.Str, *ast.Id:
		return nil

	case *ast.Form:
		if len(n.Items) == 0 {
			return r.fail(e, "empty application")
		}
		for _, item := range n.Items {
			if !r.complexArgs && !ast.IsAtom(item) {
				return r.fail(e, "application of a non-atomic %s", item.Kind())
			}
			if err := r.expr(item); err != nil {
				return err
			}
		}
		return nil

	case *ast.Let:
		if !r.multiLet && len(n.Bindings) != 1 {
			return r.fail(e, "let with %d bindings", len(n.Bindings))
		}
		for _, b := range n.Bindings {
			switch b.Value.(type) {
			case *ast.Let, *ast.LetFun, *ast.LetClos:
				if !r.nestedLet {
					return r.fail(e, "%s bound to %s", b.Value.Kind(), b.Name)
				}
			}
			if !r.atomBindings && ast.IsAtom(b.Value) {
				return r.fail(e, "%s bound to an atom", b.Name)
			}
			if err := r.expr(b.Value); err != nil {
				return err
			}
		}
		return r.expr(n.Body)

	case *ast.If:
		if !r.complexArgs && !ast.IsAtom(n.Cond) {
			return r.fail(e, "if with a non-atomic condition")
		}
		for _, sub := range []ast.Expr{n.Cond, n.Then, n.Else} {
			if err := r.expr(sub); err != nil {
				return err
			}
		}
		return nil

	case *ast.And:
		if !r.sugar {
			return r.fail(e, "unexpected and")
		}
		return r.each(n.Exprs)
	case *ast.Or:
		if !r.sugar {
			return r.fail(e, "unexpected or")
		}
		return r.each(n.Exprs)
	case *ast.Not:
		if !r.sugar {
			return r.fail(e, "unexpected not")
		}
		return r.expr(n.Expr)
	case *ast.Fn:
		if !r.sugar {
			return r.fail(e, "unexpected fn")
		}
		return r.expr(n.Body)

	case *ast.LetFun:
		if !r.letFun {
			return r.fail(e, "unexpected letfun")
		}
		if err := r.expr(n.FunBody); err != nil {
			return err
		}
		return r.expr(n.Body)

	case *ast.LetClos:
		if !r.closures {
			return r.fail(e, "unexpected letclos")
		}
		return r.expr(n.Body)

	case *ast.Def, *ast.Defun, *ast.DefClos:
		return r.fail(e, "%s below top level", n.Kind())
	}
	return r.fail(e, "unknown node %s", e.Kind())
}

func (r rules) each(exprs []ast.Expr) error {
	for _, sub := range exprs {
		if err := r.expr(sub); err != nil {
			return err
		}
	}
	return nil
}
