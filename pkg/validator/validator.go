// Package validator implements semantic validation of PureLisp programs.
package validator

import (
	"fmt"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
)

type scope struct {
	bindings map[string]bool
	parent   *scope
}

func newScope(parent *scope) *scope {
	return &scope{bindings: make(map[string]bool), parent: parent}
}

func (s *scope) has(name string) bool {
	if s.bindings[name] {
		return true
	}
	if s.parent != nil {
		return s.parent.has(name)
	}
	return false
}

func (s *scope) add(name string) {
	s.bindings[name] = true
}

type validator struct {
	diags []diagnostics.Diagnostic
}

// Validate checks a surface program and returns diagnostics. globals lists
// the names the host provides, such as the prelude or the compiled builtins.
//
// Every top-level def and defun name is visible throughout the program, so
// functions may refer to definitions that come after them.
func Validate(program ast.Program, globals []string) []diagnostics.Diagnostic {
	v := &validator{}

	root := newScope(nil)
	for _, name := range globals {
		root.add(name)
	}
	for _, form := range program {
		switch d := form.(type) {
		case *ast.Def:
			root.add(d.Name)
		case *ast.Defun:
			root.add(d.Name)
		}
	}

	for _, form := range program {
		switch d := form.(type) {
		case *ast.Def:
			v.validateExpr(d.Value, root)
		case *ast.Defun:
			v.validateFunction(d.Name, d.Params, d.Body, root)
		default:
			v.validateExpr(form, root)
		}
	}
	return v.diags
}

func (v *validator) addDiag(code, msg, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, nil, hint))
}

func (v *validator) validateFunction(name string, params []string, body ast.Expr, sc *scope) {
	childScope := newScope(sc)
	for _, param := range params {
		if childScope.bindings[param] {
			v.addDiag(diagnostics.EDupBinding, fmt.Sprintf("duplicate parameter '%s' in %s", param, name), "")
		}
		childScope.add(param)
	}
	v.validateExpr(body, childScope)
}

func (v *validator) validateExpr(expr ast.Expr, sc *scope) {
	if expr == nil {
		return
	}

	switch e := expr.(type) {
	case *ast.Nil, *ast.Bool, *ast.Int, *ast.Float, *ast.Str:
		// literals are always valid

	case *ast.Id:
		if !sc.has(e.Name) {
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("unbound variable '%s'", e.Name), "")
		}

	case *ast.Form:
		if len(e.Items) == 0 {
			v.addDiag(diagnostics.ECall, "empty application '()'", "use nil for the empty value")
			return
		}
		for _, item := range e.Items {
			v.validateExpr(item, sc)
		}

	case *ast.Let:
		// each binding sees the ones before it
		inner := sc
		for _, b := range e.Bindings {
			v.validateExpr(b.Value, inner)
			inner = newScope(inner)
			inner.add(b.Name)
		}
		v.validateExpr(e.Body, inner)

	case *ast.If:
		v.validateExpr(e.Cond, sc)
		v.validateExpr(e.Then, sc)
		v.validateExpr(e.Else, sc)

	case *ast.And:
		for _, sub := range e.Exprs {
			v.validateExpr(sub, sc)
		}

	case *ast.Or:
		for _, sub := range e.Exprs {
			v.validateExpr(sub, sc)
		}

	case *ast.Not:
		v.validateExpr(e.Expr, sc)

	case *ast.Fn:
		v.validateFunction("fn", e.Params, e.Body, sc)

	case *ast.LetFun:
		inner := newScope(sc)
		inner.add(e.Name)
		v.validateFunction(e.Name, e.Params, e.FunBody, inner)
		v.validateExpr(e.Body, inner)

	case *ast.Def, *ast.Defun:
		v.addDiag(diagnostics.EParse, fmt.Sprintf("%s is only allowed at top level", keyword(e)), "")

	case *ast.DefClos, *ast.LetClos:
		v.addDiag(diagnostics.EParse, fmt.Sprintf("%s cannot appear in a source program", e.Kind()), "")
	}
}

func keyword(e ast.Expr) string {
	if _, ok := e.(*ast.Def); ok {
		return "def"
	}
	return "defun"
}
