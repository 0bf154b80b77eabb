package compiler_test

import (
	"errors"
	"testing"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/compiler"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/formatter"
	"github.com/thomasrohde/purelisp/pkg/parser"
)

// helper: parse source and fail on diagnostics
func mustParse(t *testing.T, source string) ast.Program {
	t.Helper()
	prog, diags := parser.Parse(source, "test.pl")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return prog
}

func mustK(t *testing.T, source string, names *compiler.NameGenerator) ast.Program {
	t.Helper()
	prog, err := compiler.KNormalize(mustParse(t, source), names)
	if err != nil {
		t.Fatalf("KNormalize(%q): %v", source, err)
	}
	return prog
}

func mustKA(t *testing.T, source string, names *compiler.NameGenerator) ast.Program {
	t.Helper()
	prog, err := compiler.ANormalize(mustK(t, source, names))
	if err != nil {
		t.Fatalf("ANormalize(%q): %v", source, err)
	}
	return prog
}

func mustKAC(t *testing.T, source string) ast.Program {
	t.Helper()
	prog, err := compiler.CopyPropagate(mustKA(t, source, compiler.NewNameGenerator()))
	if err != nil {
		t.Fatalf("CopyPropagate(%q): %v", source, err)
	}
	return prog
}

func expectInvariant(t *testing.T, err error, pass string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected an invariant error from %s", pass)
	}
	var inv *diagnostics.InvariantError
	if !errors.As(err, &inv) {
		t.Fatalf("expected *InvariantError, got %T: %v", err, err)
	}
	if inv.Pass != pass {
		t.Errorf("got pass %q, want %q", inv.Pass, pass)
	}
}

func expectFormatted(t *testing.T, prog ast.Program, want string) {
	t.Helper()
	if got := formatter.FormatProgram(prog); got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

// walk calls fn on e and every sub-expression of e.
func walk(e ast.Expr, fn func(ast.Expr)) {
	fn(e)
	switch n := e.(type) {
	case *ast.Form:
		for _, item := range n.Items {
			walk(item, fn)
		}
	case *ast.Let:
		for _, b := range n.Bindings {
			walk(b.Value, fn)
		}
		walk(n.Body, fn)
	case *ast.If:
		walk(n.Cond, fn)
		walk(n.Then, fn)
		walk(n.Else, fn)
	case *ast.And:
		for _, sub := range n.Exprs {
			walk(sub, fn)
		}
	case *ast.Or:
		for _, sub := range n.Exprs {
			walk(sub, fn)
		}
	case *ast.Not:
		walk(n.Expr, fn)
	case *ast.Fn:
		walk(n.Body, fn)
	case *ast.Def:
		walk(n.Value, fn)
	case *ast.Defun:
		walk(n.Body, fn)
	case *ast.LetFun:
		walk(n.FunBody, fn)
		walk(n.Body, fn)
	case *ast.DefClos:
		walk(n.Body, fn)
	case *ast.LetClos:
		walk(n.Body, fn)
	}
}
