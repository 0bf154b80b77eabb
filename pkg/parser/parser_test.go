package parser_test

import (
	"reflect"
	"testing"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/parser"
)

// helper: parse source and assert no diagnostics
func mustParse(t *testing.T, source string) ast.Program {
	t.Helper()
	prog, diags := parser.Parse(source, "test.pl")
	if len(diags) > 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return prog
}

// helper: parse source and return the diagnostics, failing if there are none
func mustFail(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, diags := parser.Parse(source, "test.pl")
	if len(diags) == 0 {
		t.Fatalf("expected parse of %q to fail, got %d forms", source, len(prog))
	}
	if prog != nil {
		t.Errorf("expected no partial program on failure")
	}
	return diags
}

func singleExpr(t *testing.T, source string) ast.Expr {
	t.Helper()
	prog := mustParse(t, source)
	if len(prog) != 1 {
		t.Fatalf("expected 1 form, got %d", len(prog))
	}
	return prog[0]
}

func id(name string) *ast.Id { return &ast.Id{Name: name} }

func TestParseAtoms(t *testing.T) {
	tests := []struct {
		source string
		want   ast.Expr
	}{
		{"nil", &ast.Nil{}},
		{"true", &ast.Bool{Value: true}},
		{"false", &ast.Bool{Value: false}},
		{"42", &ast.Int{Value: 42}},
		{"-1.5", &ast.Float{Value: -1.5}},
		{`"s"`, &ast.Str{Value: "s"}},
		{"x", id("x")},
	}
	for _, tt := range tests {
		if got := singleExpr(t, tt.source); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %#v, want %#v", tt.source, got, tt.want)
		}
	}
}

func TestParseSpecialForms(t *testing.T) {
	tests := []struct {
		source string
		want   ast.Expr
	}{
		{
			"(+ 1 x)",
			&ast.Form{Items: []ast.Expr{id("+"), &ast.Int{Value: 1}, id("x")}},
		},
		{
			"(let ((x 1) (y x)) (+ x y))",
			&ast.Let{
				Bindings: []ast.Binding{{Name: "x", Value: &ast.Int{Value: 1}}, {Name: "y", Value: id("x")}},
				Body:     &ast.Form{Items: []ast.Expr{id("+"), id("x"), id("y")}},
			},
		},
		{
			"(if c 1 2)",
			&ast.If{Cond: id("c"), Then: &ast.Int{Value: 1}, Else: &ast.Int{Value: 2}},
		},
		{"(and a b)", &ast.And{Exprs: []ast.Expr{id("a"), id("b")}}},
		{"(or)", &ast.Or{Exprs: []ast.Expr{}}},
		{"(not a)", &ast.Not{Expr: id("a")}},
		{
			"(fn (x) x)",
			&ast.Fn{Params: []string{"x"}, Body: id("x")},
		},
		{
			"(letfun (f (x) (f x)) (f 1))",
			&ast.LetFun{
				Name:    "f",
				Params:  []string{"x"},
				FunBody: &ast.Form{Items: []ast.Expr{id("f"), id("x")}},
				Body:    &ast.Form{Items: []ast.Expr{id("f"), &ast.Int{Value: 1}}},
			},
		},
		{"(def x 1)", &ast.Def{Name: "x", Value: &ast.Int{Value: 1}}},
		{
			"(defun square (x) (* x x))",
			&ast.Defun{Name: "square", Params: []string{"x"}, Body: &ast.Form{Items: []ast.Expr{id("*"), id("x"), id("x")}}},
		},
		{"()", &ast.Form{}},
	}
	for _, tt := range tests {
		if got := singleExpr(t, tt.source); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %#v, want %#v", tt.source, got, tt.want)
		}
	}
}

func TestParseProgram(t *testing.T) {
	prog := mustParse(t, "; squares\n(defun square (x) (* x x))\n\n(square 5)\n")
	if len(prog) != 2 {
		t.Fatalf("expected 2 forms, got %d", len(prog))
	}
	if _, ok := prog[0].(*ast.Defun); !ok {
		t.Errorf("expected Defun, got %T", prog[0])
	}
	if _, ok := prog[1].(*ast.Form); !ok {
		t.Errorf("expected Form, got %T", prog[1])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		source string
		code   string
	}{
		{"(+ 1", diagnostics.EIncomplete},
		{"(let ((x 1)", diagnostics.EIncomplete},
		{")", diagnostics.EParse},
		{"(if a b)", diagnostics.EParse},
		{"(not a b)", diagnostics.EParse},
		{"(let (x 1) x)", diagnostics.EParse},
		{"(let ((1 2)) x)", diagnostics.EParse},
		{"(fn x x)", diagnostics.EParse},
		{"(let ((x (def y 1))) x)", diagnostics.EParse},
		{"(fn () (defun f () 1))", diagnostics.EParse},
		{"(def true 1)", diagnostics.EParse},
		{"(letfun (f x) 1)", diagnostics.EParse},
	}
	for _, tt := range tests {
		diags := mustFail(t, tt.source)
		if diags[0].Code != tt.code {
			t.Errorf("%q: got code %q, want %q", tt.source, diags[0].Code, tt.code)
		}
	}
}

func TestIsIncomplete(t *testing.T) {
	_, diags := parser.Parse("(defun f (x)\n", "repl")
	if !parser.IsIncomplete(diags) {
		t.Errorf("expected unclosed form to be incomplete, got %v", diags)
	}
	_, diags = parser.Parse("(f))", "repl")
	if parser.IsIncomplete(diags) {
		t.Errorf("extra ')' cannot be completed by more input")
	}
}

func TestParseDiagnosticSpan(t *testing.T) {
	diags := mustFail(t, "\n  (if a b)")
	if diags[0].Span == nil {
		t.Fatal("expected a span")
	}
	if diags[0].Span.StartLine != 2 || diags[0].Span.StartCol != 3 {
		t.Errorf("got %d:%d, want 2:3", diags[0].Span.StartLine, diags[0].Span.StartCol)
	}
}
