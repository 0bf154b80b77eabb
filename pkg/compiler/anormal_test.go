package compiler_test

import (
	"testing"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/compiler"
)

func TestANormalizeFlattensLets(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"(let ((x (let ((y (f))) (g y)))) (h x))", "(let ((y (f))) (let ((x (g y))) (h x)))"},
		{"(if c (let ((x (let ((y (f))) y))) x) 2)", "(if c (let ((y (f))) (let ((x y)) x)) 2)"},
		{"(if (let ((a (f))) a) 1 2)", "(let ((a (f))) (let ((@t0 a)) (if @t0 1 2)))"},
		{"(+ (f) (g))", "(let ((@t0 (f))) (let ((@t1 (g))) (+ @t0 @t1)))"},
	}
	for _, tt := range tests {
		prog := mustKA(t, tt.source, compiler.NewNameGenerator())
		expectFormatted(t, prog, tt.want)
	}
}

func TestANormalizeKeepsEvaluationOrder(t *testing.T) {
	prog := mustKA(t, "(+ (f) (g))", compiler.NewNameGenerator())
	let, ok := prog[0].(*ast.Let)
	if !ok {
		t.Fatalf("expected Let, got %T", prog[0])
	}
	call, ok := let.Bindings[0].Value.(*ast.Form)
	if !ok {
		t.Fatalf("expected the first binding to be a call, got %T", let.Bindings[0].Value)
	}
	if id := call.Items[0].(*ast.Id); id.Name != "f" {
		t.Errorf("expected (f) to be bound first, got %s", id.Name)
	}
}

func TestANormalFormHasNoNestedLets(t *testing.T) {
	sources := []string{
		"(let ((a (let ((b (let ((c (f))) (g c)))) (h b)))) (i a))",
		"(defun fact (n) (if (= n 0) 1 (* n (fact (- n 1)))))",
		"(print (let ((x (+ (f 1) (g 2)))) (* x x)))",
		"(letfun (loop (i) (if (< i 10) (loop (+ i 1)) i)) (loop (let ((s (f))) s)))",
	}
	for _, src := range sources {
		prog := mustKA(t, src, compiler.NewNameGenerator())
		for _, e := range prog {
			walk(e, func(sub ast.Expr) {
				let, ok := sub.(*ast.Let)
				if !ok {
					return
				}
				if len(let.Bindings) != 1 {
					t.Errorf("%q: let with %d bindings", src, len(let.Bindings))
					return
				}
				if _, nested := let.Bindings[0].Value.(*ast.Let); nested {
					t.Errorf("%q: let in binding position", src)
				}
			})
		}
	}
}

func TestANormalizeExprContinuation(t *testing.T) {
	in := ast.NewLet("x", &ast.Form{Items: []ast.Expr{&ast.Id{Name: "f"}}}, &ast.Id{Name: "x"})
	wrap := func(v ast.Expr) (ast.Expr, error) {
		return &ast.Form{Items: []ast.Expr{&ast.Id{Name: "g"}, v}}, nil
	}
	got, err := compiler.ANormalizeExpr(in, wrap)
	if err != nil {
		t.Fatal(err)
	}
	expectFormatted(t, ast.Program{got}, "(let ((x (f))) (g x))")
}

func TestANormalizeErrors(t *testing.T) {
	_, err := compiler.ANormalize(mustParse(t, "(and a b)"))
	expectInvariant(t, err, compiler.PassANormal)

	_, err = compiler.ANormalize(mustParse(t, "(let ((a 1) (b 2)) a)"))
	expectInvariant(t, err, compiler.PassANormal)

	_, err = compiler.ANormalize(mustParse(t, "(fn (x) x)"))
	expectInvariant(t, err, compiler.PassANormal)
}
