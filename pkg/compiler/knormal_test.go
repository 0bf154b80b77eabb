package compiler_test

import (
	"reflect"
	"testing"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/compiler"
)

func TestNameGenerator(t *testing.T) {
	g := compiler.NewNameGenerator()
	got := []string{g.Next("@t"), g.Next("@f"), g.Next("@t")}
	want := []string{"@t0", "@f1", "@t2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestKNormalizeFlattensApplications(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"(f 1 x)", "(f 1 x)"},
		{"(+ (f) (g))", "(let ((@t0 (f))) (let ((@t1 (g))) (+ @t0 @t1)))"},
		{"((h 1) 2)", "(let ((@t0 (h 1))) (@t0 2))"},
		{"(if (< x 1) a b)", "(let ((@t0 (< x 1))) (if @t0 a b))"},
		{"(if c (f (g)) 2)", "(if c (let ((@t0 (g))) (f @t0)) 2)"},
		{"(let ((x 1) (y x)) (+ x y))", "(let ((x 1)) (let ((y x)) (+ x y)))"},
		{"(let () 1)", "1"},
	}
	for _, tt := range tests {
		prog := mustK(t, tt.source, compiler.NewNameGenerator())
		expectFormatted(t, prog, tt.want)
	}
}

func TestKNormalizeDesugarsConnectives(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"(and a b c)", "(if a (if b c false) false)"},
		{"(or a b c)", "(if a true (if b true c))"},
		{"(and)", "true"},
		{"(or)", "false"},
		{"(and a)", "a"},
		{"(not a)", "(if a false true)"},
		{"(and (f) b)", "(let ((@t0 (f))) (if @t0 b false))"},
	}
	for _, tt := range tests {
		prog := mustK(t, tt.source, compiler.NewNameGenerator())
		expectFormatted(t, prog, tt.want)
	}
}

func TestKNormalizeLiftsFunctionLiterals(t *testing.T) {
	prog := mustK(t, "(fn (x) (* x x))", compiler.NewNameGenerator())
	want := &ast.LetFun{
		Name:    "@fn0",
		Params:  []string{"x"},
		FunBody: &ast.Form{Items: []ast.Expr{&ast.Id{Name: "*"}, &ast.Id{Name: "x"}, &ast.Id{Name: "x"}}},
		Body:    &ast.Id{Name: "@fn0"},
	}
	if !reflect.DeepEqual(prog[0], want) {
		t.Errorf("got %#v, want %#v", prog[0], want)
	}
}

func TestKNormalizeDesugarsDefun(t *testing.T) {
	prog := mustK(t, "(defun sq (x) (* x x))", compiler.NewNameGenerator())
	def, ok := prog[0].(*ast.Def)
	if !ok {
		t.Fatalf("expected Def, got %T", prog[0])
	}
	if def.Name != "sq" {
		t.Errorf("got name %q, want sq", def.Name)
	}
	if _, ok := def.Value.(*ast.LetFun); !ok {
		t.Errorf("expected the defun body to become a letfun, got %T", def.Value)
	}
}

func TestKNormalizeRenamesShadowingBinders(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"(let ((x 1)) (let ((x 2)) x))", "(let ((x 1)) (let ((@x.0 2)) @x.0))"},
		{"(let ((x 1) (x (+ x 1))) x)", "(let ((x 1)) (let ((@x.0 (+ x 1))) @x.0))"},
		{"(let ((+ -)) (+ 1 2))", "(let ((@+.0 -)) (@+.0 1 2))"},
		{"(def x 1) (let ((x 2)) x)", "(def x 1)\n\n(let ((@x.0 2)) @x.0)"},
	}
	for _, tt := range tests {
		prog := mustK(t, tt.source, compiler.NewNameGenerator())
		expectFormatted(t, prog, tt.want)
	}

	prog := mustK(t, "(let ((x 1)) (fn (x) x))", compiler.NewNameGenerator())
	fn := prog[0].(*ast.Let).Body.(*ast.LetFun)
	if fn.Params[0] != "@x.0" {
		t.Errorf("expected shadowing parameter to be renamed, got %v", fn.Params)
	}
	if id, ok := fn.FunBody.(*ast.Id); !ok || id.Name != "@x.0" {
		t.Errorf("expected body to follow the renamed parameter, got %#v", fn.FunBody)
	}
}

func TestKNormalizeIsIdempotent(t *testing.T) {
	sources := []string{
		"(+ (f (g 1)) (h (i 2) 3))",
		"(if (and (< a 1) (or b (not c))) (f (g)) (h))",
		"(let ((x (f 1)) (y (g x))) (let ((x (h y))) (+ x y)))",
		"(defun fact (n) (if (= n 0) 1 (* n (fact (- n 1)))))",
		"(def adder (fn (n) (fn (m) (+ n m))))",
		"(letfun (loop (i acc) (if (= i 0) acc (loop (- i 1) (+ acc i)))) (loop 10 0))",
		"(let ((x 1)) (fn (x) (let ((x (+ x 1))) x)))",
	}
	for _, src := range sources {
		once := mustK(t, src, compiler.NewNameGenerator())
		twice, err := compiler.KNormalize(once, compiler.NewNameGenerator())
		if err != nil {
			t.Fatalf("second KNormalize(%q): %v", src, err)
		}
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("K-normalization of %q is not idempotent", src)
		}
	}
}

func TestKNormalizeErrors(t *testing.T) {
	_, err := compiler.KNormalize(mustParse(t, "(f ())"), compiler.NewNameGenerator())
	expectInvariant(t, err, compiler.PassKNormal)

	clos := &ast.LetClos{Name: "f", ClosID: "@f0", FreeVars: []string{"y"}, Body: &ast.Id{Name: "f"}}
	_, err = compiler.KNormalizeExpr(clos, compiler.NewNameGenerator())
	expectInvariant(t, err, compiler.PassKNormal)

	tmpl := &ast.DefClos{Name: "@f0", Body: &ast.Int{Value: 1}}
	_, err = compiler.KNormalizeExpr(tmpl, compiler.NewNameGenerator())
	expectInvariant(t, err, compiler.PassKNormal)
}
