package validator_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/compiler"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/parser"
	"github.com/thomasrohde/purelisp/pkg/validator"
)

// mustParseAndValidate parses source and validates it against the compiled
// builtins, returning diagnostics from validation only. It fatals on parse
// errors so test cases focus on validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, parseErrs := parser.Parse(source, "test.pl")
	if len(parseErrs) > 0 {
		t.Fatalf("unexpected parse error: %s", parseErrs[0].Message)
	}
	return validator.Validate(prog, ast.Builtins)
}

// assertNoDiags asserts zero diagnostics were produced.
func assertNoDiags(t *testing.T, diags []diagnostics.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.Code+": "+d.Message)
		}
		t.Errorf("expected no diagnostics, got %d:\n  %s", len(diags), strings.Join(msgs, "\n  "))
	}
}

// assertHasCode asserts that at least one diagnostic with the given code exists.
func assertHasCode(t *testing.T, diags []diagnostics.Diagnostic, code string) {
	t.Helper()
	for _, d := range diags {
		if d.Code == code {
			return
		}
	}
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	t.Errorf("expected diagnostic code %s, got codes: %v", code, codes)
}

// --- valid programs ---

func TestValidPrograms(t *testing.T) {
	programs := []string{
		"(+ 1 2)",
		"(defun square (x) (* x x)) (square 5)",
		"(let ((x 1) (y x)) (+ x y))",
		"(defun even (n) (if (= n 0) true (odd (- n 1)))) (defun odd (n) (if (= n 0) false (even (- n 1))))",
		"(defun f () g) (def g 1)",
		"(letfun (loop (n) (if (< n 1) n (loop (- n 1)))) (loop 3))",
		"(let ((+ (fn (a b) a))) (+ 1 2))",
		"(and (< 1 2) (or false (not true)))",
	}
	for _, src := range programs {
		t.Run(src, func(t *testing.T) {
			assertNoDiags(t, mustParseAndValidate(t, src))
		})
	}
}

// --- errors ---

func TestErrorUnbound(t *testing.T) {
	diags := mustParseAndValidate(t, "(defun f (x) (+ x y))")
	assertHasCode(t, diags, diagnostics.EUnbound)
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "'y'") {
		t.Errorf("got %v", diags)
	}
}

func TestErrorLetBindingCannotSeeItself(t *testing.T) {
	assertHasCode(t, mustParseAndValidate(t, "(let ((x x)) x)"), diagnostics.EUnbound)
}

func TestErrorLetScopeEndsWithBody(t *testing.T) {
	assertHasCode(t, mustParseAndValidate(t, "(+ (let ((x 1)) x) x)"), diagnostics.EUnbound)
}

func TestErrorPreludeNamesNeedTheirGlobals(t *testing.T) {
	prog, _ := parser.Parse("(print 1)", "test.pl")
	assertHasCode(t, validator.Validate(prog, ast.Builtins), diagnostics.EUnbound)
	assertNoDiags(t, validator.Validate(prog, append([]string{"print"}, ast.Builtins...)))
}

func TestErrorDuplicateParams(t *testing.T) {
	for _, src := range []string{
		"(defun f (x x) x)",
		"(fn (a b a) a)",
		"(letfun (g (y y) y) (g 1 2))",
	} {
		t.Run(src, func(t *testing.T) {
			assertHasCode(t, mustParseAndValidate(t, src), diagnostics.EDupBinding)
		})
	}
}

func TestErrorHandBuiltTrees(t *testing.T) {
	tests := []struct {
		name string
		prog ast.Program
		code string
	}{
		{"empty form", ast.Program{&ast.Form{}}, diagnostics.ECall},
		{"nested def", ast.Program{ast.NewLet("x", &ast.Int{Value: 1}, &ast.Def{Name: "y", Value: &ast.Int{Value: 2}})}, diagnostics.EParse},
		{"letclos", ast.Program{&ast.LetClos{Name: "f", ClosID: "@f0", Body: &ast.Nil{}}}, diagnostics.EParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertHasCode(t, validator.Validate(tt.prog, ast.Builtins), tt.code)
		})
	}
}

// --- stage checks ---

func TestCheckStageAcceptsLoweredPrograms(t *testing.T) {
	programs := []string{
		"(defun square (x) (* x x)) (square 5)",
		"(+ (let ((x (f))) (g x)) (h))",
		"(let ((x 1) (y x)) (+ x y))",
		"(and (< 1 2) (or false (>= 3 3)) (not false))",
		"(defun adder (n) (fn (m) (+ n m))) (def add5 (adder 5)) (add5 10)",
		"(def base 100) (let ((k (+ 1 1))) (letfun (loop (n acc) (if (= n 0) acc (loop (- n 1) (+ acc k)))) (loop 5 base)))",
		"(let ((f (fn (x) x))) (f (if (< 1 2) (f 1) 2)))",
	}
	for _, src := range programs {
		t.Run(src, func(t *testing.T) {
			prog, diags := parser.Parse(src, "test.pl")
			if len(diags) > 0 {
				t.Fatalf("parse: %v", diags)
			}
			var checked []compiler.Stage
			_, err := compiler.Lower(prog, compiler.Options{
				Check: func(stage compiler.Stage, p ast.Program) error {
					checked = append(checked, stage)
					return validator.CheckStage(stage, p)
				},
			})
			if err != nil {
				t.Fatalf("Lower: %v", err)
			}
			if len(checked) != len(compiler.Stages) {
				t.Errorf("checked %v", checked)
			}
		})
	}
}

func TestCheckStageRejects(t *testing.T) {
	x := &ast.Id{Name: "x"}
	call := &ast.Form{Items: []ast.Expr{&ast.Id{Name: "f"}, x}}
	tests := []struct {
		name  string
		stage compiler.Stage
		prog  ast.Program
	}{
		{"and after knormal", compiler.StageKNormal, ast.Program{&ast.And{}}},
		{"fn after knormal", compiler.StageKNormal, ast.Program{&ast.Fn{Body: x}}},
		{"defun after knormal", compiler.StageKNormal, ast.Program{&ast.Defun{Name: "f", Body: x}}},
		{"nested application", compiler.StageKNormal, ast.Program{&ast.Form{Items: []ast.Expr{&ast.Id{Name: "g"}, call}}}},
		{"compound condition", compiler.StageKNormal, ast.Program{&ast.If{Cond: call, Then: x, Else: x}}},
		{"multi-binding let", compiler.StageKNormal, ast.Program{&ast.Let{
			Bindings: []ast.Binding{{Name: "a", Value: call}, {Name: "b", Value: call}},
			Body:     x,
		}}},
		{"let in binding position", compiler.StageANormal, ast.Program{
			ast.NewLet("a", ast.NewLet("b", call, x), x),
		}},
		{"atom binding after copyprop", compiler.StageCopyProp, ast.Program{ast.NewLet("a", x, x)}},
		{"letfun after closure", compiler.StageClosure, ast.Program{&ast.LetFun{Name: "f", FunBody: x, Body: x}}},
		{"letclos before closure", compiler.StageCopyProp, ast.Program{&ast.LetClos{Name: "f", ClosID: "@f0", Body: x}}},
		{"def below top level", compiler.StageSurface, ast.Program{ast.NewLet("a", call, &ast.Def{Name: "d", Value: x})}},
		{"empty application", compiler.StageSurface, ast.Program{&ast.Form{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.CheckStage(tt.stage, tt.prog)
			var inv *diagnostics.InvariantError
			if !errors.As(err, &inv) {
				t.Fatalf("expected an invariant error, got %v", err)
			}
			if inv.Pass != validator.Pass {
				t.Errorf("pass = %q", inv.Pass)
			}
			if !strings.Contains(inv.Message, tt.stage.String()) {
				t.Errorf("message %q does not name the stage", inv.Message)
			}
		})
	}
}
