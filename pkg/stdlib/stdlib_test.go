package stdlib_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/evaluator"
	"github.com/thomasrohde/purelisp/pkg/stdlib"
)

func call(t *testing.T, name string, args ...evaluator.Value) (evaluator.Value, error) {
	t.Helper()
	fn := stdlib.Default(&bytes.Buffer{}).Get(name)
	if fn == nil {
		t.Fatalf("%s is not registered", name)
	}
	return fn.Execute(args)
}

func ints(ns ...int64) []evaluator.Value {
	out := make([]evaluator.Value, len(ns))
	for i, n := range ns {
		out[i] = evaluator.NewInt(n)
	}
	return out
}

func TestRegistryNames(t *testing.T) {
	names := stdlib.Default(&bytes.Buffer{}).Names()
	want := []string{
		"*", "+", "-", "/", "<", "<=", "=", ">", ">=",
		"abs", "append", "car", "cdr", "cons", "length", "list", "nth", "print", "sq", "sqrt",
	}
	if len(names) != len(want) {
		t.Fatalf("got %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestRegisterReplaces(t *testing.T) {
	r := stdlib.NewRegistry()
	r.Register(stdlib.Fn{Name: "one", Execute: func([]evaluator.Value) (evaluator.Value, error) { return evaluator.NewInt(1), nil }})
	r.Register(stdlib.Fn{Name: "one", Execute: func([]evaluator.Value) (evaluator.Value, error) { return evaluator.NewInt(2), nil }})
	if len(r.All()) != 1 {
		t.Fatalf("got %d functions", len(r.All()))
	}
	v, _ := r.Get("one").Execute(nil)
	if v.String() != "2" {
		t.Errorf("got %s", v)
	}
	if _, ok := r.Globals()["one"].(*evaluator.Builtin); !ok {
		t.Error("Globals must wrap functions as builtins")
	}
}

func TestListOps(t *testing.T) {
	l := evaluator.NewList(ints(1, 2, 3))
	tests := []struct {
		name string
		args []evaluator.Value
		want string
	}{
		{"list", ints(1, 2), "(1 2)"},
		{"list", nil, "()"},
		{"car", []evaluator.Value{l}, "1"},
		{"cdr", []evaluator.Value{l}, "(2 3)"},
		{"cons", []evaluator.Value{evaluator.NewInt(0), l}, "(0 1 2 3)"},
		{"length", []evaluator.Value{l}, "3"},
		{"nth", []evaluator.Value{evaluator.NewInt(2), l}, "3"},
		{"append", []evaluator.Value{l, l}, "(1 2 3 1 2 3)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := call(t, tt.name, tt.args...)
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestConsDoesNotAlias(t *testing.T) {
	base := ints(1, 2)
	l := evaluator.NewList(base[:1])
	if _, err := call(t, "cons", evaluator.NewInt(9), l); err != nil {
		t.Fatal(err)
	}
	if base[1].String() != "2" {
		t.Errorf("cons wrote into its argument: %v", base)
	}
}

func TestErrors(t *testing.T) {
	empty := evaluator.NewList(nil)
	tests := []struct {
		name string
		args []evaluator.Value
		code string
	}{
		{"car", []evaluator.Value{empty}, diagnostics.EType},
		{"cdr", []evaluator.Value{evaluator.NewInt(1)}, diagnostics.EType},
		{"nth", []evaluator.Value{evaluator.NewInt(5), empty}, diagnostics.EType},
		{"nth", []evaluator.Value{evaluator.NewInt(-1), evaluator.NewList(ints(1))}, diagnostics.EType},
		{"length", nil, diagnostics.EArity},
		{"/", ints(1, 0), diagnostics.EDivZero},
		{"-", []evaluator.Value{evaluator.NewFloat(1), evaluator.NewInt(1)}, diagnostics.EType},
		{"sqrt", ints(-4), diagnostics.EType},
		{"=", ints(1), diagnostics.EArity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, tt.name, tt.args...)
			var rtErr *evaluator.RuntimeError
			if !errors.As(err, &rtErr) {
				t.Fatalf("expected *RuntimeError, got %v", err)
			}
			if rtErr.Code != tt.code {
				t.Errorf("code = %s, want %s (%s)", rtErr.Code, tt.code, rtErr.Message)
			}
		})
	}
}

func TestFloatComparisonsWithNaN(t *testing.T) {
	nan := evaluator.NewFloat(0)
	nanVal, _ := call(t, "/", nan, evaluator.NewFloat(0))
	for _, op := range []string{"<", "<=", ">", ">="} {
		got, err := call(t, op, nanVal, evaluator.NewFloat(1))
		if err != nil {
			t.Fatal(err)
		}
		if got.String() != "false" {
			t.Errorf("%s with NaN = %s", op, got)
		}
	}
}

func TestPrintWritesToOutput(t *testing.T) {
	var out bytes.Buffer
	fn := stdlib.Default(&out).Get("print")
	v, err := fn.Execute([]evaluator.Value{evaluator.NewStr("hi")})
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "nil" {
		t.Errorf("print returned %s", v)
	}
	if out.String() != "\"hi\"\n" {
		t.Errorf("output = %q", out.String())
	}
}
