package stdlib

import (
	"fmt"
	"io"

	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/evaluator"
)

// RegisterDefaults adds the whole prelude. print writes to out.
func RegisterDefaults(r *Registry, out io.Writer) {
	// Arithmetic
	r.Register(Fn{Name: "+", Execute: arith("+", addInt, addFloat)})
	r.Register(Fn{Name: "-", Execute: arith("-", subInt, subFloat)})
	r.Register(Fn{Name: "*", Execute: arith("*", mulInt, mulFloat)})
	r.Register(Fn{Name: "/", Execute: arith("/", divInt, divFloat)})

	// Comparison
	r.Register(Fn{Name: "=", Execute: stdlibEq})
	r.Register(Fn{Name: "<", Execute: compare("<", func(c int) bool { return c < 0 })})
	r.Register(Fn{Name: "<=", Execute: compare("<=", func(c int) bool { return c <= 0 })})
	r.Register(Fn{Name: ">", Execute: compare(">", func(c int) bool { return c > 0 })})
	r.Register(Fn{Name: ">=", Execute: compare(">=", func(c int) bool { return c >= 0 })})

	// List ops
	r.Register(Fn{Name: "list", Execute: stdlibList})
	r.Register(Fn{Name: "car", Execute: stdlibCar})
	r.Register(Fn{Name: "cdr", Execute: stdlibCdr})
	r.Register(Fn{Name: "cons", Execute: stdlibCons})
	r.Register(Fn{Name: "length", Execute: stdlibLength})
	r.Register(Fn{Name: "nth", Execute: stdlibNth})
	r.Register(Fn{Name: "append", Execute: stdlibAppend})

	// Math
	r.Register(Fn{Name: "sq", Execute: stdlibSq})
	r.Register(Fn{Name: "sqrt", Execute: stdlibSqrt})
	r.Register(Fn{Name: "abs", Execute: stdlibAbs})

	// IO
	r.Register(Fn{Name: "print", Execute: printer(out)})
}

// Default returns a registry holding the whole prelude.
func Default(out io.Writer) *Registry {
	r := NewRegistry()
	RegisterDefaults(r, out)
	return r
}

func fail(code, format string, args ...any) error {
	return &evaluator.RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func arity(name string, args []evaluator.Value, n int) error {
	if len(args) != n {
		return fail(diagnostics.EArity, "%s expects %d arguments, got %d", name, n, len(args))
	}
	return nil
}

// print { value } → nil
func printer(out io.Writer) evaluator.BuiltinFunc {
	return func(args []evaluator.Value) (evaluator.Value, error) {
		if err := arity("print", args, 1); err != nil {
			return nil, err
		}
		if _, err := fmt.Fprintln(out, args[0].String()); err != nil {
			return nil, fail(diagnostics.EIO, "print: %v", err)
		}
		return evaluator.NewNil(), nil
	}
}
