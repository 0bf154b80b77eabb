package stdlib

import (
	"cmp"
	"math"

	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/evaluator"
)

func addInt(a, b int64) (int64, error) { return a + b, nil }
func subInt(a, b int64) (int64, error) { return a - b, nil }
func mulInt(a, b int64) (int64, error) { return a * b, nil }
func addFloat(a, b float64) float64 { return a + b }
func subFloat(a, b float64) float64 { return a - b }
func mulFloat(a, b float64) float64 { return a * b }
func divFloat(a, b float64) float64 { return a / b }

func divInt(a, b int64) (int64, error) {
	if b == 0 {
		return 0, fail(diagnostics.EDivZero, "/: division by zero")
	}
	return a / b, nil
}

// arith folds op left to right over two or more operands. Operands must be
// all ints or all floats; there is no implicit conversion.
func arith(name string, intOp func(a, b int64) (int64, error), floatOp func(a, b float64) float64) evaluator.BuiltinFunc {
	return func(args []evaluator.Value) (evaluator.Value, error) {
		if len(args) < 2 {
			return nil, fail(diagnostics.EArity, "%s expects at least 2 arguments, got %d", name, len(args))
		}
		switch first := args[0].(type) {
		case evaluator.Int:
			acc := first.Value
			for _, arg := range args[1:] {
				n, ok := arg.(evaluator.Int)
				if !ok {
					return nil, mixed(name, args[0], arg)
				}
				var err error
				if acc, err = intOp(acc, n.Value); err != nil {
					return nil, err
				}
			}
			return evaluator.NewInt(acc), nil

		case evaluator.Float:
			acc := first.Value
			for _, arg := range args[1:] {
				x, ok := arg.(evaluator.Float)
				if !ok {
					return nil, mixed(name, args[0], arg)
				}
				acc = floatOp(acc, x.Value)
			}
			return evaluator.NewFloat(acc), nil
		}
		return nil, mixed(name, args[0], args[1])
	}
}

func mixed(name string, a, b evaluator.Value) error {
	return fail(diagnostics.EType, "%s expects two ints or two floats, got %s and %s",
		name, evaluator.TypeName(a), evaluator.TypeName(b))
}

// compare builds a binary ordering predicate from test, which receives
// cmp.Compare of the two operands. Any comparison with NaN is false.
func compare(name string, test func(c int) bool) evaluator.BuiltinFunc {
	return func(args []evaluator.Value) (evaluator.Value, error) {
		if err := arity(name, args, 2); err != nil {
			return nil, err
		}
		switch a := args[0].(type) {
		case evaluator.Int:
			if b, ok := args[1].(evaluator.Int); ok {
				return evaluator.NewBool(test(cmp.Compare(a.Value, b.Value))), nil
			}
		case evaluator.Float:
			if b, ok := args[1].(evaluator.Float); ok {
				if math.IsNaN(a.Value) || math.IsNaN(b.Value) {
					return evaluator.NewBool(false), nil
				}
				return evaluator.NewBool(test(cmp.Compare(a.Value, b.Value))), nil
			}
		}
		return nil, mixed(name, args[0], args[1])
	}
}

// = { a, b } → bool
func stdlibEq(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("=", args, 2); err != nil {
		return nil, err
	}
	return evaluator.NewBool(evaluator.Equal(args[0], args[1])), nil
}

// sq { x } → x*x
func stdlibSq(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("sq", args, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case evaluator.Int:
		return evaluator.NewInt(x.Value * x.Value), nil
	case evaluator.Float:
		return evaluator.NewFloat(x.Value * x.Value), nil
	}
	return nil, fail(diagnostics.EType, "sq expects a number, got %s", evaluator.TypeName(args[0]))
}

// sqrt { x } → float
func stdlibSqrt(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("sqrt", args, 1); err != nil {
		return nil, err
	}
	var x float64
	switch v := args[0].(type) {
	case evaluator.Int:
		x = float64(v.Value)
	case evaluator.Float:
		x = v.Value
	default:
		return nil, fail(diagnostics.EType, "sqrt expects a number, got %s", evaluator.TypeName(args[0]))
	}
	if x < 0 {
		return nil, fail(diagnostics.EType, "sqrt of a negative number")
	}
	return evaluator.NewFloat(math.Sqrt(x)), nil
}

// abs { x } → number of the same type
func stdlibAbs(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("abs", args, 1); err != nil {
		return nil, err
	}
	switch x := args[0].(type) {
	case evaluator.Int:
		if x.Value < 0 {
			return evaluator.NewInt(-x.Value), nil
		}
		return x, nil
	case evaluator.Float:
		return evaluator.NewFloat(math.Abs(x.Value)), nil
	}
	return nil, fail(diagnostics.EType, "abs expects a number, got %s", evaluator.TypeName(args[0]))
}
