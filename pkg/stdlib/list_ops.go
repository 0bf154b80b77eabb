package stdlib

import (
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/evaluator"
)

func listArg(name string, v evaluator.Value) ([]evaluator.Value, error) {
	l, ok := v.(evaluator.List)
	if !ok {
		return nil, fail(diagnostics.EType, "%s expects a list, got %s", name, evaluator.TypeName(v))
	}
	return l.Items, nil
}

// list { ...items } → list
func stdlibList(args []evaluator.Value) (evaluator.Value, error) {
	items := make([]evaluator.Value, len(args))
	copy(items, args)
	return evaluator.NewList(items), nil
}

// car { list } → first element
func stdlibCar(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("car", args, 1); err != nil {
		return nil, err
	}
	items, err := listArg("car", args[0])
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fail(diagnostics.EType, "car of an empty list")
	}
	return items[0], nil
}

// cdr { list } → list without its first element
func stdlibCdr(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("cdr", args, 1); err != nil {
		return nil, err
	}
	items, err := listArg("cdr", args[0])
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fail(diagnostics.EType, "cdr of an empty list")
	}
	return evaluator.NewList(items[1:]), nil
}

// cons { value, list } → list
func stdlibCons(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("cons", args, 2); err != nil {
		return nil, err
	}
	items, err := listArg("cons", args[1])
	if err != nil {
		return nil, err
	}
	out := make([]evaluator.Value, 0, len(items)+1)
	out = append(out, args[0])
	out = append(out, items...)
	return evaluator.NewList(out), nil
}

// length { list } → int
func stdlibLength(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("length", args, 1); err != nil {
		return nil, err
	}
	items, err := listArg("length", args[0])
	if err != nil {
		return nil, err
	}
	return evaluator.NewInt(int64(len(items))), nil
}

// nth { index, list } → element, zero-based
func stdlibNth(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("nth", args, 2); err != nil {
		return nil, err
	}
	idx, ok := args[0].(evaluator.Int)
	if !ok {
		return nil, fail(diagnostics.EType, "nth expects an int index, got %s", evaluator.TypeName(args[0]))
	}
	items, err := listArg("nth", args[1])
	if err != nil {
		return nil, err
	}
	if idx.Value < 0 || idx.Value >= int64(len(items)) {
		return nil, fail(diagnostics.EType, "nth: index %d out of range for list of length %d", idx.Value, len(items))
	}
	return items[idx.Value], nil
}

// append { a, b } → list
func stdlibAppend(args []evaluator.Value) (evaluator.Value, error) {
	if err := arity("append", args, 2); err != nil {
		return nil, err
	}
	a, err := listArg("append", args[0])
	if err != nil {
		return nil, err
	}
	b, err := listArg("append", args[1])
	if err != nil {
		return nil, err
	}
	out := make([]evaluator.Value, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return evaluator.NewList(out), nil
}
