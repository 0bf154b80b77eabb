// Package evaluator implements the PureLisp tree-walking interpreter.
package evaluator

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/formatter"
)

// Value is the interface for all PureLisp runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	String() string
	value() // sealed marker
}

// Nil is the unit value.
type Nil struct{}

func (Nil) value() {}

func (Nil) String() string { return "nil" }

// Bool represents a boolean value.
type Bool struct {
	Value bool
}

func (Bool) value() {}

func (b Bool) String() string { return strconv.FormatBool(b.Value) }

// Int represents a 64-bit integer.
type Int struct {
	Value int64
}

func (Int) value() {}

func (i Int) String() string { return strconv.FormatInt(i.Value, 10) }

// Float represents a 64-bit float. It always prints with a decimal point.
type Float struct {
	Value float64
}

func (Float) value() {}

func (f Float) String() string { return formatter.FormatFloat(f.Value) }

// Str represents a string value. It prints quoted.
type Str struct {
	Value string
}

func (Str) value() {}

func (s Str) String() string { return formatter.QuoteString(s.Value) }

// List represents an immutable ordered list of values.
type List struct {
	Items []Value
}

func (List) value() {}

func (l List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// BuiltinFunc is the Go implementation behind a Builtin.
type BuiltinFunc func(args []Value) (Value, error)

// Builtin is a primitive function provided by the host.
type Builtin struct {
	Name string
	Fn   BuiltinFunc
}

func (*Builtin) value() {}

func (b *Builtin) String() string { return "<function>" }

// Closure is a user function together with the environment it was created in.
// Bound holds arguments already supplied by a partial application.
type Closure struct {
	Name   string
	Params []string
	Body   ast.Expr
	Env    *Env
	Bound  []Value
}

func (*Closure) value() {}

func (c *Closure) String() string { return "<closure>" }

// NewNil creates the nil value.
func NewNil() Value {
	return Nil{}
}

// NewBool creates a boolean value.
func NewBool(b bool) Value {
	return Bool{Value: b}
}

// NewInt creates an integer value.
func NewInt(n int64) Value {
	return Int{Value: n}
}

// NewFloat creates a float value.
func NewFloat(x float64) Value {
	return Float{Value: x}
}

// NewStr creates a string value.
func NewStr(s string) Value {
	return Str{Value: s}
}

// NewList creates a list value. A nil slice is treated as the empty list.
func NewList(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return List{Items: items}
}

// NewBuiltin wraps fn as a callable value.
func NewBuiltin(name string, fn BuiltinFunc) Value {
	return &Builtin{Name: name, Fn: fn}
}

// TypeName returns the PureLisp type name used in error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Nil:
		return "nil"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "string"
	case List:
		return "list"
	case *Builtin, *Closure:
		return "function"
	}
	return "unknown"
}

// Equal reports structural equality. Functions are equal only to themselves,
// and an int never equals a float.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Nil:
		_, ok := b.(Nil)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av.Value == bv.Value
	case Int:
		bv, ok := b.(Int)
		return ok && av.Value == bv.Value
	case Float:
		bv, ok := b.(Float)
		return ok && av.Value == bv.Value
	case Str:
		bv, ok := b.(Str)
		return ok && av.Value == bv.Value
	case List:
		bv, ok := b.(List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	case *Builtin:
		bv, ok := b.(*Builtin)
		return ok && av == bv
	case *Closure:
		bv, ok := b.(*Closure)
		return ok && av == bv
	}
	return false
}
