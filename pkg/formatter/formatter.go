// Package formatter implements the PureLisp pretty printer.
//
// The same printer renders surface programs, every intermediate compiler
// stage and the closure-converted IR. An expression is printed on one line
// when it fits within Width columns at its indentation; otherwise it is
// broken according to a layout specific to its node kind.
package formatter

import (
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/purelisp/pkg/ast"
)

// Width is the line width the printer tries to stay within.
const Width = 80

const indentUnit = "  "

// Format pretty-prints a single expression.
func Format(e ast.Expr) string {
	return format(e, 0)
}

// FormatProgram pretty-prints a program, separating top-level forms with a
// blank line.
func FormatProgram(prog ast.Program) string {
	parts := make([]string, len(prog))
	for i, e := range prog {
		parts[i] = Format(e)
	}
	return strings.Join(parts, "\n\n")
}

// HasComments checks if a source string contains PureLisp comments (; prefix).
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch source[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return true
			}
		}
	}
	return false
}

func indent(depth int) string {
	return strings.Repeat(indentUnit, depth)
}

// fits reports whether a flat rendering can be used at depth.
func fits(flat string, depth int) bool {
	return len(indent(depth))+len(flat) <= Width && !strings.Contains(flat, "\n")
}

func format(e ast.Expr, depth int) string {
	if ast.IsAtom(e) {
		return flat(e)
	}
	switch n := e.(type) {
	case *ast.Defun, *ast.LetFun, *ast.DefClos, *ast.LetClos:
		// definitions are always broken
	default:
		if s := flat(n); fits(s, depth) {
			return s
		}
	}

	in := indent(depth + 1)
	closing := "\n" + indent(depth) + ")"

	switch n := e.(type) {
	case *ast.Form:
		if len(n.Items) == 0 {
			return "()"
		}
		var b strings.Builder
		b.WriteString("(" + format(n.Items[0], depth+1))
		for _, arg := range n.Items[1:] {
			b.WriteString("\n" + in + format(arg, depth+1))
		}
		b.WriteString(closing)
		return b.String()

	case *ast.Let:
		var b strings.Builder
		b.WriteString("(let\n" + in + "(")
		for _, bind := range n.Bindings {
			b.WriteString("\n" + indent(depth+2) + "(" + bind.Name + " " + format(bind.Value, depth+2) + ")")
		}
		b.WriteString("\n" + in + ")")
		b.WriteString("\n" + in + format(n.Body, depth+1))
		b.WriteString(closing)
		return b.String()

	case *ast.If:
		return "(if" +
			"\n" + in + format(n.Cond, depth+1) +
			"\n" + in + format(n.Then, depth+1) +
			"\n" + in + format(n.Else, depth+1) +
			closing

	case *ast.And:
		return formatSeq("and", n.Exprs, depth)
	case *ast.Or:
		return formatSeq("or", n.Exprs, depth)
	case *ast.Not:
		return "(not\n" + in + format(n.Expr, depth+1) + closing

	case *ast.Fn:
		return "(fn " + names(n.Params) + "\n" + in + format(n.Body, depth+1) + closing

	case *ast.Def:
		return "(def " + n.Name + "\n" + in + format(n.Value, depth+1) + closing

	case *ast.Defun:
		return "(defun " + n.Name + " " + names(n.Params) + "\n" + in + format(n.Body, depth+1) + closing

	case *ast.LetFun:
		return "(letfun (" + n.Name + " " + names(n.Params) +
			"\n" + indent(depth+2) + format(n.FunBody, depth+2) +
			"\n" + in + ")" +
			"\n" + in + format(n.Body, depth+1) +
			closing

	case *ast.DefClos:
		return "(defclos " + n.Name + " " + names(n.FreeVars) + " " + names(n.Params) +
			"\n" + in + format(n.Body, depth+1) + closing

	case *ast.LetClos:
		return "(letclos (" + n.Name + " " + n.ClosID + " " + names(n.FreeVars) + ")" +
			"\n" + in + format(n.Body, depth+1) + closing
	}
	return flat(e)
}

func formatSeq(op string, exprs []ast.Expr, depth int) string {
	var b strings.Builder
	b.WriteString("(" + op)
	for _, e := range exprs {
		b.WriteString("\n" + indent(depth+1) + format(e, depth+1))
	}
	b.WriteString("\n" + indent(depth) + ")")
	return b.String()
}

// flat renders e on a single line.
func flat(e ast.Expr) string {
	switch n := e.(type) {
	case *ast.Nil:
		return "nil"
	case *ast.Bool:
		if n.Value {
			return "true"
		}
		return "false"
	case *ast.Int:
		return strconv.FormatInt(n.Value, 10)
	case *ast.Float:
		return formatFloatLiteral(n.Value)
	case *ast.Str:
		return QuoteString(n.Value)
	case *ast.Id:
		return n.Name
	case *ast.Form:
		return "(" + flatList(n.Items) + ")"
	case *ast.Let:
		parts := make([]string, len(n.Bindings))
		for i, b := range n.Bindings {
			parts[i] = "(" + b.Name + " " + flat(b.Value) + ")"
		}
		return "(let (" + strings.Join(parts, " ") + ") " + flat(n.Body) + ")"
	case *ast.If:
		return "(if " + flat(n.Cond) + " " + flat(n.Then) + " " + flat(n.Else) + ")"
	case *ast.And:
		return flatSeq("and", n.Exprs)
	case *ast.Or:
		return flatSeq("or", n.Exprs)
	case *ast.Not:
		return "(not " + flat(n.Expr) + ")"
	case *ast.Fn:
		return "(fn " + names(n.Params) + " " + flat(n.Body) + ")"
	case *ast.Def:
		return "(def " + n.Name + " " + flat(n.Value) + ")"
	case *ast.Defun:
		return "(defun " + n.Name + " " + names(n.Params) + " " + flat(n.Body) + ")"
	case *ast.LetFun:
		return "(letfun (" + n.Name + " " + names(n.Params) + " " + flat(n.FunBody) + ") " + flat(n.Body) + ")"
	case *ast.DefClos:
		return "(defclos " + n.Name + " " + names(n.FreeVars) + " " + names(n.Params) + " " + flat(n.Body) + ")"
	case *ast.LetClos:
		return "(letclos (" + n.Name + " " + n.ClosID + " " + names(n.FreeVars) + ") " + flat(n.Body) + ")"
	case nil:
		return "<nil>"
	}
	return "<" + e.Kind() + ">"
}

func flatList(items []ast.Expr) string {
	parts := make([]string, len(items))
	for i, e := range items {
		parts[i] = flat(e)
	}
	return strings.Join(parts, " ")
}

func flatSeq(op string, exprs []ast.Expr) string {
	if len(exprs) == 0 {
		return "(" + op + ")"
	}
	return "(" + op + " " + flatList(exprs) + ")"
}

func names(ns []string) string {
	return "(" + strings.Join(ns, " ") + ")"
}

// QuoteString renders s as a PureLisp string literal that reads back as s.
func QuoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case 0:
			b.WriteString(`\0`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// formatFloatLiteral always produces a decimal point so that the literal
// reads back as a float, never as an integer.
func formatFloatLiteral(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	raw := strconv.FormatFloat(value, 'g', -1, 64)
	if strings.ContainsAny(raw, "eE") {
		expanded := expandScientificNotation(raw)
		if !strings.Contains(expanded, ".") {
			expanded += ".0"
		}
		return expanded
	}
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return raw
}

// FormatFloat renders a float the way literals are printed.
func FormatFloat(value float64) string {
	return formatFloatLiteral(value)
}

func expandScientificNotation(value string) string {
	lower := strings.ToLower(value)
	parts := strings.SplitN(lower, "e", 2)
	if len(parts) != 2 {
		return value
	}

	mantissa := parts[0]
	exponent, err := strconv.Atoi(parts[1])
	if err != nil {
		return value
	}

	sign := ""
	digits := mantissa
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	} else if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}

	dotIdx := strings.Index(digits, ".")
	intPart := digits
	fracPart := ""
	if dotIdx >= 0 {
		intPart = digits[:dotIdx]
		fracPart = digits[dotIdx+1:]
	}

	compact := intPart + fracPart
	decimalIndex := len(intPart) + exponent

	if decimalIndex <= 0 {
		return sign + "0." + strings.Repeat("0", -decimalIndex) + compact
	}
	if decimalIndex >= len(compact) {
		return sign + compact + strings.Repeat("0", decimalIndex-len(compact)) + ".0"
	}
	return sign + compact[:decimalIndex] + "." + compact[decimalIndex:]
}
