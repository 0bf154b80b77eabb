// Package cgen emits C source for closure-converted PureLisp programs.
//
// Every PureLisp value is a PLV struct passed by value. Functions take an
// argument buffer, closure templates additionally take the buffer of
// captured values. The runtime those programs link against is embedded and
// available through RuntimeSource.
package cgen

import (
	_ "embed"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/formatter"
)

// RuntimeFile is the name generated programs include.
const RuntimeFile = "runtime.c"

// Pass is the pass name reported in invariant errors.
const Pass = "cgen"

//go:embed rt/runtime.c
var runtimeSource string

// RuntimeSource returns the C runtime that generated programs include.
func RuntimeSource() string { return runtimeSource }

var builtinFuncs = map[string]string{
	"+":  "global_func_add",
	"-":  "global_func_sub",
	"*":  "global_func_mul",
	"/":  "global_func_div",
	"=":  "global_func_eq",
	"<":  "global_func_lt",
	"<=": "global_func_leq",
	">":  "global_func_gt",
	">=": "global_func_geq",
}

type locKind int

const (
	locValue    locKind = iota // a PLV lvalue
	locFunc                    // a C function taking an argument buffer
	locTemplate                // a closure template
	locSelf                    // the template currently being generated
)

type binding struct {
	name string
	loc  string
	kind locKind
}

// value is the result of generating an expression: the statements that
// compute it and the C lvalue holding it afterwards. owned is set when the
// lvalue was introduced by the expression itself and may be released.
type value struct {
	code  []string
	addr  string
	owned bool
}

type generator struct {
	counter   int
	env       []binding
	templates map[string]*ast.DefClos

	funcDecl   []string
	closDecl   []string
	globalDecl []string
	mainProg   []string
	funcDef    []string
	closDef    []string
}

// Generate translates a closure-converted program into a C translation unit
// that includes RuntimeFile. Top-level expressions are evaluated in order by
// main and their values printed one per line.
//
// The input may only contain def, defun and defclos at top level and atoms,
// applications, if, let and letclos in expression position. Anything else,
// or an identifier with no binding, is reported as an invariant error.
func Generate(prog ast.Program) (string, error) {
	g := &generator{templates: map[string]*ast.DefClos{}}
	for name, fn := range builtinFuncs {
		g.push(name, fn, locFunc)
	}

	// Every top-level name gets its location up front: hoisted functions
	// precede the globals they read.
	for _, e := range prog {
		switch d := e.(type) {
		case *ast.Def:
			g.push(d.Name, g.fresh("global_var"), locValue)
		case *ast.Defun:
			g.push(d.Name, g.fresh("global_func"), locFunc)
		case *ast.DefClos:
			g.templates[d.Name] = d
			g.push(d.Name, g.fresh("global_clos"), locTemplate)
		}
	}

	for _, e := range prog {
		var err error
		switch d := e.(type) {
		case *ast.Def:
			err = g.def(d)
		case *ast.Defun:
			err = g.defun(d)
		case *ast.DefClos:
			err = g.defclos(d)
		default:
			err = g.mainExpr(e)
		}
		if err != nil {
			return "", err
		}
	}
	return g.assemble(), nil
}

func (g *generator) fresh(prefix string) string {
	name := prefix + "_" + strconv.Itoa(g.counter)
	g.counter++
	return name
}

func (g *generator) push(name, loc string, kind locKind) {
	g.env = append(g.env, binding{name: name, loc: loc, kind: kind})
}

func (g *generator) pop(n int) {
	g.env = g.env[:len(g.env)-n]
}

func (g *generator) lookup(name string) (binding, bool) {
	for i := len(g.env) - 1; i >= 0; i-- {
		if g.env[i].name == name {
			return g.env[i], true
		}
	}
	return binding{}, false
}

func (g *generator) def(d *ast.Def) error {
	b, _ := g.lookup(d.Name)
	v, err := g.expr(d.Value)
	if err != nil {
		return err
	}
	init := g.fresh("global_var_init_func")
	g.funcDecl = append(g.funcDecl, fmt.Sprintf("PLV %s(void);", init))
	g.funcDef = append(g.funcDef, function(fmt.Sprintf("PLV %s(void)", init), v))
	g.globalDecl = append(g.globalDecl, fmt.Sprintf("PLV %s;", b.loc))
	g.mainProg = append(g.mainProg, fmt.Sprintf("%s = %s();", b.loc, init))
	return nil
}

func (g *generator) defun(d *ast.Defun) error {
	b, _ := g.lookup(d.Name)
	for i, p := range d.Params {
		g.push(p, fmt.Sprintf("args[%d]", i), locValue)
	}
	v, err := g.expr(d.Body)
	g.pop(len(d.Params))
	if err != nil {
		return err
	}
	sig := fmt.Sprintf("PLV %s(PLV *args)", b.loc)
	g.funcDecl = append(g.funcDecl, sig+";")
	g.funcDef = append(g.funcDef, function(sig, v))
	return nil
}

func (g *generator) defclos(d *ast.DefClos) error {
	b, _ := g.lookup(d.Name)
	g.push(d.Name, b.loc, locSelf)
	for i, fv := range d.FreeVars {
		g.push(fv, fmt.Sprintf("freevars[%d]", i), locValue)
	}
	for i, p := range d.Params {
		g.push(p, fmt.Sprintf("args[%d]", i), locValue)
	}
	v, err := g.expr(d.Body)
	g.pop(1 + len(d.FreeVars) + len(d.Params))
	if err != nil {
		return err
	}
	sig := fmt.Sprintf("PLV %s(PLV *freevars, PLV *args)", b.loc)
	g.closDecl = append(g.closDecl, sig+";")
	g.closDef = append(g.closDef, function(sig, v))
	return nil
}

func (g *generator) mainExpr(e ast.Expr) error {
	v, err := g.expr(e)
	if err != nil {
		return err
	}
	g.mainProg = append(g.mainProg, v.code...)
	g.mainProg = append(g.mainProg, fmt.Sprintf("__PLV_print(&%s);", v.addr), "putchar('\\n');")
	return nil
}

func (g *generator) literal(ctor, arg string) value {
	addr := g.fresh("tmp")
	return value{code: []string{fmt.Sprintf("PLV %s = %s(%s);", addr, ctor, arg)}, addr: addr, owned: true}
}

// load produces a value for a bound name. Functions and the current
// template are wrapped into fresh values; everything else is read in place.
func (g *generator) load(name string) (value, error) {
	b, ok := g.lookup(name)
	if !ok {
		return value{}, diagnostics.Invariantf(Pass, name, "undefined identifier")
	}
	switch b.kind {
	case locFunc:
		addr := g.fresh("f")
		return value{code: []string{fmt.Sprintf("PLV %s = __new_FUNCPTR(%s);", addr, b.loc)}, addr: addr, owned: true}, nil
	case locSelf:
		addr := g.fresh("f")
		return value{code: []string{fmt.Sprintf("PLV %s = __new_CLOS(%s, freevars);", addr, b.loc)}, addr: addr, owned: true}, nil
	case locTemplate:
		return value{}, diagnostics.Invariantf(Pass, name, "closure template used outside a letclos")
	}
	return value{addr: b.loc}, nil
}

func (g *generator) expr(e ast.Expr) (value, error) {
	switch n := e.(type) {
	case *ast.Nil:
		return g.literal("__new_NIL", ""), nil
	case *ast.Bool:
		if n.Value {
			return g.literal("__new_BOOL", "1"), nil
		}
		return g.literal("__new_BOOL", "0"), nil
	case *ast.Int:
		return g.literal("__new_INT", intLiteral(n.Value)), nil
	case *ast.Float:
		return g.literal("__new_FLOAT", floatLiteral(n.Value)), nil
	case *ast.Str:
		return g.literal("__new_STR", stringLiteral(n.Value)), nil
	case *ast.Id:
		return g.load(n.Name)

	case *ast.Form:
		if len(n.Items) == 0 {
			return value{}, diagnostics.Invariantf(Pass, "()", "empty application")
		}
		var code []string
		addrs := make([]string, len(n.Items))
		for i, item := range n.Items {
			v, err := g.expr(item)
			if err != nil {
				return value{}, err
			}
			code = append(code, v.code...)
			addrs[i] = v.addr
		}
		args := g.fresh("args")
		code = append(code, fmt.Sprintf("PLV %s[%d];", args, len(addrs)))
		for i, a := range addrs {
			code = append(code, fmt.Sprintf("%s[%d] = %s;", args, i, a))
		}
		addr := g.fresh("tmp")
		code = append(code, fmt.Sprintf("PLV %s = __PL_funcall(%s);", addr, args))
		return value{code: code, addr: addr, owned: true}, nil

	case *ast.If:
		cond, err := g.expr(n.Cond)
		if err != nil {
			return value{}, err
		}
		then, err := g.expr(n.Then)
		if err != nil {
			return value{}, err
		}
		els, err := g.expr(n.Else)
		if err != nil {
			return value{}, err
		}
		addr := g.fresh("tmp")
		code := append([]string{}, cond.code...)
		code = append(code, fmt.Sprintf("PLV %s;", addr))
		code = append(code, fmt.Sprintf("if (__PL_truthy(&%s)) {", cond.addr))
		code = append(code, indent(then.code)...)
		code = append(code, fmt.Sprintf("    %s = %s;", addr, then.addr), "} else {")
		code = append(code, indent(els.code)...)
		code = append(code, fmt.Sprintf("    %s = %s;", addr, els.addr), "}")
		return value{code: code, addr: addr, owned: true}, nil

	case *ast.Let:
		if len(n.Bindings) != 1 {
			return value{}, diagnostics.Invariantf(Pass, formatter.Format(e), "let with %d bindings", len(n.Bindings))
		}
		b := n.Bindings[0]
		bound, err := g.expr(b.Value)
		if err != nil {
			return value{}, err
		}
		g.push(b.Name, bound.addr, locValue)
		body, err := g.expr(n.Body)
		g.pop(1)
		if err != nil {
			return value{}, err
		}
		code := append(bound.code, body.code...)
		if bound.owned && bound.addr != body.addr {
			code = append(code, fmt.Sprintf("__delete_PLV(&%s);", bound.addr))
		}
		return value{code: code, addr: body.addr, owned: body.owned}, nil

	case *ast.LetClos:
		return g.letClos(n)
	}
	return value{}, diagnostics.Invariantf(Pass, formatter.Format(e), "unexpected %s", e.Kind())
}

func (g *generator) letClos(n *ast.LetClos) (value, error) {
	tmpl, ok := g.lookup(n.ClosID)
	if !ok || tmpl.kind != locTemplate && tmpl.kind != locSelf {
		return value{}, diagnostics.Invariantf(Pass, n.ClosID, "undefined closure template")
	}

	buf := g.fresh("freevars")
	code := []string{fmt.Sprintf("PLV *%s = malloc(sizeof(PLV) * %d);", buf, len(n.FreeVars))}
	for i, fv := range n.FreeVars {
		v, err := g.load(fv)
		if err != nil {
			return value{}, err
		}
		code = append(code, v.code...)
		code = append(code, fmt.Sprintf("%s[%d] = %s;", buf, i, v.addr))
	}
	clos := g.fresh("clos")
	code = append(code, fmt.Sprintf("PLV %s = __new_CLOS(%s, %s);", clos, tmpl.loc, buf))

	g.push(n.Name, clos, locValue)
	body, err := g.expr(n.Body)
	g.pop(1)
	if err != nil {
		return value{}, err
	}
	code = append(code, body.code...)

	// The buffer can only be freed when no copy of the closure outlives
	// the body.
	escaped := escapes(n.Name, n.Body)
	if t, ok := g.templates[n.ClosID]; ok && !escaped {
		escaped = escapes(n.ClosID, t.Body)
	}
	if !escaped {
		code = append(code, fmt.Sprintf("__delete_PLV(&%s);", clos), fmt.Sprintf("free(%s);", buf))
	}
	return value{code: code, addr: body.addr, owned: body.owned}, nil
}

func (g *generator) assemble() string {
	var b strings.Builder
	b.WriteString("#include \"" + RuntimeFile + "\"\n\n")
	section(&b, "Function declarations", g.funcDecl, "\n")
	section(&b, "Closure declarations", g.closDecl, "\n")
	section(&b, "Global variable declarations", g.globalDecl, "\n")
	b.WriteString("// Main program\nint main(void) {\n")
	for _, line := range g.mainProg {
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("    return 0;\n}\n\n")
	section(&b, "Function definitions", g.funcDef, "\n\n")
	section(&b, "Closure definitions", g.closDef, "\n\n")
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func section(b *strings.Builder, title string, items []string, sep string) {
	b.WriteString("// " + title + "\n")
	if len(items) > 0 {
		b.WriteString(strings.Join(items, sep) + "\n")
	}
	b.WriteString("\n")
}

func function(sig string, body value) string {
	var b strings.Builder
	b.WriteString(sig + " {\n")
	for _, line := range indent(body.code) {
		b.WriteString(line + "\n")
	}
	b.WriteString("    return " + body.addr + ";\n}")
	return b.String()
}

func indent(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = "    " + l
	}
	return out
}

func intLiteral(n int64) string {
	if n == math.MinInt64 {
		return "(-9223372036854775807LL - 1)"
	}
	return strconv.FormatInt(n, 10) + "LL"
}

func floatLiteral(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "INFINITY"
	case math.IsInf(f, -1):
		return "(-INFINITY)"
	case math.IsNaN(f):
		return "NAN"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// stringLiteral quotes s as a C string literal. Bytes outside printable
// ASCII are written as octal escapes.
func stringLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
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
		case '?':
			// avoid trigraphs
			b.WriteString(`\?`)
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&b, `\%03o`, c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
