// Package llvmgen lowers closure-converted PureLisp programs to textual LLVM
// IR.
//
// Values are pointers to boxed runtime values and appear as i8* in the IR.
// Functions have the signature i8* (i8** args) and closure templates
// i8* (i8** freevars, i8** args); the boxed runtime in RuntimeSource
// provides constructors, calls and the builtin operators.
package llvmgen

import (
	_ "embed"
	"strconv"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/formatter"
)

// RuntimeFile is the C file generated modules are linked with.
const RuntimeFile = "runtime_llvm.c"

// Pass is the pass name reported in invariant errors.
const Pass = "llvmgen"

//go:embed rt/runtime_llvm.c
var runtimeSource string

// RuntimeSource returns the boxed C runtime that generated modules call.
func RuntimeSource() string { return runtimeSource }

var (
	handle = types.I8Ptr
	buffer = types.NewPointer(types.I8Ptr)
)

var builtinFuncs = map[string]string{
	"+":  "__plb_add",
	"-":  "__plb_sub",
	"*":  "__plb_mul",
	"/":  "__plb_div",
	"=":  "__plb_eq",
	"<":  "__plb_lt",
	"<=": "__plb_leq",
	">":  "__plb_gt",
	">=": "__plb_geq",
}

type runtimeFuncs struct {
	newNil, newBool, newInt, newFloat, newStr *ir.Func
	newFuncptr, newClos, alloc                *ir.Func
	truthy, funcall, print                    *ir.Func
}

func declareRuntime(m *ir.Module) runtimeFuncs {
	return runtimeFuncs{
		newNil:     m.NewFunc("__plb_nil", handle),
		newBool:    m.NewFunc("__plb_bool", handle, ir.NewParam("b", types.I32)),
		newInt:     m.NewFunc("__plb_int", handle, ir.NewParam("n", types.I64)),
		newFloat:   m.NewFunc("__plb_float", handle, ir.NewParam("x", types.Double)),
		newStr:     m.NewFunc("__plb_str", handle, ir.NewParam("s", types.I8Ptr)),
		newFuncptr: m.NewFunc("__plb_funcptr", handle, ir.NewParam("fn", types.I8Ptr)),
		newClos:    m.NewFunc("__plb_clos", handle, ir.NewParam("fn", types.I8Ptr), ir.NewParam("freevars", buffer)),
		alloc:      m.NewFunc("__plb_alloc", buffer, ir.NewParam("n", types.I64)),
		truthy:     m.NewFunc("__plb_truthy", types.I32, ir.NewParam("v", handle)),
		funcall:    m.NewFunc("__plb_funcall", handle, ir.NewParam("args", buffer)),
		print:      m.NewFunc("__plb_print", types.Void, ir.NewParam("v", handle)),
	}
}

type symKind int

const (
	symLocal symKind = iota
	symGlobal
	symFunc
	symTemplate
	symSelf
)

type symbol struct {
	name   string
	kind   symKind
	val    value.Value
	fn     *ir.Func
	global *ir.Global
}

type generator struct {
	m       *ir.Module
	rt      runtimeFuncs
	env     []symbol
	counter int
	strs    map[string]constant.Constant

	fn       *ir.Func
	block    *ir.Block
	freevars value.Value
}

// Generate lowers a closure-converted program to an LLVM module and returns
// its textual form. The module's main evaluates the top-level forms in
// order, storing defs into globals and printing the value of every other
// expression.
//
// The accepted input is the same as for the C generator; anything else is
// reported as an invariant error.
func Generate(prog ast.Program) (string, error) {
	m := ir.NewModule()
	g := &generator{
		m:    m,
		rt:   declareRuntime(m),
		strs: map[string]constant.Constant{},
	}
	for _, name := range ast.Builtins {
		fn := m.NewFunc(builtinFuncs[name], handle, ir.NewParam("args", buffer))
		g.push(symbol{name: name, kind: symFunc, fn: fn})
	}

	for _, e := range prog {
		switch d := e.(type) {
		case *ast.Def:
			glob := m.NewGlobalDef(g.fresh("pl_var"), constant.NewNull(types.I8Ptr))
			g.push(symbol{name: d.Name, kind: symGlobal, global: glob})
		case *ast.Defun:
			fn := m.NewFunc(g.fresh("pl_func"), handle, ir.NewParam("args", buffer))
			g.push(symbol{name: d.Name, kind: symFunc, fn: fn})
		case *ast.DefClos:
			fn := m.NewFunc(g.fresh("pl_clos"), handle, ir.NewParam("freevars", buffer), ir.NewParam("args", buffer))
			g.push(symbol{name: d.Name, kind: symTemplate, fn: fn})
		}
	}

	main := m.NewFunc("main", types.I32)
	g.fn, g.block = main, main.NewBlock("entry")
	for _, e := range prog {
		var err error
		switch d := e.(type) {
		case *ast.Def:
			err = g.def(d)
		case *ast.Defun:
			sym, _ := g.lookup(d.Name)
			err = g.function(sym.fn, nil, d.Params, d.Body)
		case *ast.DefClos:
			sym, _ := g.lookup(d.Name)
			err = g.function(sym.fn, d, d.Params, d.Body)
		default:
			var v value.Value
			if v, err = g.expr(e); err == nil {
				g.block.NewCall(g.rt.print, v)
			}
		}
		if err != nil {
			return "", err
		}
	}
	g.block.NewRet(constant.NewInt(types.I32, 0))
	return m.String(), nil
}

func (g *generator) fresh(prefix string) string {
	name := prefix + "_" + strconv.Itoa(g.counter)
	g.counter++
	return name
}

func (g *generator) push(s symbol) { g.env = append(g.env, s) }

func (g *generator) pop(n int) { g.env = g.env[:len(g.env)-n] }

func (g *generator) lookup(name string) (symbol, bool) {
	for i := len(g.env) - 1; i >= 0; i-- {
		if g.env[i].name == name {
			return g.env[i], true
		}
	}
	return symbol{}, false
}

func (g *generator) def(d *ast.Def) error {
	sym, _ := g.lookup(d.Name)
	v, err := g.expr(d.Value)
	if err != nil {
		return err
	}
	g.block.NewStore(v, sym.global)
	return nil
}

// function emits the body of fn. tmpl is set for closure templates, whose
// first parameter is the captured buffer.
func (g *generator) function(fn *ir.Func, tmpl *ast.DefClos, params []string, body ast.Expr) error {
	savedFn, savedBlock, savedFV := g.fn, g.block, g.freevars
	defer func() { g.fn, g.block, g.freevars = savedFn, savedBlock, savedFV }()

	g.fn, g.block = fn, fn.NewBlock("entry")
	args := fn.Params[0]
	pushed := 0
	if tmpl != nil {
		g.freevars, args = fn.Params[0], fn.Params[1]
		g.push(symbol{name: tmpl.Name, kind: symSelf, fn: fn})
		pushed++
		for i, fv := range tmpl.FreeVars {
			g.push(symbol{name: fv, kind: symLocal, val: g.index(g.freevars, i)})
			pushed++
		}
	}
	for i, p := range params {
		g.push(symbol{name: p, kind: symLocal, val: g.index(args, i)})
		pushed++
	}
	defer g.pop(pushed)

	v, err := g.expr(body)
	if err != nil {
		return err
	}
	g.block.NewRet(v)
	return nil
}

// index loads buf[i].
func (g *generator) index(buf value.Value, i int) value.Value {
	ptr := g.block.NewGetElementPtr(handle, buf, constant.NewInt(types.I64, int64(i)))
	return g.block.NewLoad(handle, ptr)
}

func (g *generator) store(buf value.Value, i int, v value.Value) {
	ptr := g.block.NewGetElementPtr(handle, buf, constant.NewInt(types.I64, int64(i)))
	g.block.NewStore(v, ptr)
}

func (g *generator) load(name string) (value.Value, error) {
	sym, ok := g.lookup(name)
	if !ok {
		return nil, diagnostics.Invariantf(Pass, name, "undefined identifier")
	}
	switch sym.kind {
	case symGlobal:
		return g.block.NewLoad(handle, sym.global), nil
	case symFunc:
		return g.block.NewCall(g.rt.newFuncptr, constant.NewBitCast(sym.fn, types.I8Ptr)), nil
	case symSelf:
		return g.block.NewCall(g.rt.newClos, constant.NewBitCast(sym.fn, types.I8Ptr), g.freevars), nil
	case symTemplate:
		return nil, diagnostics.Invariantf(Pass, name, "closure template used outside a letclos")
	}
	return sym.val, nil
}

func (g *generator) str(s string) constant.Constant {
	if c, ok := g.strs[s]; ok {
		return c
	}
	arr := constant.NewCharArrayFromString(s + "\x00")
	glob := g.m.NewGlobalDef(g.fresh("str"), arr)
	glob.Linkage = enum.LinkagePrivate
	glob.Immutable = true
	zero := constant.NewInt(types.I64, 0)
	c := constant.NewGetElementPtr(arr.Typ, glob, zero, zero)
	g.strs[s] = c
	return c
}

func (g *generator) expr(e ast.Expr) (value.Value, error) {
	switch n := e.(type) {
	case *ast.Nil:
		return g.block.NewCall(g.rt.newNil), nil
	case *ast.Bool:
		b := int64(0)
		if n.Value {
			b = 1
		}
		return g.block.NewCall(g.rt.newBool, constant.NewInt(types.I32, b)), nil
	case *ast.Int:
		return g.block.NewCall(g.rt.newInt, constant.NewInt(types.I64, n.Value)), nil
	case *ast.Float:
		return g.block.NewCall(g.rt.newFloat, constant.NewFloat(types.Double, n.Value)), nil
	case *ast.Str:
		return g.block.NewCall(g.rt.newStr, g.str(n.Value)), nil
	case *ast.Id:
		return g.load(n.Name)

	case *ast.Form:
		if len(n.Items) == 0 {
			return nil, diagnostics.Invariantf(Pass, "()", "empty application")
		}
		vals := make([]value.Value, len(n.Items))
		for i, item := range n.Items {
			v, err := g.expr(item)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		buf := g.block.NewAlloca(handle)
		buf.NElems = constant.NewInt(types.I64, int64(len(vals)))
		for i, v := range vals {
			g.store(buf, i, v)
		}
		return g.block.NewCall(g.rt.funcall, buf), nil

	case *ast.If:
		cond, err := g.expr(n.Cond)
		if err != nil {
			return nil, err
		}
		truth := g.block.NewCall(g.rt.truthy, cond)
		isTrue := g.block.NewICmp(enum.IPredNE, truth, constant.NewInt(types.I32, 0))
		thenBlock, elseBlock := g.fn.NewBlock(""), g.fn.NewBlock("")
		g.block.NewCondBr(isTrue, thenBlock, elseBlock)

		g.block = thenBlock
		thenVal, err := g.expr(n.Then)
		if err != nil {
			return nil, err
		}
		thenEnd := g.block

		g.block = elseBlock
		elseVal, err := g.expr(n.Else)
		if err != nil {
			return nil, err
		}
		elseEnd := g.block

		merge := g.fn.NewBlock("")
		thenEnd.NewBr(merge)
		elseEnd.NewBr(merge)
		g.block = merge
		return merge.NewPhi(ir.NewIncoming(thenVal, thenEnd), ir.NewIncoming(elseVal, elseEnd)), nil

	case *ast.Let:
		if len(n.Bindings) != 1 {
			return nil, diagnostics.Invariantf(Pass, formatter.Format(e), "let with %d bindings", len(n.Bindings))
		}
		b := n.Bindings[0]
		v, err := g.expr(b.Value)
		if err != nil {
			return nil, err
		}
		g.push(symbol{name: b.Name, kind: symLocal, val: v})
		defer g.pop(1)
		return g.expr(n.Body)

	case *ast.LetClos:
		tmpl, ok := g.lookup(n.ClosID)
		if !ok || tmpl.kind != symTemplate && tmpl.kind != symSelf {
			return nil, diagnostics.Invariantf(Pass, n.ClosID, "undefined closure template")
		}
		buf := g.block.NewCall(g.rt.alloc, constant.NewInt(types.I64, int64(len(n.FreeVars))))
		for i, fv := range n.FreeVars {
			v, err := g.load(fv)
			if err != nil {
				return nil, err
			}
			g.store(buf, i, v)
		}
		clos := g.block.NewCall(g.rt.newClos, constant.NewBitCast(tmpl.fn, types.I8Ptr), buf)
		g.push(symbol{name: n.Name, kind: symLocal, val: clos})
		defer g.pop(1)
		return g.expr(n.Body)
	}
	return nil, diagnostics.Invariantf(Pass, formatter.Format(e), "unexpected %s", e.Kind())
}
