package compiler

import (
	"github.com/thomasrohde/purelisp/pkg/ast"
)

// KNormalize flattens every top-level form of prog. See KNormalizeExpr.
func KNormalize(prog ast.Program, names *NameGenerator) (ast.Program, error) {
	k := &kNormalizer{names: names}
	sc := builtinScope()
	for _, e := range prog {
		switch d := e.(type) {
		case *ast.Def:
			sc = sc.bind(d.Name)
		case *ast.Defun:
			sc = sc.bind(d.Name)
		}
	}
	out := make(ast.Program, 0, len(prog))
	for _, e := range prog {
		n, err := k.expr(e, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// KNormalizeExpr rewrites e so that every application has only atoms in
// operator and operand position, binding non-atomic operands to fresh
// temporaries in left-to-right order. It also desugars and/or/not into if,
// function literals into letfun, defun into def, and expands multi-binding
// lets into nested single-binding lets.
//
// Any binder that shadows a name already in scope is renamed to a fresh
// name, so that later passes can move bindings outward and substitute names
// without capturing references to the shadowed name.
//
// Running it on its own output returns an equal tree.
func KNormalizeExpr(e ast.Expr, names *NameGenerator) (ast.Expr, error) {
	k := &kNormalizer{names: names}
	return k.expr(e, builtinScope())
}

func builtinScope() *scope {
	return (*scope)(nil).bindAll(ast.Builtins)
}

// bindFresh binds name in sc, renaming it when it would shadow.
func (k *kNormalizer) bindFresh(sc *scope, name string) (*scope, string) {
	to := name
	if sc.has(name) {
		to = k.names.Next("@" + name + ".")
	}
	return &scope{name: name, to: to, parent: sc}, to
}

func (k *kNormalizer) bindParams(sc *scope, params []string) (*scope, []string) {
	out := make([]string, len(params))
	for i, p := range params {
		sc, out[i] = k.bindFresh(sc, p)
	}
	return sc, out
}

type kNormalizer struct {
	names *NameGenerator
}

func (k *kNormalizer) expr(e ast.Expr, sc *scope) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Nil, *ast.Bool, *ast.Int, *ast.Float, *ast.Str:
		return e, nil

	case *ast.Id:
		if b := sc.lookup(n.Name); b != nil && b.to != n.Name {
			return &ast.Id{Name: b.to}, nil
		}
		return e, nil

	case *ast.Form:
		if len(n.Items) == 0 {
			return nil, malformed(PassKNormal, e, "empty application")
		}
		var temps []ast.Binding
		items := make([]ast.Expr, len(n.Items))
		for i, item := range n.Items {
			v, err := k.expr(item, sc)
			if err != nil {
				return nil, err
			}
			if ast.IsAtom(v) {
				items[i] = v
				continue
			}
			t := k.names.Next(TempPrefix)
			temps = append(temps, ast.Binding{Name: t, Value: v})
			items[i] = &ast.Id{Name: t}
		}
		return nest(temps, &ast.Form{Items: items}), nil

	case *ast.If:
		cond, err := k.expr(n.Cond, sc)
		if err != nil {
			return nil, err
		}
		then, err := k.expr(n.Then, sc)
		if err != nil {
			return nil, err
		}
		els, err := k.expr(n.Else, sc)
		if err != nil {
			return nil, err
		}
		if ast.IsAtom(cond) {
			return &ast.If{Cond: cond, Then: then, Else: els}, nil
		}
		t := k.names.Next(TempPrefix)
		return ast.NewLet(t, cond, &ast.If{Cond: &ast.Id{Name: t}, Then: then, Else: els}), nil

	case *ast.And:
		return k.expr(desugarAnd(n.Exprs), sc)
	case *ast.Or:
		return k.expr(desugarOr(n.Exprs), sc)
	case *ast.Not:
		return k.expr(&ast.If{Cond: n.Expr, Then: &ast.Bool{Value: false}, Else: &ast.Bool{Value: true}}, sc)

	case *ast.Fn:
		inner, params := k.bindParams(sc, n.Params)
		body, err := k.expr(n.Body, inner)
		if err != nil {
			return nil, err
		}
		name := k.names.Next(FnPrefix)
		return &ast.LetFun{Name: name, Params: params, FunBody: body, Body: &ast.Id{Name: name}}, nil

	case *ast.Def:
		v, err := k.expr(n.Value, sc)
		if err != nil {
			return nil, err
		}
		return &ast.Def{Name: n.Name, Value: v}, nil

	case *ast.Defun:
		return k.expr(&ast.Def{Name: n.Name, Value: &ast.Fn{Params: n.Params, Body: n.Body}}, sc)

	case *ast.LetFun:
		inner, name := k.bindFresh(sc, n.Name)
		fnScope, params := k.bindParams(inner, n.Params)
		fb, err := k.expr(n.FunBody, fnScope)
		if err != nil {
			return nil, err
		}
		body, err := k.expr(n.Body, inner)
		if err != nil {
			return nil, err
		}
		return &ast.LetFun{Name: name, Params: params, FunBody: fb, Body: body}, nil

	case *ast.Let:
		bindings := make([]ast.Binding, len(n.Bindings))
		inner := sc
		for i, b := range n.Bindings {
			v, err := k.expr(b.Value, inner)
			if err != nil {
				return nil, err
			}
			var name string
			inner, name = k.bindFresh(inner, b.Name)
			bindings[i] = ast.Binding{Name: name, Value: v}
		}
		body, err := k.expr(n.Body, inner)
		if err != nil {
			return nil, err
		}
		return nest(bindings, body), nil
	}
	return nil, unexpected(PassKNormal, e)
}

// nest right-folds bindings into a chain of single-binding lets around body.
func nest(bindings []ast.Binding, body ast.Expr) ast.Expr {
	out := body
	for i := len(bindings) - 1; i >= 0; i-- {
		out = ast.NewLet(bindings[i].Name, bindings[i].Value, out)
	}
	return out
}

// (and a b c) => (if a (if b c false) false)
func desugarAnd(exprs []ast.Expr) ast.Expr {
	if len(exprs) == 0 {
		return &ast.Bool{Value: true}
	}
	out := exprs[len(exprs)-1]
	for i := len(exprs) - 2; i >= 0; i-- {
		out = &ast.If{Cond: exprs[i], Then: out, Else: &ast.Bool{Value: false}}
	}
	return out
}

// (or a b c) => (if a true (if b true c))
func desugarOr(exprs []ast.Expr) ast.Expr {
	if len(exprs) == 0 {
		return &ast.Bool{Value: false}
	}
	out := exprs[len(exprs)-1]
	for i := len(exprs) - 2; i >= 0; i-- {
		out = &ast.If{Cond: exprs[i], Then: &ast.Bool{Value: true}, Else: out}
	}
	return out
}
