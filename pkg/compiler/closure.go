package compiler

import (
	"github.com/thomasrohde/purelisp/pkg/ast"
)

// closureConverter is the state of one closure conversion: the hoisted
// definitions built so far, the ids already hoisted, and the names of the
// program's globals.
type closureConverter struct {
	names   *NameGenerator
	defs    ast.Program
	hoisted map[string]bool
	globals map[string]bool
}

// ConvertClosures hoists every letfun to a top-level definition. A function
// with no free variables becomes a defun and its local name is replaced by
// the hoisted id; a function that captures variables becomes a defclos
// template and a letclos that builds the closure where the letfun was.
//
// Free variables are computed against the function's own name and
// parameters, the builtins, the already hoisted ids and the program's
// globals, except builtins and globals that a local binding shadows. The
// hoisted definitions precede the converted program in the result.
func ConvertClosures(prog ast.Program, names *NameGenerator) (ast.Program, error) {
	c := &closureConverter{
		names:   names,
		hoisted: map[string]bool{},
		globals: map[string]bool{},
	}
	for _, e := range prog {
		switch d := e.(type) {
		case *ast.Def:
			c.globals[d.Name] = true
		case *ast.Defun:
			c.globals[d.Name] = true
		}
	}

	converted := make(ast.Program, 0, len(prog))
	for _, e := range prog {
		switch d := e.(type) {
		case *ast.Def:
			v, err := c.expr(d.Value, nil)
			if err != nil {
				return nil, err
			}
			converted = append(converted, &ast.Def{Name: d.Name, Value: v})
		case *ast.Defun:
			body, err := c.expr(d.Body, (*scope)(nil).bindAll(d.Params))
			if err != nil {
				return nil, err
			}
			converted = append(converted, &ast.Defun{Name: d.Name, Params: d.Params, Body: body})
		default:
			v, err := c.expr(e, nil)
			if err != nil {
				return nil, err
			}
			converted = append(converted, v)
		}
	}
	return append(c.defs, converted...), nil
}

// expr converts e. locals holds the names bound around e, which hide
// globals and builtins of the same name.
func (c *closureConverter) expr(e ast.Expr, locals *scope) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Nil, *ast.Bool, *ast.Int, *ast.Float, *ast.Str, *ast.Id:
		return e, nil

	case *ast.Form:
		items := make([]ast.Expr, len(n.Items))
		for i, item := range n.Items {
			v, err := c.expr(item, locals)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return &ast.Form{Items: items}, nil

	case *ast.If:
		cond, err := c.expr(n.Cond, locals)
		if err != nil {
			return nil, err
		}
		then, err := c.expr(n.Then, locals)
		if err != nil {
			return nil, err
		}
		els, err := c.expr(n.Else, locals)
		if err != nil {
			return nil, err
		}
		return &ast.If{Cond: cond, Then: then, Else: els}, nil

	case *ast.Let:
		bindings := make([]ast.Binding, len(n.Bindings))
		inner := locals
		for i, b := range n.Bindings {
			v, err := c.expr(b.Value, inner)
			if err != nil {
				return nil, err
			}
			bindings[i] = ast.Binding{Name: b.Name, Value: v}
			inner = inner.bind(b.Name)
		}
		body, err := c.expr(n.Body, inner)
		if err != nil {
			return nil, err
		}
		return &ast.Let{Bindings: bindings, Body: body}, nil

	case *ast.LetFun:
		return c.letFun(n, locals)
	}
	return nil, unexpected(PassClosure, e)
}

func (c *closureConverter) letFun(n *ast.LetFun, locals *scope) (ast.Expr, error) {
	inner := locals.bind(n.Name)
	funBody, err := c.expr(n.FunBody, inner.bindAll(n.Params))
	if err != nil {
		return nil, err
	}
	body, err := c.expr(n.Body, inner)
	if err != nil {
		return nil, err
	}

	fvs, err := FreeVars(funBody, c.bounded(n, locals))
	if err != nil {
		return nil, err
	}

	closID := c.names.Next(HoistPrefix)
	c.hoisted[closID] = true
	funBody = rename(funBody, n.Name, closID)

	if len(fvs) == 0 {
		c.defs = append(c.defs, &ast.Defun{Name: closID, Params: n.Params, Body: funBody})
		return rename(body, n.Name, closID), nil
	}
	c.defs = append(c.defs, &ast.DefClos{Name: closID, FreeVars: fvs, Params: n.Params, Body: funBody})
	return &ast.LetClos{Name: n.Name, ClosID: closID, FreeVars: fvs, Body: body}, nil
}

func (c *closureConverter) bounded(n *ast.LetFun, locals *scope) map[string]bool {
	b := make(map[string]bool, len(c.hoisted)+len(c.globals)+len(ast.Builtins)+len(n.Params)+1)
	for id := range c.hoisted {
		b[id] = true
	}
	for g := range c.globals {
		if !locals.has(g) {
			b[g] = true
		}
	}
	for _, name := range ast.Builtins {
		if !locals.has(name) {
			b[name] = true
		}
	}
	b[n.Name] = true
	for _, p := range n.Params {
		b[p] = true
	}
	return b
}

// rename replaces free occurrences of from with to, including the capture
// lists of letclos nodes. It stops under binders that rebind from.
func rename(e ast.Expr, from, to string) ast.Expr {
	switch n := e.(type) {
	case *ast.Id:
		if n.Name == from {
			return &ast.Id{Name: to}
		}
		return n

	case *ast.Form:
		items := make([]ast.Expr, len(n.Items))
		for i, item := range n.Items {
			items[i] = rename(item, from, to)
		}
		return &ast.Form{Items: items}

	case *ast.If:
		return &ast.If{
			Cond: rename(n.Cond, from, to),
			Then: rename(n.Then, from, to),
			Else: rename(n.Else, from, to),
		}

	case *ast.Let:
		bindings := make([]ast.Binding, len(n.Bindings))
		active := true
		for i, b := range n.Bindings {
			v := b.Value
			if active {
				v = rename(v, from, to)
			}
			bindings[i] = ast.Binding{Name: b.Name, Value: v}
			if b.Name == from {
				active = false
			}
		}
		body := n.Body
		if active {
			body = rename(body, from, to)
		}
		return &ast.Let{Bindings: bindings, Body: body}

	case *ast.LetFun:
		if n.Name == from {
			return n
		}
		fb := n.FunBody
		if !contains(n.Params, from) {
			fb = rename(fb, from, to)
		}
		return &ast.LetFun{Name: n.Name, Params: n.Params, FunBody: fb, Body: rename(n.Body, from, to)}

	case *ast.LetClos:
		fvs := make([]string, len(n.FreeVars))
		for i, fv := range n.FreeVars {
			if fv == from {
				fv = to
			}
			fvs[i] = fv
		}
		body := n.Body
		if n.Name != from {
			body = rename(body, from, to)
		}
		return &ast.LetClos{Name: n.Name, ClosID: n.ClosID, FreeVars: fvs, Body: body}
	}
	return e
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
