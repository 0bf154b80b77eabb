package compiler

import (
	"github.com/thomasrohde/purelisp/pkg/ast"
)

// copyEnv is a persistent substitution environment, newest entry first.
// An entry with a nil value marks a name bound to something unknown at
// compile time; it hides any outer substitution for the same name.
type copyEnv struct {
	name   string
	value  ast.Expr
	parent *copyEnv
}

func (e *copyEnv) with(name string, value ast.Expr) *copyEnv {
	return &copyEnv{name: name, value: value, parent: e}
}

func (e *copyEnv) opaque(names ...string) *copyEnv {
	for _, n := range names {
		e = e.with(n, nil)
	}
	return e
}

// resolve follows aliases starting at name. Each alias is chased in the
// environment where it was recorded, so later rebindings of the target
// name cannot redirect it.
func (e *copyEnv) resolve(name string) ast.Expr {
	env := e
	for {
		var hit *copyEnv
		for c := env; c != nil; c = c.parent {
			if c.name == name {
				hit = c
				break
			}
		}
		if hit == nil || hit.value == nil {
			return &ast.Id{Name: name}
		}
		id, ok := hit.value.(*ast.Id)
		if !ok {
			return hit.value
		}
		name, env = id.Name, hit.parent
	}
}

// CopyPropagate substitutes names bound to atoms by those atoms and drops
// the bindings. The input must be A-normal.
//
// A top-level def of an atom is dropped and substituted in the forms that
// follow it, unless an earlier form already refers to the name; in that case
// the def is kept so the earlier reference still has a global to read.
func CopyPropagate(prog ast.Program) (ast.Program, error) {
	var env *copyEnv
	out := make(ast.Program, 0, len(prog))
	seen := map[string]bool{}
	for _, e := range prog {
		switch d := e.(type) {
		case *ast.Def:
			v, err := copyProp(d.Value, env)
			if err != nil {
				return nil, err
			}
			if id, ok := v.(*ast.Id); ok && id.Name == d.Name {
				break
			}
			if ast.IsAtom(v) && !seen[d.Name] {
				env = env.with(d.Name, v)
				break
			}
			env = env.opaque(d.Name)
			out = append(out, &ast.Def{Name: d.Name, Value: v})
		case *ast.Defun:
			body, err := copyProp(d.Body, env.opaque(d.Name).opaque(d.Params...))
			if err != nil {
				return nil, err
			}
			env = env.opaque(d.Name)
			out = append(out, &ast.Defun{Name: d.Name, Params: d.Params, Body: body})
		default:
			n, err := copyProp(e, env)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		collectIds(e, seen)
	}
	return out, nil
}

// CopyPropagateExpr propagates within a single expression.
func CopyPropagateExpr(e ast.Expr) (ast.Expr, error) {
	return copyProp(e, nil)
}

func copyProp(e ast.Expr, env *copyEnv) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Nil, *ast.Bool, *ast.Int, *ast.Float, *ast.Str:
		return e, nil

	case *ast.Id:
		return env.resolve(n.Name), nil

	case *ast.Form:
		items := make([]ast.Expr, len(n.Items))
		for i, item := range n.Items {
			v, err := copyProp(item, env)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return &ast.Form{Items: items}, nil

	case *ast.If:
		cond, err := copyProp(n.Cond, env)
		if err != nil {
			return nil, err
		}
		then, err := copyProp(n.Then, env)
		if err != nil {
			return nil, err
		}
		els, err := copyProp(n.Else, env)
		if err != nil {
			return nil, err
		}
		return &ast.If{Cond: cond, Then: then, Else: els}, nil

	case *ast.Let:
		if len(n.Bindings) != 1 {
			return nil, malformed(PassCopyProp, e, "let with %d bindings", len(n.Bindings))
		}
		b := n.Bindings[0]
		if id, ok := b.Value.(*ast.Id); ok && id.Name == b.Name {
			return copyProp(n.Body, env)
		}
		v, err := copyProp(b.Value, env)
		if err != nil {
			return nil, err
		}
		if ast.IsAtom(v) {
			if id, ok := v.(*ast.Id); ok && id.Name == b.Name {
				// bound to the very name it already resolves to
				return copyProp(n.Body, env)
			}
			return copyProp(n.Body, env.with(b.Name, v))
		}
		body, err := copyProp(n.Body, env.opaque(b.Name))
		if err != nil {
			return nil, err
		}
		return ast.NewLet(b.Name, v, body), nil

	case *ast.LetFun:
		inner := env.opaque(n.Name)
		fb, err := copyProp(n.FunBody, inner.opaque(n.Params...))
		if err != nil {
			return nil, err
		}
		body, err := copyProp(n.Body, inner)
		if err != nil {
			return nil, err
		}
		return &ast.LetFun{Name: n.Name, Params: n.Params, FunBody: fb, Body: body}, nil
	}
	return nil, unexpected(PassCopyProp, e)
}

// collectIds adds every identifier referenced in e to seen.
func collectIds(e ast.Expr, seen map[string]bool) {
	switch n := e.(type) {
	case *ast.Id:
		seen[n.Name] = true
	case *ast.Form:
		for _, item := range n.Items {
			collectIds(item, seen)
		}
	case *ast.Let:
		for _, b := range n.Bindings {
			collectIds(b.Value, seen)
		}
		collectIds(n.Body, seen)
	case *ast.If:
		collectIds(n.Cond, seen)
		collectIds(n.Then, seen)
		collectIds(n.Else, seen)
	case *ast.LetFun:
		collectIds(n.FunBody, seen)
		collectIds(n.Body, seen)
	case *ast.Def:
		collectIds(n.Value, seen)
	case *ast.Defun:
		collectIds(n.Body, seen)
	}
}
