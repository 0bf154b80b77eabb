package compiler

import (
	"sort"

	"github.com/thomasrohde/purelisp/pkg/ast"
)

// FreeVars returns the sorted names referenced in e that are neither in
// bounded nor bound by a binder inside e.
//
// Let bindings are scoped sequentially, function bodies see their own name
// and parameters, and the capture list of a letclos counts as a reference.
// Definitions are not expressions and make FreeVars fail.
func FreeVars(e ast.Expr, bounded map[string]bool) ([]string, error) {
	found := map[string]bool{}
	if err := freeVars(e, bounded, nil, found); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(found))
	for name := range found {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func freeVars(e ast.Expr, bounded map[string]bool, sc *scope, found map[string]bool) error {
	ref := func(name string) {
		if !bounded[name] && !sc.has(name) {
			found[name] = true
		}
	}

	switch n := e.(type) {
	case *ast.Nil, *ast.Bool, *ast.Int, *ast.Float, *ast.Str:
		return nil

	case *ast.Id:
		ref(n.Name)
		return nil

	case *ast.Form:
		for _, item := range n.Items {
			if err := freeVars(item, bounded, sc, found); err != nil {
				return err
			}
		}
		return nil

	case *ast.Let:
		inner := sc
		for _, b := range n.Bindings {
			if err := freeVars(b.Value, bounded, inner, found); err != nil {
				return err
			}
			inner = inner.bind(b.Name)
		}
		return freeVars(n.Body, bounded, inner, found)

	case *ast.If:
		for _, sub := range []ast.Expr{n.Cond, n.Then, n.Else} {
			if err := freeVars(sub, bounded, sc, found); err != nil {
				return err
			}
		}
		return nil

	case *ast.And:
		for _, sub := range n.Exprs {
			if err := freeVars(sub, bounded, sc, found); err != nil {
				return err
			}
		}
		return nil

	case *ast.Or:
		for _, sub := range n.Exprs {
			if err := freeVars(sub, bounded, sc, found); err != nil {
				return err
			}
		}
		return nil

	case *ast.Not:
		return freeVars(n.Expr, bounded, sc, found)

	case *ast.Fn:
		return freeVars(n.Body, bounded, sc.bindAll(n.Params), found)

	case *ast.LetFun:
		inner := sc.bind(n.Name)
		if err := freeVars(n.FunBody, bounded, inner.bindAll(n.Params), found); err != nil {
			return err
		}
		return freeVars(n.Body, bounded, inner, found)

	case *ast.LetClos:
		for _, fv := range n.FreeVars {
			ref(fv)
		}
		return freeVars(n.Body, bounded, sc.bind(n.Name), found)
	}
	return unexpected(PassFreeVars, e)
}
