package compiler

import (
	"github.com/thomasrohde/purelisp/pkg/ast"
)

// Cont receives the flattened form of an expression and builds the rest of
// the tree around it.
type Cont func(ast.Expr) (ast.Expr, error)

// Identity is the continuation that returns its argument unchanged.
func Identity(e ast.Expr) (ast.Expr, error) { return e, nil }

// ANormalize flattens every top-level form of a K-normal program with the
// identity continuation.
func ANormalize(prog ast.Program) (ast.Program, error) {
	out := make(ast.Program, 0, len(prog))
	for _, e := range prog {
		n, err := ANormalizeExpr(e, Identity)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// ANormalizeExpr pushes k through e so that nested lets in binding position
// become one flat chain of single-binding lets, preserving evaluation order.
// Both branches of an if are normalized on their own since only one runs.
func ANormalizeExpr(e ast.Expr, k Cont) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Nil, *ast.Bool, *ast.Int, *ast.Float, *ast.Str, *ast.Id, *ast.Form:
		return k(e)

	case *ast.Let:
		if len(n.Bindings) != 1 {
			return nil, malformed(PassANormal, e, "let with %d bindings", len(n.Bindings))
		}
		b := n.Bindings[0]
		return ANormalizeExpr(b.Value, func(v ast.Expr) (ast.Expr, error) {
			body, err := ANormalizeExpr(n.Body, k)
			if err != nil {
				return nil, err
			}
			return ast.NewLet(b.Name, v, body), nil
		})

	case *ast.If:
		then, err := ANormalizeExpr(n.Then, Identity)
		if err != nil {
			return nil, err
		}
		els, err := ANormalizeExpr(n.Else, Identity)
		if err != nil {
			return nil, err
		}
		return k(&ast.If{Cond: n.Cond, Then: then, Else: els})

	case *ast.LetFun:
		fb, err := ANormalizeExpr(n.FunBody, Identity)
		if err != nil {
			return nil, err
		}
		body, err := ANormalizeExpr(n.Body, k)
		if err != nil {
			return nil, err
		}
		return &ast.LetFun{Name: n.Name, Params: n.Params, FunBody: fb, Body: body}, nil

	case *ast.Def:
		v, err := ANormalizeExpr(n.Value, Identity)
		if err != nil {
			return nil, err
		}
		return k(&ast.Def{Name: n.Name, Value: v})

	case *ast.Defun:
		body, err := ANormalizeExpr(n.Body, Identity)
		if err != nil {
			return nil, err
		}
		return k(&ast.Defun{Name: n.Name, Params: n.Params, Body: body})
	}
	return nil, unexpected(PassANormal, e)
}
