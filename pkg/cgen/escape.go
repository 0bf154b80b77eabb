package cgen

import "github.com/thomasrohde/purelisp/pkg/ast"

// escapes reports whether name is used in e other than as the callee of an
// application. Any such use may copy the value somewhere that outlives e.
func escapes(name string, e ast.Expr) bool {
	switch n := e.(type) {
	case *ast.Id:
		return n.Name == name
	case *ast.Form:
		if len(n.Items) == 0 {
			return false
		}
		if _, ok := n.Items[0].(*ast.Id); !ok && escapes(name, n.Items[0]) {
			return true
		}
		for _, arg := range n.Items[1:] {
			if escapes(name, arg) {
				return true
			}
		}
		return false
	case *ast.If:
		return escapes(name, n.Cond) || escapes(name, n.Then) || escapes(name, n.Else)
	case *ast.Let:
		for _, b := range n.Bindings {
			if escapes(name, b.Value) {
				return true
			}
			if b.Name == name {
				return false
			}
		}
		return escapes(name, n.Body)
	case *ast.LetClos:
		for _, fv := range n.FreeVars {
			if fv == name {
				return true
			}
		}
		return n.Name != name && escapes(name, n.Body)
	}
	return false
}
