package compiler

import (
	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/formatter"
)

// Pass names used in invariant errors.
const (
	PassKNormal  = "knormal"
	PassANormal  = "anormal"
	PassCopyProp = "copyprop"
	PassFreeVars = "freevars"
	PassClosure  = "closure"
)

func unexpected(pass string, e ast.Expr) error {
	if e == nil {
		return diagnostics.Invariantf(pass, "", "missing expression")
	}
	return diagnostics.Invariantf(pass, formatter.Format(e), "unexpected %s", e.Kind())
}

func malformed(pass string, e ast.Expr, format string, args ...any) error {
	return diagnostics.Invariantf(pass, formatter.Format(e), format, args...)
}
