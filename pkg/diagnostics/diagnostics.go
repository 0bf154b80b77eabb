// Package diagnostics defines PureLisp diagnostic types for read, validation, compilation and runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/thomasrohde/purelisp/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex        = "E_LEX"
	EParse      = "E_PARSE"
	EIncomplete = "E_INCOMPLETE"
	EUnbound    = "E_UNBOUND"
	EDupBinding = "E_DUP_BINDING"
	EType       = "E_TYPE"
	EArity      = "E_ARITY"
	ECall       = "E_CALL"
	EDivZero    = "E_DIV_ZERO"
	EBudget     = "E_BUDGET"
	EInvariant  = "E_INVARIANT"
	EIO         = "E_IO"
)

// Diagnostic represents a read, validation, compilation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// InvariantError reports that a compiler pass received a tree an earlier
// pass should have ruled out. It always aborts the compilation unit.
type InvariantError struct {
	Pass    string
	Message string
	Node    string
}

// Invariantf builds an InvariantError for pass with a formatted message.
func Invariantf(pass, node, format string, args ...any) *InvariantError {
	return &InvariantError{Pass: pass, Message: fmt.Sprintf(format, args...), Node: node}
}

func (e *InvariantError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("%s: %s", e.Pass, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Pass, e.Message, e.Node)
}

// Diagnostic converts the error into an E_INVARIANT diagnostic.
func (e *InvariantError) Diagnostic() Diagnostic {
	return MakeDiag(EInvariant, e.Error(), nil, "this is a compiler bug, not an error in the program")
}
