// Package ast defines the PureLisp expression tree shared by every compiler stage.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Expr is the interface implemented by all expression nodes.
//
// The same closed set of node kinds is used from the reader to code
// generation; each pass narrows the kinds it accepts and reports the rest
// as invariant violations.
type Expr interface {
	Kind() string
	exprNode() // sealed marker
}

// Program is an ordered list of top-level expressions.
type Program []Expr

// --- Literals ---

type Nil struct{}

func (n *Nil) Kind() string { return "Nil" }
func (n *Nil) exprNode()    {}

type Bool struct {
	Value bool
}

func (n *Bool) Kind() string { return "Bool" }
func (n *Bool) exprNode()    {}

type Int struct {
	Value int64
}

func (n *Int) Kind() string { return "Int" }
func (n *Int) exprNode()    {}

type Float struct {
	Value float64
}

func (n *Float) Kind() string { return "Float" }
func (n *Float) exprNode()    {}

type Str struct {
	Value string
}

func (n *Str) Kind() string { return "Str" }
func (n *Str) exprNode()    {}

// --- Identifiers and application ---

type Id struct {
	Name string
}

func (n *Id) Kind() string { return "Id" }
func (n *Id) exprNode()    {}

// Form is an application: Items[0] is the callee, the rest are arguments.
type Form struct {
	Items []Expr
}

func (n *Form) Kind() string { return "Form" }
func (n *Form) exprNode()    {}

// --- Binding forms ---

// Binding is a single name/value pair of a Let.
type Binding struct {
	Name  string
	Value Expr
}

// Let binds its Bindings sequentially; each binding sees the ones before it.
type Let struct {
	Bindings []Binding
	Body     Expr
}

func (n *Let) Kind() string { return "Let" }
func (n *Let) exprNode()    {}

type If struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (n *If) Kind() string { return "If" }
func (n *If) exprNode()    {}

type And struct {
	Exprs []Expr
}

func (n *And) Kind() string { return "And" }
func (n *And) exprNode()    {}

type Or struct {
	Exprs []Expr
}

func (n *Or) Kind() string { return "Or" }
func (n *Or) exprNode()    {}

type Not struct {
	Expr Expr
}

func (n *Not) Kind() string { return "Not" }
func (n *Not) exprNode()    {}

// Fn is an anonymous function literal.
type Fn struct {
	Params []string
	Body   Expr
}

func (n *Fn) Kind() string { return "Fn" }
func (n *Fn) exprNode()    {}

// --- Definitions ---

// Def binds a global value. Only valid at top level.
type Def struct {
	Name  string
	Value Expr
}

func (n *Def) Kind() string { return "Def" }
func (n *Def) exprNode()    {}

// Defun defines a global function. Only valid at top level.
type Defun struct {
	Name   string
	Params []string
	Body   Expr
}

func (n *Defun) Kind() string { return "Defun" }
func (n *Defun) exprNode()    {}

// LetFun binds a possibly recursive local function in Body.
type LetFun struct {
	Name    string
	Params  []string
	FunBody Expr
	Body    Expr
}

func (n *LetFun) Kind() string { return "LetFun" }
func (n *LetFun) exprNode()    {}

// --- Closure-converted forms ---

// DefClos is a hoisted closure template. FreeVars is the captured-variable
// order that every LetClos instantiating it must follow.
type DefClos struct {
	Name     string
	FreeVars []string
	Params   []string
	Body     Expr
}

func (n *DefClos) Kind() string { return "DefClos" }
func (n *DefClos) exprNode()    {}

// LetClos instantiates the template ClosID over FreeVars, read from the
// enclosing scope, and binds the resulting closure to Name within Body.
type LetClos struct {
	Name     string
	ClosID   string
	FreeVars []string
	Body     Expr
}

func (n *LetClos) Kind() string { return "LetClos" }
func (n *LetClos) exprNode()    {}

// --- Helpers ---

// IsAtom reports whether e is a literal or a bare identifier.
func IsAtom(e Expr) bool {
	switch e.(type) {
	case *Nil, *Bool, *Int, *Float, *Str, *Id:
		return true
	}
	return false
}

// IsDefinition reports whether e may only appear at top level.
func IsDefinition(e Expr) bool {
	switch e.(type) {
	case *Def, *Defun, *DefClos:
		return true
	}
	return false
}

// NewLet builds a single-binding Let.
func NewLet(name string, value, body Expr) *Let {
	return &Let{Bindings: []Binding{{Name: name, Value: value}}, Body: body}
}

// Builtins are the primitive operators every stage treats as globally bound.
var Builtins = []string{"+", "-", "*", "/", "=", "<", "<=", ">", ">="}

// IsBuiltin reports whether name is one of Builtins.
func IsBuiltin(name string) bool {
	for _, b := range Builtins {
		if b == name {
			return true
		}
	}
	return false
}
