// Package parser implements the PureLisp reader.
//
// Parsing happens in two steps: tokens are first read into untyped
// s-expressions (datums), then special forms are recognized and the datums
// are converted into ast nodes.
package parser

import (
	"fmt"
	"strconv"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/lexer"
)

// datum is a raw s-expression: either a single token or a list.
type datum struct {
	tok    lexer.Token
	list   []datum
	isList bool
	span   ast.Span
}

func (d datum) symbol() (string, bool) {
	if d.isList || d.tok.Type != lexer.TokSymbol {
		return "", false
	}
	return d.tok.Value, true
}

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
}

// Parse tokenizes source and parses it into a program.
func Parse(source, filename string) (ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}

	p := &parser{tokens: tokens, pos: 0}
	datums := p.readAll()
	if len(p.diags) > 0 {
		return nil, p.diags
	}

	prog := make(ast.Program, 0, len(datums))
	for _, d := range datums {
		if e := p.convertTop(d); e != nil {
			prog = append(prog, e)
		}
	}
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

// IsIncomplete reports whether diags describe input that ended in the middle
// of an expression, so that reading more input could complete it.
func IsIncomplete(diags []diagnostics.Diagnostic) bool {
	for _, d := range diags {
		if d.Code == diagnostics.EIncomplete {
			return true
		}
	}
	return false
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

// --- Reading ---

func (p *parser) readAll() []datum {
	var out []datum
	for p.current().Type != lexer.TokEOF {
		d, ok := p.readDatum()
		if !ok {
			return nil
		}
		out = append(out, d)
	}
	return out
}

func (p *parser) readDatum() (datum, bool) {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokLParen:
		var items []datum
		for {
			cur := p.current()
			if cur.Type == lexer.TokEOF {
				sp := spanFromTo(tok.Span, cur.Span)
				p.diags = append(p.diags, diagnostics.MakeDiag(
					diagnostics.EIncomplete,
					"unexpected end of input: unclosed '('",
					&sp,
					"add the missing ')'",
				))
				return datum{}, false
			}
			if cur.Type == lexer.TokRParen {
				p.advance()
				return datum{list: items, isList: true, span: spanFromTo(tok.Span, cur.Span)}, true
			}
			item, ok := p.readDatum()
			if !ok {
				return datum{}, false
			}
			items = append(items, item)
		}
	case lexer.TokRParen:
		p.addError("unexpected ')'", &tok.Span)
		return datum{}, false
	default:
		return datum{tok: tok, span: tok.Span}, true
	}
}

// --- Conversion ---

func (p *parser) convertTop(d datum) ast.Expr {
	if d.isList && len(d.list) > 0 {
		if head, ok := d.list[0].symbol(); ok {
			switch head {
			case "def":
				return p.convertDef(d)
			case "defun":
				return p.convertDefun(d)
			}
		}
	}
	return p.convert(d)
}

func (p *parser) convert(d datum) ast.Expr {
	if !d.isList {
		return p.convertAtom(d)
	}
	if len(d.list) == 0 {
		return &ast.Form{}
	}
	if head, ok := d.list[0].symbol(); ok {
		switch head {
		case "let":
			return p.convertLet(d)
		case "if":
			return p.convertIf(d)
		case "and":
			return &ast.And{Exprs: p.convertAll(d.list[1:])}
		case "or":
			return &ast.Or{Exprs: p.convertAll(d.list[1:])}
		case "not":
			if len(d.list) != 2 {
				p.addError("not expects exactly one operand", &d.span)
				return nil
			}
			return &ast.Not{Expr: p.convert(d.list[1])}
		case "fn":
			return p.convertFn(d)
		case "letfun":
			return p.convertLetFun(d)
		case "def", "defun":
			p.addError(fmt.Sprintf("%s is only allowed at top level", head), &d.span)
			return nil
		}
	}
	return &ast.Form{Items: p.convertAll(d.list)}
}

func (p *parser) convertAll(ds []datum) []ast.Expr {
	out := make([]ast.Expr, len(ds))
	for i, d := range ds {
		out[i] = p.convert(d)
	}
	return out
}

func (p *parser) convertAtom(d datum) ast.Expr {
	tok := d.tok
	switch tok.Type {
	case lexer.TokIntLit:
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.addError(fmt.Sprintf("invalid integer literal: %s", tok.Value), &tok.Span)
			return nil
		}
		return &ast.Int{Value: n}
	case lexer.TokFloatLit:
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			p.addError(fmt.Sprintf("invalid float literal: %s", tok.Value), &tok.Span)
			return nil
		}
		return &ast.Float{Value: f}
	case lexer.TokStringLit:
		return &ast.Str{Value: tok.Value}
	case lexer.TokSymbol:
		switch tok.Value {
		case "nil":
			return &ast.Nil{}
		case "true":
			return &ast.Bool{Value: true}
		case "false":
			return &ast.Bool{Value: false}
		}
		return &ast.Id{Name: tok.Value}
	}
	p.addError(fmt.Sprintf("unexpected %s", tok.Type), &tok.Span)
	return nil
}

// (let ((x e) ...) body)
func (p *parser) convertLet(d datum) ast.Expr {
	if len(d.list) != 3 || !d.list[1].isList {
		p.addError("let expects a binding list and a body: (let ((name value) ...) body)", &d.span)
		return nil
	}
	var bindings []ast.Binding
	for _, b := range d.list[1].list {
		if !b.isList || len(b.list) != 2 {
			p.addError("let binding must be a (name value) pair", &b.span)
			continue
		}
		name, ok := b.list[0].symbol()
		if !ok || isReserved(name) {
			p.addError("let binding name must be a symbol", &b.list[0].span)
			continue
		}
		bindings = append(bindings, ast.Binding{Name: name, Value: p.convert(b.list[1])})
	}
	return &ast.Let{Bindings: bindings, Body: p.convert(d.list[2])}
}

// (if cond then else)
func (p *parser) convertIf(d datum) ast.Expr {
	if len(d.list) != 4 {
		p.addError("if expects exactly three operands: (if cond then else)", &d.span)
		return nil
	}
	return &ast.If{
		Cond: p.convert(d.list[1]),
		Then: p.convert(d.list[2]),
		Else: p.convert(d.list[3]),
	}
}

// (fn (params) body)
func (p *parser) convertFn(d datum) ast.Expr {
	if len(d.list) != 3 {
		p.addError("fn expects a parameter list and a body: (fn (params) body)", &d.span)
		return nil
	}
	params := p.convertParams(d.list[1])
	return &ast.Fn{Params: params, Body: p.convert(d.list[2])}
}

// (letfun (name (params) funbody) body)
func (p *parser) convertLetFun(d datum) ast.Expr {
	if len(d.list) != 3 || !d.list[1].isList || len(d.list[1].list) != 3 {
		p.addError("letfun expects a function and a body: (letfun (name (params) body) expr)", &d.span)
		return nil
	}
	fun := d.list[1].list
	name := p.convertName(fun[0])
	params := p.convertParams(fun[1])
	return &ast.LetFun{
		Name:    name,
		Params:  params,
		FunBody: p.convert(fun[2]),
		Body:    p.convert(d.list[2]),
	}
}

// (def name value)
func (p *parser) convertDef(d datum) ast.Expr {
	if len(d.list) != 3 {
		p.addError("def expects a name and a value: (def name value)", &d.span)
		return nil
	}
	return &ast.Def{Name: p.convertName(d.list[1]), Value: p.convert(d.list[2])}
}

// (defun name (params) body)
func (p *parser) convertDefun(d datum) ast.Expr {
	if len(d.list) != 4 {
		p.addError("defun expects a name, a parameter list and a body: (defun name (params) body)", &d.span)
		return nil
	}
	return &ast.Defun{
		Name:   p.convertName(d.list[1]),
		Params: p.convertParams(d.list[2]),
		Body:   p.convert(d.list[3]),
	}
}

func (p *parser) convertName(d datum) string {
	name, ok := d.symbol()
	if !ok || isReserved(name) {
		p.addError("expected a name", &d.span)
		return ""
	}
	return name
}

func (p *parser) convertParams(d datum) []string {
	if !d.isList {
		p.addError("expected a parameter list", &d.span)
		return nil
	}
	params := make([]string, 0, len(d.list))
	for _, item := range d.list {
		params = append(params, p.convertName(item))
	}
	return params
}

// isReserved reports whether name reads as a literal and so cannot be bound.
func isReserved(name string) bool {
	return name == "nil" || name == "true" || name == "false"
}
