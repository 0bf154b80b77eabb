// Package lexer implements the PureLisp tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	TokLParen TokenType = iota // (
	TokRParen                  // )
	TokIntLit
	TokFloatLit
	TokStringLit
	TokSymbol
	TokEOF
)

func (t TokenType) String() string {
	switch t {
	case TokLParen:
		return "'('"
	case TokRParen:
		return "')'"
	case TokIntLit:
		return "integer"
	case TokFloatLit:
		return "float"
	case TokStringLit:
		return "string"
	case TokSymbol:
		return "symbol"
	case TokEOF:
		return "end of input"
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	s.pos++
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func (s *scanner) skipWhitespaceAndComments() {
	for !s.atEnd() {
		ch := s.peek()
		if isSpace(ch) {
			s.advance()
		} else if ch == ';' {
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		} else {
			break
		}
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isDelimiter reports whether ch ends a number or symbol.
func isDelimiter(ch byte) bool {
	return isSpace(ch) || ch == '(' || ch == ')' || ch == '"' || ch == ';'
}

func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	s.advance() // opening "

	var buf strings.Builder
	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance()
			return Token{
				Type:  TokStringLit,
				Value: buf.String(),
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\\' {
			s.advance()
			if s.atEnd() {
				break
			}
			esc := s.advance()
			switch esc {
			case '"':
				buf.WriteByte('"')
			case '\\':
				buf.WriteByte('\\')
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case '0':
				buf.WriteByte(0)
			default:
				return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid escape character: \\%c", esc))
			}
			continue
		}
		r, size := utf8.DecodeRuneInString(s.source[s.pos:])
		if r == utf8.RuneError && size == 1 {
			return Token{}, s.lexError(startLine, startCol, "invalid UTF-8 character in string")
		}
		buf.WriteRune(r)
		for i := 0; i < size; i++ {
			s.advance()
		}
	}
	// Strings may span lines, so running out of input is recoverable by
	// reading more.
	return Token{}, s.incompleteError(startLine, startCol, "unterminated string literal")
}

// scanAtom reads a maximal run of non-delimiter bytes and classifies it as
// a number or a symbol.
func (s *scanner) scanAtom() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	for !s.atEnd() && !isDelimiter(s.peek()) {
		s.advance()
	}
	text := s.source[startPos:s.pos]
	sp := s.span(startLine, startCol)

	if looksNumeric(text) {
		if _, err := strconv.ParseInt(text, 10, 64); err == nil {
			return Token{Type: TokIntLit, Value: text, Span: sp}, nil
		}
		isFloat := strings.ContainsAny(text, ".eE") && !strings.ContainsAny(text, "xXpP_")
		if _, err := strconv.ParseFloat(text, 64); err == nil && isFloat {
			return Token{Type: TokFloatLit, Value: text, Span: sp}, nil
		}
		return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("invalid number literal: %s", text))
	}

	if text[0] == '@' {
		return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("identifiers may not start with '@': %s", text))
	}
	if !utf8.ValidString(text) {
		return Token{}, s.lexError(startLine, startCol, "invalid UTF-8 character in symbol")
	}
	return Token{Type: TokSymbol, Value: text, Span: sp}, nil
}

// looksNumeric reports whether text starts like a number: a digit, or a
// sign or dot followed by a digit.
func looksNumeric(text string) bool {
	i := 0
	if text[0] == '-' || text[0] == '+' {
		i++
	}
	if i < len(text) && text[i] == '.' {
		i++
	}
	return i < len(text) && isDigit(text[i])
}

func (s *scanner) lexError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

func (s *scanner) incompleteError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.EIncomplete,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: s.line, EndCol: s.col},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

func (s *scanner) nextToken() (Token, error) {
	s.skipWhitespaceAndComments()

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	switch ch {
	case '(':
		s.advance()
		return Token{Type: TokLParen, Value: "(", Span: s.span(startLine, startCol)}, nil
	case ')':
		s.advance()
		return Token{Type: TokRParen, Value: ")", Span: s.span(startLine, startCol)}, nil
	case '"':
		return s.scanString()
	}
	return s.scanAtom()
}

// Tokenize breaks source code into a slice of tokens.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
