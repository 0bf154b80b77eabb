// Package help holds the reference text printed by `purelisp help`.
package help

import (
	"fmt"
	"sort"
	"strings"
)

// QUICKREF is printed by `purelisp help` with no topic.
const QUICKREF = `PureLisp v0.3 quick reference

  purelisp                        start the REPL
  purelisp -l FILE                load FILE, then start the REPL
  purelisp FILE                   interpret FILE, print every top-level value
  purelisp compile [-ir|-llvm] [-v] [--check-stages] FILE [-o OUT]
  purelisp check FILE [--pretty]  report diagnostics without running
  purelisp fmt FILE [--write]     pretty-print FILE
  purelisp help [TOPIC]

Topics: syntax, prelude, compile, stages, diagnostics, examples
`

// TopicList is the order topics are listed in.
var TopicList = []string{"syntax", "prelude", "compile", "stages", "diagnostics", "examples"}

// Topics maps a topic name to its text.
var Topics = map[string]string{
	"syntax": `Syntax

  literals     nil true false 42 -7 2.5 "text"     ; comments run to end of line
  (f a b)      application, evaluated left to right
  (let ((x 1) (y x)) body)                each binding sees the ones before it
  (if c then else)                        c must be a bool
  (and a b ...) (or a b ...) (not a)      short-circuit, bools only
  (fn (x y) body)                         anonymous function
  (letfun (f (x) body) expr)              local, possibly recursive function
  (def name expr) (defun f (x) body)      top level only
`,
	"prelude": `Prelude (interpreter only)

  + - * /            two or more ints, or two or more floats
  = < <= > >=        = compares any values, the others numbers
  list car cdr cons length nth append
  sq sqrt abs
  print              writes its argument and a newline, returns nil

A closure applied to fewer arguments than it takes returns a closure that
waits for the rest.
`,
	"compile": `Compiling

Compiled programs may use + - * / = < <= > >= and their own definitions.
The value of every top-level expression is printed.

  -ir            write the closure-converted program (.plir)
  -llvm          write LLVM IR (.ll) and runtime_llvm.c
  (default)      write C (.c) and runtime.c
  -v             print every stage to stderr
  --check-stages verify the shape of every stage
  -o OUT         output path

  cc prog.c -o prog          clang prog.ll runtime_llvm.c -o prog
`,
	"stages": `Stages

  surface    the program as read
  knormal    operands are atoms, and/or/not become if, fn becomes letfun,
             defun becomes def, lets bind one name, shadowing binders renamed
  anormal    no let or letfun in binding position
  copyprop   names bound to atoms are replaced by the atom
  closure    every letfun hoisted to a defun or a defclos template plus letclos
`,
	"diagnostics": `Diagnostics

  E_LEX E_PARSE E_INCOMPLETE      reading                  exit 2
  E_UNBOUND E_DUP_BINDING E_CALL  validation               exit 2
  E_TYPE E_ARITY E_DIV_ZERO       evaluation               exit 4
  E_BUDGET                        call depth exceeded      exit 4
  E_INVARIANT                     compiler bug             exit 4
  E_IO                            files                    exit 1
`,
	"examples": `Examples

  (defun square (x) (* x x))
  (square 5)                                  ; 25

  (defun adder (n) (fn (m) (+ n m)))
  ((adder 5) 10)                              ; 15

  (letfun (fact (n) (if (= n 0) 1 (* n (fact (- n 1)))))
    (fact 10))                                ; 3628800
`,
}

// MatchTopic finds a topic by exact name or unique prefix.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}
	var matches []string
	for _, name := range TopicList {
		if q != "" && strings.HasPrefix(name, q) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], Topics[matches[0]], nil
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	}
	return "", "", fmt.Errorf("ambiguous help topic %q: %s", query, strings.Join(matches, ", "))
}

// PreludeIndex lists names, one per line, followed by a count.
func PreludeIndex(names []string) string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	var b strings.Builder
	for _, name := range sorted {
		b.WriteString("  " + name + "\n")
	}
	fmt.Fprintf(&b, "Total: %d functions\n", len(sorted))
	return b.String()
}
