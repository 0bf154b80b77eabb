// Command purelisp is the PureLisp interpreter, REPL and compiler.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/compiler"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/formatter"
	"github.com/thomasrohde/purelisp/pkg/help"
	"github.com/thomasrohde/purelisp/pkg/runtime"
	"github.com/thomasrohde/purelisp/pkg/stdlib"
)

const usage = `usage: purelisp [-l FILE | FILE | <command> [options]]
commands: compile, check, fmt, help`

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(a.run(os.Args[1:]))
}

func (a *app) run(args []string) int {
	if len(args) == 0 {
		return a.cmdRepl("")
	}

	switch args[0] {
	case "-l", "--load":
		if len(args) < 2 {
			fmt.Fprintln(a.stderr, "usage: purelisp -l FILE")
			return 1
		}
		return a.cmdRepl(args[1])
	case "compile":
		return a.cmdCompile(args[1:])
	case "check":
		return a.cmdCheck(args[1:])
	case "fmt":
		return a.cmdFmt(args[1:])
	case "help", "--help", "-h":
		return a.cmdHelp(args[1:])
	}
	if args[0] != "-" && strings.HasPrefix(args[0], "-") {
		fmt.Fprintf(a.stderr, "Unknown option: %s\n%s\n", args[0], usage)
		return 1
	}
	return a.cmdRun(args)
}

func (a *app) cmdRun(args []string) int {
	var file string
	pretty := false
	maxDepth := 0

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		case "--max-depth":
			if i+1 < len(args) {
				i++
				if _, err := fmt.Sscanf(args[i], "%d", &maxDepth); err != nil || maxDepth <= 0 {
					fmt.Fprintf(a.stderr, "invalid --max-depth: %s\n", args[i])
					return 1
				}
			}
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.stderr, "usage: purelisp FILE [--pretty] [--max-depth N]")
		return 1
	}

	source, filename, exitCode := a.readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt := runtime.New(runtime.WithOutput(a.stdout), runtime.WithMaxDepth(maxDepth))
	result, err := rt.Run(ctx, source, filename)
	if result != nil {
		for _, v := range result.Values {
			fmt.Fprintln(a.stdout, v.String())
		}
	}
	if err != nil {
		fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), pretty))
		return runtime.ExitCode(err)
	}
	return 0
}

func (a *app) cmdCompile(args []string) int {
	var file, output string
	target := runtime.TargetC
	verbose := false
	stageChecks := false
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-ir", "--ir":
			target = runtime.TargetIR
		case "-llvm", "--llvm":
			target = runtime.TargetLLVM
		case "--target":
			if i+1 < len(args) {
				i++
				t, err := runtime.ParseTarget(args[i])
				if err != nil {
					fmt.Fprintln(a.stderr, err)
					return 1
				}
				target = t
			}
		case "-o":
			if i+1 < len(args) {
				i++
				output = args[i]
			}
		case "-v", "--verbose":
			verbose = true
		case "--check-stages":
			stageChecks = true
		case "--pretty":
			pretty = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.stderr, "usage: purelisp compile [-ir|-llvm] [-v] [--check-stages] FILE [-o OUTPUT]")
		return 1
	}

	source, filename, exitCode := a.readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	opts := []runtime.Option{runtime.WithStageChecks(stageChecks)}
	if verbose {
		opts = append(opts, runtime.WithTrace(func(stage compiler.Stage, prog ast.Program) {
			fmt.Fprintf(a.stderr, ";; %s\n%s\n\n", stage, formatter.FormatProgram(prog))
		}))
	}
	rt := runtime.New(opts...)

	out, err := rt.Compile(source, filename, target)
	if err != nil {
		fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), pretty))
		return runtime.ExitCode(err)
	}

	// Code read from stdin goes to stdout unless -o says otherwise.
	if output == "-" || (output == "" && file == "-") {
		fmt.Fprintln(a.stdout, out.Code)
		return 0
	}
	if output == "" {
		output = out.DefaultPath(file)
	}
	written, err := out.WriteFiles(output)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot write file: %s", err), nil, "")
		fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return 1
	}
	if verbose {
		for _, path := range written {
			fmt.Fprintf(a.stderr, "wrote %s\n", path)
		}
	}
	return 0
}

func (a *app) cmdCheck(args []string) int {
	var file string
	pretty := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--pretty":
			pretty = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(a.stderr, "usage: purelisp check FILE [--pretty]")
		return 1
	}

	source, filename, exitCode := a.readSource(file, pretty)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New(runtime.WithOutput(io.Discard))
	if diags := rt.Check(source, filename); len(diags) > 0 {
		fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics(diags, pretty))
		return 2
	}

	if pretty {
		fmt.Fprintln(a.stdout, "No errors found.")
	} else {
		fmt.Fprintln(a.stdout, "[]")
	}
	return 0
}

func (a *app) cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write":
			write = true
		default:
			if args[i] == "-" || !strings.HasPrefix(args[i], "-") {
				file = args[i]
			}
		}
	}

	if file == "" || (write && file == "-") {
		fmt.Fprintln(a.stderr, "usage: purelisp fmt FILE [--write]")
		return 1
	}

	source, filename, exitCode := a.readSource(file, false)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New(runtime.WithOutput(io.Discard))
	formatted, err := rt.Format(source, filename)
	if err != nil {
		fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), false))
		return 2
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(a.stderr, "warning: comments are not preserved by the formatter")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted+"\n"), 0644); err != nil {
			fmt.Fprintf(a.stderr, "error writing file: %s\n", err)
			return 1
		}
		return 0
	}
	fmt.Fprintln(a.stdout, formatted)
	return 0
}

func (a *app) cmdHelp(args []string) int {
	showIndex := false
	topic := ""
	for _, arg := range args {
		if arg == "--index" {
			showIndex = true
		} else if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}

	if showIndex {
		if topic != "" && topic != "prelude" {
			fmt.Fprintln(a.stderr, "error: --index is only supported for the prelude topic")
			return 1
		}
		fmt.Fprint(a.stdout, help.PreludeIndex(stdlib.Default(io.Discard).Names()))
		return 0
	}

	if topic == "" {
		fmt.Fprint(a.stdout, help.QUICKREF)
		return 0
	}

	_, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(a.stderr, "%s\nAvailable topics: %s\n", err, strings.Join(help.TopicList, ", "))
		return 1
	}
	fmt.Fprint(a.stdout, content)
	return 0
}

func (a *app) readSource(file string, pretty bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			fmt.Fprintf(a.stderr, "error reading stdin: %s\n", err)
			return "", "", 1
		}
		return string(data), "<stdin>", 0
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, "")
		fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, pretty))
		return "", "", 1
	}
	return string(source), file, 0
}
