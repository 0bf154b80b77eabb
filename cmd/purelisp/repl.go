package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/thomasrohde/purelisp/pkg/compiler"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/formatter"
	"github.com/thomasrohde/purelisp/pkg/help"
	"github.com/thomasrohde/purelisp/pkg/parser"
	"github.com/thomasrohde/purelisp/pkg/runtime"
)

const (
	banner      = "PureLisp v0.3. Type :help for commands, :quit to exit."
	historyFile = ".purelisp_history"
	promptMain  = "purelisp> "
	promptCont  = "      ... "
)

const replHelp = `:quit           leave the REPL
:help [TOPIC]   show help
:globals        list defined names
:stages FORM    show FORM after every compilation stage
:ir FORM        show FORM after closure conversion
`

func (a *app) cmdRepl(load string) int {
	rt := runtime.New(runtime.WithOutput(a.stdout))
	sess := rt.NewSession()

	if load != "" {
		source, filename, exitCode := a.readSource(load, true)
		if exitCode != 0 {
			return exitCode
		}
		if _, err := sess.Eval(context.Background(), source, filename); err != nil {
			fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), true))
			return runtime.ExitCode(err)
		}
		fmt.Fprintf(a.stdout, "Loaded %s.\n", load)
	}

	fmt.Fprintln(a.stdout, banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Fprintln(a.stdout)
			break
		}
		if strings.TrimSpace(code) == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		if a.evalInput(sess, code) {
			return 0
		}
	}
	return 0
}

// evalInput handles one complete REPL entry and reports whether the user
// asked to quit.
func (a *app) evalInput(sess *runtime.Session, code string) bool {
	code = strings.TrimSpace(code)
	if strings.HasPrefix(code, ":") {
		return a.replCommand(sess, code)
	}

	// Ctrl-C during evaluation stops the program, not the REPL.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	values, err := sess.Eval(ctx, code, "<repl>")
	for _, v := range values {
		fmt.Fprintln(a.stdout, v.String())
	}
	if err != nil {
		fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), true))
	}
	return false
}

func (a *app) replCommand(sess *runtime.Session, code string) bool {
	cmd, arg, _ := strings.Cut(code, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case ":quit", ":q":
		return true
	case ":help":
		if arg == "" {
			fmt.Fprint(a.stdout, replHelp)
			return false
		}
		_, content, err := help.MatchTopic(arg)
		if err != nil {
			fmt.Fprintln(a.stderr, err)
			return false
		}
		fmt.Fprint(a.stdout, content)
	case ":globals":
		fmt.Fprintln(a.stdout, strings.Join(sess.Globals(), " "))
	case ":stages", ":ir":
		if arg == "" {
			fmt.Fprintf(a.stderr, "usage: %s FORM\n", cmd)
			return false
		}
		stages, err := sess.Lower(arg, "<repl>")
		if err != nil {
			fmt.Fprintln(a.stderr, diagnostics.FormatDiagnostics(runtime.Diagnostics(err), true))
			return false
		}
		if cmd == ":ir" {
			fmt.Fprintln(a.stdout, formatter.FormatProgram(stages[len(stages)-1]))
			return false
		}
		for i, prog := range stages {
			fmt.Fprintf(a.stdout, ";; %s\n%s\n\n", compiler.Stages[i], formatter.FormatProgram(prog))
		}
	default:
		fmt.Fprintln(a.stdout, "unknown command. Type :help for a list.")
	}
	return false
}

// readByParseProbe reads lines until they form input the parser does not
// consider cut short. It returns false at end of input.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			// Ctrl-C drops the pending entry.
			b.Reset()
			continue
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, diags := parser.Parse(src, "<repl>"); parser.IsIncomplete(diags) {
			continue
		}
		return src, true
	}
}
