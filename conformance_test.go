package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/purelisp/internal/testutil"
	"github.com/thomasrohde/purelisp/pkg/diagnostics"
	"github.com/thomasrohde/purelisp/pkg/runtime"
)

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("failed to list scenarios: %v", err)
	}
	if len(dirs) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, scenarioDir := range dirs {
		scenarioDir := scenarioDir
		t.Run(filepath.Base(scenarioDir), func(t *testing.T) {
			scenario, err := testutil.LoadScenario(scenarioDir)
			if err != nil {
				t.Fatalf("failed to load scenario: %v", err)
			}

			source, filename, err := testutil.ReadProgramFile(scenarioDir, scenario.Cmd)
			if err != nil {
				t.Fatalf("failed to read program file: %v", err)
			}

			var stdout, stderr bytes.Buffer
			var exitCode int
			switch scenario.Cmd[0] {
			case "run":
				exitCode = runScenario(source, filename, &stdout, &stderr)
			case "check":
				exitCode = checkScenario(source, filename, &stdout, &stderr)
			case "compile-ir":
				exitCode = compileScenario(source, filename, &stdout, &stderr)
			default:
				t.Skipf("unsupported command: %s", scenario.Cmd[0])
			}

			checkExpectations(t, scenario, exitCode, stdout.String(), stderr.String())
		})
	}
}

func runScenario(source, filename string, stdout, stderr *bytes.Buffer) int {
	rt := runtime.New(runtime.WithOutput(stdout))
	result, err := rt.Run(context.Background(), source, filename)
	if result != nil {
		for _, v := range result.Values {
			stdout.WriteString(v.String() + "\n")
		}
	}
	return report(err, stderr)
}

func checkScenario(source, filename string, stdout, stderr *bytes.Buffer) int {
	diags := runtime.New().Check(source, filename)
	if len(diags) > 0 {
		stderr.WriteString(diagnostics.FormatDiagnostics(diags, false))
		return 2
	}
	stdout.WriteString("[]\n")
	return 0
}

func compileScenario(source, filename string, stdout, stderr *bytes.Buffer) int {
	rt := runtime.New(runtime.WithStageChecks(true))
	out, err := rt.Compile(source, filename, runtime.TargetIR)
	if err != nil {
		return report(err, stderr)
	}
	stdout.WriteString(out.Code + "\n")
	return 0
}

func report(err error, stderr *bytes.Buffer) int {
	if err != nil {
		stderr.WriteString(diagnostics.FormatDiagnostics(runtime.Diagnostics(err), false))
	}
	return runtime.ExitCode(err)
}

func checkExpectations(t *testing.T, scenario *testutil.Scenario, exitCode int, stdout, stderr string) {
	t.Helper()
	expect := scenario.Expect

	if exitCode != expect.ExitCode {
		t.Errorf("exit code: got %d, want %d (stderr: %s)", exitCode, expect.ExitCode, stderr)
	}
	if expect.StdoutText != nil && stdout != *expect.StdoutText {
		t.Errorf("stdout:\n  got:  %q\n  want: %q", stdout, *expect.StdoutText)
	}
	if expect.StdoutContains != "" && !strings.Contains(stdout, expect.StdoutContains) {
		t.Errorf("stdout %q does not contain %q", stdout, expect.StdoutContains)
	}
	if expect.StderrContains != "" && !strings.Contains(stderr, expect.StderrContains) {
		t.Errorf("stderr %q does not contain %q", stderr, expect.StderrContains)
	}
}
