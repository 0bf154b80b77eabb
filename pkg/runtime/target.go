package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Target selects what Compile generates.
type Target int

const (
	// TargetC is C source that includes runtime.c.
	TargetC Target = iota
	// TargetIR is the pretty-printed closure-converted program.
	TargetIR
	// TargetLLVM is textual LLVM IR linked against runtime_llvm.c.
	TargetLLVM
)

var targetNames = [...]string{"c", "ir", "llvm"}
var targetExts = [...]string{".c", ".plir", ".ll"}

func (t Target) String() string {
	if t < 0 || int(t) >= len(targetNames) {
		return fmt.Sprintf("Target(%d)", int(t))
	}
	return targetNames[t]
}

// Ext returns the file extension used for t's output.
func (t Target) Ext() string {
	if t < 0 || int(t) >= len(targetExts) {
		return ".out"
	}
	return targetExts[t]
}

// ParseTarget maps a target name such as "c" or "llvm" to a Target.
func ParseTarget(name string) (Target, error) {
	for i, n := range targetNames {
		if strings.EqualFold(n, name) {
			return Target(i), nil
		}
	}
	return 0, fmt.Errorf("unknown target %q (want c, ir or llvm)", name)
}

// Output is the result of Compile.
type Output struct {
	Target Target
	Code   string
	// RuntimeFile and RuntimeSource name and hold the support file the code
	// must be built with. Both are empty for TargetIR.
	RuntimeFile   string
	RuntimeSource string
}

// DefaultPath derives the output path for source file input.
func (o *Output) DefaultPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + o.Target.Ext()
}

// WriteFiles writes the generated code to path and, when the target needs
// one, the runtime support file next to it. It returns the paths written.
func (o *Output) WriteFiles(path string) ([]string, error) {
	if err := os.WriteFile(path, []byte(o.Code), 0o644); err != nil {
		return nil, err
	}
	written := []string{path}
	if o.RuntimeFile == "" {
		return written, nil
	}
	rtPath := filepath.Join(filepath.Dir(path), o.RuntimeFile)
	if err := os.WriteFile(rtPath, []byte(o.RuntimeSource), 0o644); err != nil {
		return written, err
	}
	return append(written, rtPath), nil
}
