package compiler

import (
	"fmt"

	"github.com/thomasrohde/purelisp/pkg/ast"
	"github.com/thomasrohde/purelisp/pkg/formatter"
)

// Stage identifies the output of one lowering step.
type Stage int

const (
	StageSurface Stage = iota
	StageKNormal
	StageANormal
	StageCopyProp
	StageClosure
)

var stageNames = [...]string{"surface", "knormal", "anormal", "copyprop", "closure"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageSurface, StageKNormal, StageANormal, StageCopyProp, StageClosure}

// Options configures Lower.
type Options struct {
	// Names supplies fresh names. A new generator is used when nil.
	Names *NameGenerator
	// Trace, when set, receives the program after every stage.
	Trace func(stage Stage, prog ast.Program)
	// Check, when set, is run on the program after every stage; a non-nil
	// error aborts lowering.
	Check func(stage Stage, prog ast.Program) error
}

// Lower runs K-normalization, A-normalization, copy propagation and closure
// conversion over prog. It stops at the first error.
func Lower(prog ast.Program, opts Options) (ast.Program, error) {
	names := opts.Names
	if names == nil {
		names = NewNameGenerator()
	}

	steps := []struct {
		stage Stage
		run   func(ast.Program) (ast.Program, error)
	}{
		{StageKNormal, func(p ast.Program) (ast.Program, error) { return KNormalize(p, names) }},
		{StageANormal, ANormalize},
		{StageCopyProp, CopyPropagate},
		{StageClosure, func(p ast.Program) (ast.Program, error) { return ConvertClosures(p, names) }},
	}

	if err := observe(opts, StageSurface, prog); err != nil {
		return nil, err
	}
	for _, step := range steps {
		next, err := step.run(prog)
		if err != nil {
			return nil, err
		}
		prog = next
		if err := observe(opts, step.stage, prog); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func observe(opts Options, stage Stage, prog ast.Program) error {
	if opts.Trace != nil {
		opts.Trace(stage, prog)
	}
	if opts.Check != nil {
		return opts.Check(stage, prog)
	}
	return nil
}

// ToIR lowers prog and renders the closure-converted program as text.
func ToIR(prog ast.Program, opts Options) (string, error) {
	lowered, err := Lower(prog, opts)
	if err != nil {
		return "", err
	}
	return formatter.FormatProgram(lowered), nil
}
