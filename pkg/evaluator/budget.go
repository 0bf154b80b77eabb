package evaluator

import (
	"fmt"

	"github.com/thomasrohde/purelisp/pkg/diagnostics"
)

// DefaultMaxDepth bounds nested calls when ExecOptions.MaxDepth is zero.
const DefaultMaxDepth = 10000

// Budget holds the resource limits for an evaluation.
type Budget struct {
	MaxDepth int
}

// BudgetTracker tracks resource consumption during evaluation.
type BudgetTracker struct {
	Depth int
	Calls int64
}

func (ev *Evaluator) enter() error {
	if ev.tracker.Depth >= ev.budget.MaxDepth {
		return &RuntimeError{
			Code:    diagnostics.EBudget,
			Message: fmt.Sprintf("call depth budget exceeded (max %d)", ev.budget.MaxDepth),
		}
	}
	ev.tracker.Depth++
	ev.tracker.Calls++
	return nil
}

func (ev *Evaluator) leave() {
	ev.tracker.Depth--
}
