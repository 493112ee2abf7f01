package inventory

import (
	"errors"
	"fmt"
)

// Evaluation phases recorded on EvaluationError.
const (
	PhaseCompile  = "compile"
	PhaseEvaluate = "evaluate"
)

// EvaluationError reports a predicate that failed to compile or run. Key
// names the element under test and is empty for compile failures.
type EvaluationError struct {
	Engine string
	Phase  string
	Expr   string
	Key    string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("inventory: %s %s failed", e.Engine, e.phase())
	if e.Expr != "" {
		msg += fmt.Sprintf(" for %q", e.Expr)
	}
	if e.Key != "" {
		msg += " on " + e.Key
	}
	return msg + ": " + e.Err.Error()
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *EvaluationError) phase() string {
	if e.Phase == "" {
		return PhaseEvaluate
	}
	return e.Phase
}

// wrapEvaluatorError reports a failure that is not tied to an expression.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	return &EvaluationError{Engine: engine, Phase: PhaseCompile, Err: err}
}

func wrapCompileError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}
	return fillEvaluationError(&EvaluationError{Engine: engine, Phase: PhaseCompile, Expr: expr}, err)
}

func wrapEvaluationError(engine, expr, key string, err error) error {
	if err == nil {
		return nil
	}
	return fillEvaluationError(&EvaluationError{Engine: engine, Phase: PhaseEvaluate, Expr: expr, Key: key}, err)
}

// fillEvaluationError completes an EvaluationError already in err's chain
// from template, or wraps err in template. Fields already set win.
func fillEvaluationError(template *EvaluationError, err error) error {
	var existing *EvaluationError
	if !errors.As(err, &existing) {
		template.Err = err
		return template
	}
	if existing.Engine == "" {
		existing.Engine = template.Engine
	}
	if existing.Phase == "" {
		existing.Phase = template.Phase
	}
	if existing.Expr == "" {
		existing.Expr = template.Expr
	}
	if existing.Key == "" {
		existing.Key = template.Key
	}
	return existing
}
