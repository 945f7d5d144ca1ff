// Package condition implements the boolean "when" gate attached to commands.
package condition

import (
	"errors"
	"strings"
)

const (
	// Always is the condition that is satisfied without consulting variables.
	Always = "true"
	// Never is the condition that is never satisfied.
	Never = "false"
)

// ErrNoEvaluator is returned when a non-trivial condition is checked
// without an expression evaluator.
var ErrNoEvaluator = errors.New("no expression evaluator configured")

// Variables is the name to value context conditions are evaluated against.
type Variables map[string]any

// Evaluator evaluates a boolean expression against a variable context.
type Evaluator interface {
	EvaluateBool(expression string, vars Variables) (bool, error)
}

// Checker is implemented by evaluators that can reject a malformed
// expression before any variables are known.
type Checker interface {
	Check(expression string) error
}

// Condition wraps a when expression.
type Condition struct {
	when string
}

// New creates a condition. An empty expression means Always.
func New(when string) Condition {
	when = strings.TrimSpace(when)
	if when == "" {
		when = Always
	}
	return Condition{when: when}
}

// String returns the expression.
func (c Condition) String() string {
	if c.when == "" {
		return Always
	}
	return c.when
}

// IsAlways reports whether the condition is the literal "true".
func (c Condition) IsAlways() bool {
	return c.when == "" || c.when == Always
}

// IsNever reports whether the condition is the literal "false".
func (c Condition) IsNever() bool {
	return c.when == Never
}

// IsSatisfied reports whether the condition holds for vars. The literals
// "true" and "false" never reach the evaluator. Evaluator failures are
// returned, never treated as false.
func (c Condition) IsSatisfied(eval Evaluator, vars Variables) (bool, error) {
	switch {
	case c.IsAlways():
		return true, nil
	case c.IsNever():
		return false, nil
	case eval == nil:
		return false, ErrNoEvaluator
	}
	return eval.EvaluateBool(c.when, vars)
}

// Check validates the expression syntax with checker, if any.
func (c Condition) Check(checker Checker) error {
	if checker == nil || c.IsAlways() || c.IsNever() {
		return nil
	}
	return checker.Check(c.when)
}
