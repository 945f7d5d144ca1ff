// Package errors defines the keychord error taxonomy.
//
// Every failure reported by the engine is an *Error carrying a Kind. Callers
// branch on the kind with the standard library:
//
//	actions, err := tree.Evaluate(env, keys)
//	if errors.Is(err, kcerrors.ErrUnknownKeyAtPosition) {
//	    // the key sequence is not bound in this mode
//	}
//
// Construction-time findings are collected into a *ValidationError so that a
// broken configuration is reported in full rather than one problem at a time.
package errors

import (
	"fmt"
	"strings"
)

// Kind categorizes an engine error.
type Kind string

const (
	// KindModeNotBound indicates no key trie is registered for the active mode.
	KindModeNotBound Kind = "mode_not_bound"
	// KindUnknownKeyAtPosition indicates a whole-sequence walk hit an unbound key.
	KindUnknownKeyAtPosition Kind = "unknown_key_at_position"
	// KindInvalidKeyCombination indicates an incremental feed hit an unbound key.
	KindInvalidKeyCombination Kind = "invalid_key_combination"
	// KindIncompleteSequence indicates input ended on a node without a bound command.
	KindIncompleteSequence Kind = "incomplete_sequence"
	// KindNothingPending indicates terminate was called with no sequence in progress.
	KindNothingPending Kind = "nothing_pending"
	// KindCommandNotFound indicates a referenced command has no table entry.
	KindCommandNotFound Kind = "command_not_found"
	// KindNoActionsProduced indicates a command matched but expanded to no actions.
	KindNoActionsProduced Kind = "no_actions_produced"
	// KindConditionEvaluationFailed indicates the expression evaluator failed.
	KindConditionEvaluationFailed Kind = "condition_evaluation_failed"

	// KindDuplicateBinding indicates two key map records bind the same sequence.
	KindDuplicateBinding Kind = "duplicate_binding"
	// KindUnknownActionReference indicates a step names an unrecognized action.
	KindUnknownActionReference Kind = "unknown_action_reference"
	// KindUnknownCommandReference indicates a step or key map names a missing command.
	KindUnknownCommandReference Kind = "unknown_command_reference"
	// KindDuplicateCommand indicates two command records share a name.
	KindDuplicateCommand Kind = "duplicate_command"
	// KindCommandCycle indicates command references form a cycle.
	KindCommandCycle Kind = "command_cycle"
	// KindInvalidCondition indicates a when expression failed its syntax check.
	KindInvalidCondition Kind = "invalid_condition"
	// KindInvalidToken indicates a mode, key or action string could not be parsed.
	KindInvalidToken Kind = "invalid_token"
	// KindEmptySequence indicates a key map record has no keys.
	KindEmptySequence Kind = "empty_sequence"
)

// Sentinels for errors.Is matching. They match any *Error of the same kind.
var (
	ErrModeNotBound              = &Error{Kind: KindModeNotBound}
	ErrUnknownKeyAtPosition      = &Error{Kind: KindUnknownKeyAtPosition}
	ErrInvalidKeyCombination     = &Error{Kind: KindInvalidKeyCombination}
	ErrIncompleteSequence        = &Error{Kind: KindIncompleteSequence}
	ErrNothingPending            = &Error{Kind: KindNothingPending}
	ErrCommandNotFound           = &Error{Kind: KindCommandNotFound}
	ErrNoActionsProduced         = &Error{Kind: KindNoActionsProduced}
	ErrConditionEvaluationFailed = &Error{Kind: KindConditionEvaluationFailed}
	ErrDuplicateBinding          = &Error{Kind: KindDuplicateBinding}
	ErrUnknownActionReference    = &Error{Kind: KindUnknownActionReference}
	ErrUnknownCommandReference   = &Error{Kind: KindUnknownCommandReference}
	ErrDuplicateCommand          = &Error{Kind: KindDuplicateCommand}
	ErrCommandCycle              = &Error{Kind: KindCommandCycle}
	ErrInvalidCondition          = &Error{Kind: KindInvalidCondition}
	ErrInvalidToken              = &Error{Kind: KindInvalidToken}
	ErrEmptySequence             = &Error{Kind: KindEmptySequence}
)

// Error is a single reported engine outcome.
type Error struct {
	Kind     Kind     // Category of the failure
	Op       string   // Operation being performed (evaluate, feed, resolve, build...)
	Mode     string   // Active mode, if known
	Sequence []string // Consumed prefix or pending keys
	Key      string   // Offending key, if any
	Command  string   // Command involved, if any
	Detail   string   // Free-form context
	Cause    error    // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil Error>"
	}

	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.describe())
	if e.Mode != "" {
		fmt.Fprintf(&b, " (mode=%s)", e.Mode)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) describe() string {
	seq := formatSequence(e.Sequence)
	switch e.Kind {
	case KindModeNotBound:
		return "no key bindings for mode"
	case KindUnknownKeyAtPosition:
		return fmt.Sprintf("key %q does not exist after %s", e.Key, seq)
	case KindInvalidKeyCombination:
		return fmt.Sprintf("invalid key combination %s", seq)
	case KindIncompleteSequence:
		return fmt.Sprintf("sequence %s is incomplete", seq)
	case KindNothingPending:
		return "no key sequence pending"
	case KindCommandNotFound:
		return fmt.Sprintf("command not found: %s", e.Command)
	case KindNoActionsProduced:
		return fmt.Sprintf("no actions produced for command: %s", e.Command)
	case KindConditionEvaluationFailed:
		return fmt.Sprintf("condition of command %s failed to evaluate", e.Command)
	case KindDuplicateBinding:
		return fmt.Sprintf("sequence %s bound to %s, also to %s", seq, e.Detail, e.Command)
	case KindUnknownActionReference:
		return fmt.Sprintf("command %s: action not found: %s", e.Command, e.Detail)
	case KindUnknownCommandReference:
		return fmt.Sprintf("%s: command not found: %s", e.Detail, e.Command)
	case KindDuplicateCommand:
		return fmt.Sprintf("duplicate command name: %s", e.Command)
	case KindCommandCycle:
		return fmt.Sprintf("command references form a cycle: %s", e.Detail)
	case KindInvalidCondition:
		return fmt.Sprintf("command %s: invalid condition %q", e.Command, e.Detail)
	case KindInvalidToken:
		return fmt.Sprintf("invalid token: %s", e.Detail)
	case KindEmptySequence:
		return fmt.Sprintf("key map for command %s has no keys", e.Command)
	default:
		if e.Detail != "" {
			return e.Detail
		}
		return string(e.Kind)
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// WithMode returns a copy of err annotated with mode when err is an *Error.
func WithMode(err error, mode string) error {
	e, ok := err.(*Error)
	if !ok || e == nil {
		return err
	}
	c := *e
	c.Mode = mode
	return &c
}

// WithOp returns a copy of err annotated with op when err is an *Error.
func WithOp(err error, op string) error {
	e, ok := err.(*Error)
	if !ok || e == nil {
		return err
	}
	c := *e
	c.Op = op
	return &c
}

// KindOf returns the kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

func formatSequence(seq []string) string {
	return "[" + strings.Join(seq, " ") + "]"
}
